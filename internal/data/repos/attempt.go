package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

type AttemptRepo interface {
	// CreateActive inserts a new in-progress attempt. When another in-progress
	// attempt already holds the (quiz, user) active key the insert is a no-op
	// and created reports false; the caller re-reads the winner via GetActive.
	CreateActive(dbc dbctx.Context, attempt *types.Attempt) (created bool, err error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attempt, error)
	GetActive(dbc dbctx.Context, quizID, userID uuid.UUID) (*types.Attempt, error)
	CountTerminal(dbc dbctx.Context, quizID, userID uuid.UUID) (int64, error)
	ListByQuizAndUser(dbc dbctx.Context, quizID, userID uuid.UUID) ([]*types.Attempt, error)
	ListTerminalByQuiz(dbc dbctx.Context, quizID uuid.UUID) ([]*types.Attempt, error)
	BestTerminal(dbc dbctx.Context, quizID, userID uuid.UUID) (*types.Attempt, error)
	// Finalize applies the terminal write guarded on status, so only one
	// caller ever transitions an attempt out of in_progress. finalized
	// reports whether this call won the transition.
	Finalize(dbc dbctx.Context, id uuid.UUID, updates map[string]any) (finalized bool, err error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{
		db:  db,
		log: baseLog.With("repo", "AttemptRepo"),
	}
}

func (r *attemptRepo) CreateActive(dbc dbctx.Context, attempt *types.Attempt) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "active_key"}},
			DoNothing: true,
		}).
		Create(attempt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *attemptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Attempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}

	var a types.Attempt
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepo) GetActive(dbc dbctx.Context, quizID, userID uuid.UUID) (*types.Attempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var a types.Attempt
	err := t.WithContext(dbc.Ctx).
		Where("quiz_id = ? AND user_id = ? AND status = ?", quizID, userID, types.AttemptStatusInProgress).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepo) CountTerminal(dbc dbctx.Context, quizID, userID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var n int64
	err := t.WithContext(dbc.Ctx).
		Model(&types.Attempt{}).
		Where("quiz_id = ? AND user_id = ? AND status IN ?", quizID, userID, terminalStatuses()).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *attemptRepo) ListByQuizAndUser(dbc dbctx.Context, quizID, userID uuid.UUID) ([]*types.Attempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var results []*types.Attempt
	err := t.WithContext(dbc.Ctx).
		Where("quiz_id = ? AND user_id = ?", quizID, userID).
		Order("started_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRepo) ListTerminalByQuiz(dbc dbctx.Context, quizID uuid.UUID) ([]*types.Attempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var results []*types.Attempt
	err := t.WithContext(dbc.Ctx).
		Where("quiz_id = ? AND status IN ?", quizID, terminalStatuses()).
		Order("completed_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRepo) BestTerminal(dbc dbctx.Context, quizID, userID uuid.UUID) (*types.Attempt, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var a types.Attempt
	err := t.WithContext(dbc.Ctx).
		Where("quiz_id = ? AND user_id = ? AND status IN ?", quizID, userID, terminalStatuses()).
		Order("score DESC").
		Order("completed_at ASC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepo) Finalize(dbc dbctx.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	res := t.WithContext(dbc.Ctx).
		Model(&types.Attempt{}).
		Where("id = ? AND status = ?", id, types.AttemptStatusInProgress).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func terminalStatuses() []string {
	return []string{types.AttemptStatusCompleted, types.AttemptStatusExpired}
}

package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

type ResponseRepo interface {
	// Upsert writes the response for (attempt, question) while the attempt is
	// still in progress, overwriting any earlier answer in place. Last write
	// wins under concurrency. The returned row is the stored one, which keeps
	// its original id on overwrite; nil means the attempt had already reached
	// a terminal status and nothing was written.
	Upsert(dbc dbctx.Context, response *types.Response) (*types.Response, error)
	ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.Response, error)
	ListByAttemptIDs(dbc dbctx.Context, attemptIDs []uuid.UUID) ([]*types.Response, error)
	// MarkCorrectness stamps the per-question verdicts computed at finalize.
	MarkCorrectness(dbc dbctx.Context, attemptID uuid.UUID, verdicts map[uuid.UUID]bool) error
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{
		db:  db,
		log: baseLog.With("repo", "ResponseRepo"),
	}
}

func (r *responseRepo) Upsert(dbc dbctx.Context, response *types.Response) (*types.Response, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	// Insert-select guarded on the attempt's status, so a response can never
	// land on an attempt that a concurrent finalize already closed.
	now := time.Now().UTC()
	res := t.WithContext(dbc.Ctx).Exec(`
INSERT INTO quiz_response (id, attempt_id, question_id, answer, created_at, updated_at)
SELECT ?, ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM quiz_attempt WHERE id = ? AND status = ?)
ON CONFLICT (attempt_id, question_id) DO UPDATE SET answer = excluded.answer, updated_at = excluded.updated_at`,
		response.ID, response.AttemptID, response.QuestionID, response.Answer, now, now,
		response.AttemptID, types.AttemptStatusInProgress,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var stored types.Response
	err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ? AND question_id = ?", response.AttemptID, response.QuestionID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *responseRepo) ListByAttempt(dbc dbctx.Context, attemptID uuid.UUID) ([]*types.Response, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var results []*types.Response
	if attemptID == uuid.Nil {
		return results, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("attempt_id = ?", attemptID).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *responseRepo) ListByAttemptIDs(dbc dbctx.Context, attemptIDs []uuid.UUID) ([]*types.Response, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	var results []*types.Response
	if len(attemptIDs) == 0 {
		return results, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("attempt_id IN ?", attemptIDs).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *responseRepo) MarkCorrectness(dbc dbctx.Context, attemptID uuid.UUID, verdicts map[uuid.UUID]bool) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}

	for questionID, correct := range verdicts {
		err := t.WithContext(dbc.Ctx).
			Model(&types.Response{}).
			Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
			Update("correct", correct).Error
		if err != nil {
			return err
		}
	}
	return nil
}

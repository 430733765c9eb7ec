package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

// QuizRepo is the read side of the quiz definition store. Definitions are
// authored elsewhere; the attempt engine only ever loads them.
type QuizRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error)
	GetQuestion(dbc dbctx.Context, quizID, questionID uuid.UUID) (*types.Question, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{
		db:  db,
		log: baseLog.With("repo", "QuizRepo"),
	}
}

func (r *quizRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Quiz, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}

	var q types.Quiz
	err := t.WithContext(dbc.Ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_question.position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_option.position ASC")
		}).
		Where("id = ?", id).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quizRepo) GetQuestion(dbc dbctx.Context, quizID, questionID uuid.UUID) (*types.Question, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if quizID == uuid.Nil || questionID == uuid.Nil {
		return nil, nil
	}

	var q types.Question
	err := t.WithContext(dbc.Ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("quiz_option.position ASC")
		}).
		Where("id = ? AND quiz_id = ?", questionID, quizID).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

package services

import (
	"context"
	"math/rand"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightmoss/quizcraft-backend/internal/data/repos"
	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/domain/user"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/ctxutil"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

type QuizService interface {
	// GetForTaking loads a quiz definition for the caller. revealAnswers
	// reports whether option correctness may be included in the response:
	// staff always, students only once they hold a terminal attempt on a
	// quiz that shows results immediately.
	GetForTaking(ctx context.Context, quizID uuid.UUID) (q *types.Quiz, revealAnswers bool, err error)
}

type quizService struct {
	db          *gorm.DB
	log         *logger.Logger
	quizRepo    repos.QuizRepo
	attemptRepo repos.AttemptRepo
}

func NewQuizService(db *gorm.DB, baseLog *logger.Logger, quizRepo repos.QuizRepo, attemptRepo repos.AttemptRepo) QuizService {
	return &quizService{
		db:          db,
		log:         baseLog.With("service", "QuizService"),
		quizRepo:    quizRepo,
		attemptRepo: attemptRepo,
	}
}

func (s *quizService) GetForTaking(ctx context.Context, quizID uuid.UUID) (*types.Quiz, bool, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, false, apierr.Unauthorized("missing caller identity")
	}

	dbc := dbctx.Context{Ctx: ctx}
	q, err := s.quizRepo.GetByID(dbc, quizID)
	if err != nil {
		return nil, false, err
	}
	if q == nil {
		return nil, false, apierr.NotFound("quiz %s not found", quizID)
	}

	if user.IsStaff(rd.Role) {
		return q, true, nil
	}

	reveal := false
	if q.ShowResultsImmediately {
		terminal, err := s.attemptRepo.CountTerminal(dbc, quizID, rd.UserID)
		if err != nil {
			return nil, false, err
		}
		reveal = terminal > 0
	}

	if q.RandomizeQuestions {
		shuffled := make([]*types.Question, len(q.Questions))
		copy(shuffled, q.Questions)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		q.Questions = shuffled
	}
	return q, reveal, nil
}

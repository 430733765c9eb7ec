package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/brightmoss/quizcraft-backend/internal/clients/redis"
	"github.com/brightmoss/quizcraft-backend/internal/data/repos"
	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/domain/user"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/ctxutil"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

const histogramBuckets = 10

type HistogramBucket struct {
	Label string `json:"label"` // e.g. "80-89", last bucket "90-100"
	Count int    `json:"count"`
}

type QuestionStat struct {
	QuestionID   uuid.UUID `json:"question_id"`
	Index        int       `json:"index"`
	CorrectCount int       `json:"correct_count"`
	// CorrectRate is the fraction of terminal attempts that answered this
	// question fully correctly; low values surface weak questions.
	CorrectRate float64 `json:"correct_rate"`
}

type QuizStatistics struct {
	QuizID       uuid.UUID         `json:"quiz_id"`
	AttemptCount int               `json:"attempt_count"`
	AverageScore float64           `json:"average_score"`
	PassRate     float64           `json:"pass_rate"`
	Histogram    []HistogramBucket `json:"histogram"`
	Questions    []QuestionStat    `json:"questions"`
}

type StatsService interface {
	// QuizStatistics aggregates all terminal attempts for a quiz. Staff only.
	QuizStatistics(ctx context.Context, quizID uuid.UUID) (*QuizStatistics, error)
	// BestAttempt returns the user's highest scoring terminal attempt; ties
	// go to the earliest completion.
	BestAttempt(ctx context.Context, quizID, userID uuid.UUID) (*types.Attempt, error)
}

type statsService struct {
	db           *gorm.DB
	log          *logger.Logger
	quizRepo     repos.QuizRepo
	attemptRepo  repos.AttemptRepo
	responseRepo repos.ResponseRepo
	userRepo     repos.UserRepo
	cache        *redisclient.Cache
	cacheTTL     time.Duration
}

func NewStatsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	quizRepo repos.QuizRepo,
	attemptRepo repos.AttemptRepo,
	responseRepo repos.ResponseRepo,
	userRepo repos.UserRepo,
	cache *redisclient.Cache,
	cacheTTL time.Duration,
) StatsService {
	return &statsService{
		db:           db,
		log:          baseLog.With("service", "StatsService"),
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		userRepo:     userRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
	}
}

func statsCacheKey(quizID uuid.UUID) string {
	return fmt.Sprintf("quizcraft:stats:%s", quizID)
}

func (s *statsService) QuizStatistics(ctx context.Context, quizID uuid.UUID) (*QuizStatistics, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing caller identity")
	}
	if !user.IsStaff(rd.Role) {
		return nil, apierr.Forbidden("quiz statistics are restricted to instructors and admins")
	}

	var cached QuizStatistics
	if hit, err := s.cache.Get(ctx, statsCacheKey(quizID), &cached); err != nil {
		s.log.Warn("stats cache read failed", "quiz_id", quizID, "error", err)
	} else if hit {
		return &cached, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	q, err := s.quizRepo.GetByID(dbc, quizID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apierr.NotFound("quiz %s not found", quizID)
	}

	attempts, err := s.attemptRepo.ListTerminalByQuiz(dbc, quizID)
	if err != nil {
		return nil, err
	}

	attemptIDs := make([]uuid.UUID, 0, len(attempts))
	for _, a := range attempts {
		attemptIDs = append(attemptIDs, a.ID)
	}
	responses, err := s.responseRepo.ListByAttemptIDs(dbc, attemptIDs)
	if err != nil {
		return nil, err
	}

	stats := aggregate(q, attempts, responses)
	if err := s.cache.Set(ctx, statsCacheKey(quizID), stats, s.cacheTTL); err != nil {
		s.log.Warn("stats cache write failed", "quiz_id", quizID, "error", err)
	}
	return stats, nil
}

// aggregate rolls terminal attempts up into dashboard statistics. Pure
// computation over already-loaded rows.
func aggregate(q *types.Quiz, attempts []*types.Attempt, responses []*types.Response) *QuizStatistics {
	stats := &QuizStatistics{
		QuizID:       q.ID,
		AttemptCount: len(attempts),
		Histogram:    make([]HistogramBucket, histogramBuckets),
	}
	for i := range stats.Histogram {
		low := i * 10
		high := low + 9
		if i == histogramBuckets-1 {
			high = 100
		}
		stats.Histogram[i].Label = fmt.Sprintf("%d-%d", low, high)
	}

	var scoreSum float64
	var passCount int
	for _, a := range attempts {
		if a.Score == nil {
			continue
		}
		scoreSum += *a.Score
		if a.Passed != nil && *a.Passed {
			passCount++
		}
		bucket := int(*a.Score / 10)
		if bucket >= histogramBuckets {
			bucket = histogramBuckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		stats.Histogram[bucket].Count++
	}
	if len(attempts) > 0 {
		stats.AverageScore = scoreSum / float64(len(attempts))
		stats.PassRate = float64(passCount) / float64(len(attempts))
	}

	correctByQuestion := make(map[uuid.UUID]int)
	for _, resp := range responses {
		if resp.Correct != nil && *resp.Correct {
			correctByQuestion[resp.QuestionID]++
		}
	}
	for _, question := range q.Questions {
		qs := QuestionStat{
			QuestionID:   question.ID,
			Index:        question.Index,
			CorrectCount: correctByQuestion[question.ID],
		}
		if len(attempts) > 0 {
			qs.CorrectRate = float64(qs.CorrectCount) / float64(len(attempts))
		}
		stats.Questions = append(stats.Questions, qs)
	}
	return stats
}

func (s *statsService) BestAttempt(ctx context.Context, quizID, userID uuid.UUID) (*types.Attempt, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing caller identity")
	}
	if userID == uuid.Nil {
		userID = rd.UserID
	}

	dbc := dbctx.Context{Ctx: ctx}
	if userID != rd.UserID {
		if !user.IsStaff(rd.Role) {
			return nil, apierr.Forbidden("only staff may read other users' attempts")
		}
		target, err := s.userRepo.GetByID(dbc, userID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, apierr.NotFound("user %s not found", userID)
		}
	}

	best, err := s.attemptRepo.BestTerminal(dbc, quizID, userID)
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, apierr.NotFound("user %s has no completed attempts on quiz %s", userID, quizID)
	}
	return best, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/brightmoss/quizcraft-backend/internal/data/repos"
	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/domain/user"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/ctxutil"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/dbctx"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

// errLostFinalizeRace aborts the finalize transaction when a concurrent
// caller already moved the attempt to a terminal status.
var errLostFinalizeRace = errors.New("attempt already finalized")

type AttemptService interface {
	// Start opens an attempt for the caller on the given quiz. Idempotent: an
	// in-progress attempt for (caller, quiz) is returned unchanged instead of
	// creating a duplicate.
	Start(ctx context.Context, quizID uuid.UUID) (*types.Attempt, error)
	// Submit validates and stores one answer, overwriting any earlier answer
	// to the same question while the attempt is active.
	Submit(ctx context.Context, attemptID, questionID uuid.UUID, rawAnswer json.RawMessage) (*types.Response, error)
	// Complete finalizes the attempt: scores it, stamps the terminal status
	// (expired when past the deadline, completed otherwise) atomically, and
	// returns the result. Calling it again returns the stored result.
	Complete(ctx context.Context, attemptID uuid.UUID) (*types.Attempt, error)
	Get(ctx context.Context, attemptID uuid.UUID) (*types.Attempt, []*types.Response, error)
	ListForUser(ctx context.Context, quizID, userID uuid.UUID) ([]*types.Attempt, error)
}

type attemptService struct {
	db           *gorm.DB
	log          *logger.Logger
	quizRepo     repos.QuizRepo
	attemptRepo  repos.AttemptRepo
	responseRepo repos.ResponseRepo
	userRepo     repos.UserRepo

	// start collapses concurrent Start calls for the same (user, quiz) key on
	// this instance; the active_key unique index covers racing instances.
	start singleflight.Group
}

func NewAttemptService(
	db *gorm.DB,
	baseLog *logger.Logger,
	quizRepo repos.QuizRepo,
	attemptRepo repos.AttemptRepo,
	responseRepo repos.ResponseRepo,
	userRepo repos.UserRepo,
) AttemptService {
	return &attemptService{
		db:           db,
		log:          baseLog.With("service", "AttemptService"),
		quizRepo:     quizRepo,
		attemptRepo:  attemptRepo,
		responseRepo: responseRepo,
		userRepo:     userRepo,
	}
}

func (s *attemptService) Start(ctx context.Context, quizID uuid.UUID) (*types.Attempt, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing caller identity")
	}

	dbc := dbctx.Context{Ctx: ctx}
	q, err := s.quizRepo.GetByID(dbc, quizID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apierr.NotFound("quiz %s not found", quizID)
	}
	if err := ValidateQuizDefinition(q); err != nil {
		return nil, err
	}

	key := types.ActiveKeyFor(quizID, rd.UserID)
	out, err, _ := s.start.Do(key, func() (interface{}, error) {
		return s.startLocked(dbc, q, rd.UserID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*types.Attempt), nil
}

func (s *attemptService) startLocked(dbc dbctx.Context, q *types.Quiz, userID uuid.UUID) (*types.Attempt, error) {
	active, err := s.attemptRepo.GetActive(dbc, q.ID, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		if !active.ExpiredAt(q, time.Now().UTC()) {
			return active, nil
		}
		// A past-deadline attempt is closed out here so the caller gets a
		// fresh attempt instead of one it can only complete.
		if _, err := s.finalize(dbc.Ctx, active); err != nil {
			return nil, err
		}
	}

	if q.MaxAttempts != nil {
		used, err := s.attemptRepo.CountTerminal(dbc, q.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(*q.MaxAttempts) {
			return nil, apierr.AttemptLimitExceeded("quiz %s allows %d attempts, %d used", q.ID, *q.MaxAttempts, used)
		}
	}

	key := types.ActiveKeyFor(q.ID, userID)
	attempt := &types.Attempt{
		ID:        uuid.New(),
		QuizID:    q.ID,
		UserID:    userID,
		Status:    types.AttemptStatusInProgress,
		ActiveKey: &key,
		StartedAt: time.Now().UTC(),
	}
	created, err := s.attemptRepo.CreateActive(dbc, attempt)
	if err != nil {
		return nil, err
	}
	if !created {
		// A concurrent starter on another instance won the unique index; hand
		// back its row so both callers observe the same attempt.
		winner, err := s.attemptRepo.GetActive(dbc, q.ID, userID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, apierr.Internal(errors.New("active attempt vanished after create conflict"))
		}
		return winner, nil
	}

	s.log.Info("attempt started", "attempt_id", attempt.ID, "quiz_id", q.ID, "user_id", userID)
	return attempt, nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID, questionID uuid.UUID, rawAnswer json.RawMessage) (*types.Response, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing caller identity")
	}

	dbc := dbctx.Context{Ctx: ctx}
	attempt, err := s.attemptRepo.GetByID(dbc, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apierr.NotFound("attempt %s not found", attemptID)
	}
	if attempt.UserID != rd.UserID {
		return nil, apierr.Forbidden("attempt %s does not belong to the caller", attemptID)
	}
	if attempt.Terminal() {
		return nil, apierr.AttemptNotActive("attempt %s is %s", attemptID, attempt.Status)
	}

	q, err := s.quizRepo.GetByID(dbc, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apierr.NotFound("quiz %s not found", attempt.QuizID)
	}
	// The deadline is computed from the stored started_at on every
	// submission; a client cannot extend its window.
	if attempt.ExpiredAt(q, time.Now().UTC()) {
		return nil, apierr.AttemptExpired("attempt %s deadline has passed", attemptID)
	}

	question, err := s.quizRepo.GetQuestion(dbc, attempt.QuizID, questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apierr.NotFound("question %s not found on quiz %s", questionID, attempt.QuizID)
	}

	answer, err := types.ParseAnswer(rawAnswer)
	if err != nil {
		return nil, apierr.InvalidResponseShape("malformed answer payload: %v", err)
	}
	if err := ValidateAnswerShape(question, answer); err != nil {
		return nil, err
	}

	normalized, err := json.Marshal(answer)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	response := &types.Response{
		ID:         uuid.New(),
		AttemptID:  attempt.ID,
		QuestionID: question.ID,
		Answer:     datatypes.JSON(normalized),
	}
	stored, err := s.responseRepo.Upsert(dbc, response)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		// Lost a race with a concurrent finalize between the status check and
		// the write.
		return nil, apierr.AttemptNotActive("attempt %s is no longer in progress", attemptID)
	}
	return stored, nil
}

func (s *attemptService) Complete(ctx context.Context, attemptID uuid.UUID) (*types.Attempt, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("missing caller identity")
	}

	dbc := dbctx.Context{Ctx: ctx}
	attempt, err := s.attemptRepo.GetByID(dbc, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, apierr.NotFound("attempt %s not found", attemptID)
	}
	if attempt.UserID != rd.UserID && !user.IsStaff(rd.Role) {
		return nil, apierr.Forbidden("attempt %s does not belong to the caller", attemptID)
	}
	if attempt.Terminal() {
		return attempt, nil
	}
	return s.finalize(ctx, attempt)
}

// finalize scores the attempt and stamps its terminal state atomically, then
// re-reads the stored row. Safe under races: the loser of the status guard
// returns the winner's result.
func (s *attemptService) finalize(ctx context.Context, attempt *types.Attempt) (*types.Attempt, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}

		q, err := s.quizRepo.GetByID(inner, attempt.QuizID)
		if err != nil {
			return err
		}
		if q == nil {
			return apierr.NotFound("quiz %s not found", attempt.QuizID)
		}
		responses, err := s.responseRepo.ListByAttempt(inner, attempt.ID)
		if err != nil {
			return err
		}

		answers := make(map[uuid.UUID]*types.Answer, len(responses))
		for _, resp := range responses {
			answer, err := types.ParseAnswer(json.RawMessage(resp.Answer))
			if err != nil {
				s.log.Warn("stored answer failed to parse, scoring as unanswered",
					"attempt_id", attempt.ID, "question_id", resp.QuestionID, "error", err)
				continue
			}
			answers[resp.QuestionID] = answer
		}

		result := ScoreAttempt(q, answers)

		now := time.Now().UTC()
		status := types.AttemptStatusCompleted
		if attempt.ExpiredAt(q, now) {
			status = types.AttemptStatusExpired
		}

		finalized, err := s.attemptRepo.Finalize(inner, attempt.ID, map[string]any{
			"status":        status,
			"active_key":    nil,
			"completed_at":  now,
			"score":         result.Percent,
			"points_earned": result.PointsEarned,
			"points_total":  result.PointsPossible,
			"passed":        result.Passed,
			"updated_at":    now,
		})
		if err != nil {
			return err
		}
		if !finalized {
			return errLostFinalizeRace
		}

		verdicts := make(map[uuid.UUID]bool, len(result.Questions))
		for _, qs := range result.Questions {
			if qs.Answered {
				verdicts[qs.QuestionID] = qs.Correct
			}
		}
		return s.responseRepo.MarkCorrectness(inner, attempt.ID, verdicts)
	})
	if err != nil && !errors.Is(err, errLostFinalizeRace) {
		return nil, err
	}

	// Either we won the finalize or a concurrent caller did; the stored row
	// is the single source of truth for the result.
	final, err := s.attemptRepo.GetByID(dbctx.Context{Ctx: ctx}, attempt.ID)
	if err != nil {
		return nil, err
	}
	if final == nil {
		return nil, apierr.NotFound("attempt %s not found", attempt.ID)
	}
	return final, nil
}

func (s *attemptService) Get(ctx context.Context, attemptID uuid.UUID) (*types.Attempt, []*types.Response, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, nil, apierr.Unauthorized("missing caller identity")
	}

	dbc := dbctx.Context{Ctx: ctx}
	attempt, err := s.attemptRepo.GetByID(dbc, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt == nil {
		return nil, nil, apierr.NotFound("attempt %s not found", attemptID)
	}
	if attempt.UserID != rd.UserID && !user.IsStaff(rd.Role) {
		return nil, nil, apierr.Forbidden("attempt %s does not belong to the caller", attemptID)
	}

	responses, err := s.responseRepo.ListByAttempt(dbc, attempt.ID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, responses, nil
}

func (s *attemptService) ListForUser(ctx context.Context, quizID, userID uuid.UUID) ([]*types.Attempt, error) {
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

	return s.attemptRepo.ListByQuizAndUser(dbc, quizID, userID)
}

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/domain/user"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email, role string) *user.User {
	tb.Helper()
	u := &user.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "A",
		LastName:  "B",
		Role:      role,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, timeLimitMinutes, maxAttempts *int, passingScore float64) *quiz.Quiz {
	tb.Helper()
	q := &quiz.Quiz{
		ID:               uuid.New(),
		CourseID:         uuid.New(),
		Title:            "quiz",
		TimeLimitMinutes: timeLimitMinutes,
		MaxAttempts:      maxAttempts,
		PassingScore:     passingScore,
		AllowReview:      true,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

// SeedQuestion creates a question with len(correct) options; correct[i]
// flags whether option i is a correct answer.
func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, quizID uuid.UUID, index int, qtype string, points float64, correct []bool) *quiz.Question {
	tb.Helper()
	q := &quiz.Question{
		ID:     uuid.New(),
		QuizID: quizID,
		Index:  index,
		Text:   "question",
		Type:   qtype,
		Points: points,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	for i, isCorrect := range correct {
		opt := &quiz.Option{
			ID:         uuid.New(),
			QuestionID: q.ID,
			Index:      i,
			Text:       "option",
			IsCorrect:  isCorrect,
		}
		if err := tx.WithContext(ctx).Create(opt).Error; err != nil {
			tb.Fatalf("seed option: %v", err)
		}
		q.Options = append(q.Options, opt)
	}
	return q
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, status string, startedAt time.Time) *quiz.Attempt {
	tb.Helper()
	a := &quiz.Attempt{
		ID:        uuid.New(),
		QuizID:    quizID,
		UserID:    userID,
		Status:    status,
		StartedAt: startedAt,
	}
	if status == quiz.AttemptStatusInProgress {
		key := quiz.ActiveKeyFor(quizID, userID)
		a.ActiveKey = &key
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}

// SeedTerminalAttempt creates an already-finalized attempt with the given
// result, for statistics and best-attempt tests.
func SeedTerminalAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, quizID, userID uuid.UUID, status string, score float64, passed bool, completedAt time.Time) *quiz.Attempt {
	tb.Helper()
	a := &quiz.Attempt{
		ID:          uuid.New(),
		QuizID:      quizID,
		UserID:      userID,
		Status:      status,
		StartedAt:   completedAt.Add(-5 * time.Minute),
		CompletedAt: &completedAt,
		Score:       &score,
		Passed:      &passed,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed terminal attempt: %v", err)
	}
	return a
}

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

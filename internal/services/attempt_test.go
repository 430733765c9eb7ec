package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brightmoss/quizcraft-backend/internal/data/repos"
	"github.com/brightmoss/quizcraft-backend/internal/data/repos/testutil"
	"github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/domain/user"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/ctxutil"
)

func newAttemptEnv(t *testing.T) (*gorm.DB, AttemptService) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	svc := NewAttemptService(
		db,
		log,
		repos.NewQuizRepo(db, log),
		repos.NewAttemptRepo(db, log),
		repos.NewResponseRepo(db, log),
		repos.NewUserRepo(db, log),
	)
	return db, svc
}

func asUser(u *user.User) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: u.ID, Role: u.Role})
}

func singlePayload(optionID uuid.UUID) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"selected_option_id":%q}`, optionID))
}

func multiPayload(optionIDs ...uuid.UUID) json.RawMessage {
	raw, _ := json.Marshal(map[string][]uuid.UUID{"selected_option_ids": optionIDs})
	return raw
}

func TestStartIdempotentForActiveAttempt(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "start-idem@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)

	first, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.AttemptStatusInProgress, first.Status)

	second, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&quiz.Attempt{}).
		Where("quiz_id = ? AND user_id = ?", q.ID, student.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartConcurrentCallersShareOneAttempt(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "start-race@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			attempt, err := svc.Start(asUser(student), q.ID)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = attempt.ID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&quiz.Attempt{}).
		Where("quiz_id = ? AND user_id = ?", q.ID, student.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartEnforcesMaxAttempts(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "start-cap@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, testutil.PtrInt(1), 70)

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	_, err = svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)

	_, err = svc.Start(asUser(student), q.ID)
	require.Equal(t, apierr.CodeAttemptLimitExceeded, apierr.CodeOf(err))
}

func TestStartReplacesExpiredActiveAttempt(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "start-stale@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, testutil.PtrInt(10), nil, 70)

	stale := testutil.SeedAttempt(t, ctx, db, q.ID, student.ID, quiz.AttemptStatusInProgress,
		time.Now().UTC().Add(-20*time.Minute))

	fresh, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	require.NotEqual(t, stale.ID, fresh.ID)
	require.Equal(t, quiz.AttemptStatusInProgress, fresh.Status)

	var old quiz.Attempt
	require.NoError(t, db.Where("id = ?", stale.ID).First(&old).Error)
	require.Equal(t, quiz.AttemptStatusExpired, old.Status)
	require.NotNil(t, old.Score)
	require.Nil(t, old.ActiveKey)
}

func TestStartExpiredActiveAttemptCountsTowardCap(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "start-stale-cap@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, testutil.PtrInt(10), testutil.PtrInt(1), 70)

	stale := testutil.SeedAttempt(t, ctx, db, q.ID, student.ID, quiz.AttemptStatusInProgress,
		time.Now().UTC().Add(-20*time.Minute))

	_, err := svc.Start(asUser(student), q.ID)
	require.Equal(t, apierr.CodeAttemptLimitExceeded, apierr.CodeOf(err))

	var old quiz.Attempt
	require.NoError(t, db.Where("id = ?", stale.ID).First(&old).Error)
	require.Equal(t, quiz.AttemptStatusExpired, old.Status)
}

func TestStartUnknownQuiz(t *testing.T) {
	db, svc := newAttemptEnv(t)
	student := testutil.SeedUser(t, context.Background(), db, "start-404@test.edu", user.RoleStudent)

	_, err := svc.Start(asUser(student), uuid.New())
	require.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestSubmitOverwritesEarlierAnswer(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "submit-over@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	question := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeMultipleChoice, 5, []bool{true, false, false})

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)

	first, err := svc.Submit(asUser(student), attempt.ID, question.ID, singlePayload(question.Options[0].ID))
	require.NoError(t, err)
	second, err := svc.Submit(asUser(student), attempt.ID, question.ID, singlePayload(question.Options[1].ID))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var stored []*quiz.Response
	require.NoError(t, db.Where("attempt_id = ?", attempt.ID).Find(&stored).Error)
	require.Len(t, stored, 1)
	require.Equal(t, first.ID, stored[0].ID)

	answer, err := quiz.ParseAnswer(json.RawMessage(stored[0].Answer))
	require.NoError(t, err)
	require.NotNil(t, answer.SelectedOptionID)
	require.Equal(t, question.Options[1].ID, *answer.SelectedOptionID)
}

func TestSubmitRejectsWrongShapeAndForeignQuestion(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "submit-shape@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	question := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeMultipleChoice, 5, []bool{true, false})

	otherQuiz := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	foreign := testutil.SeedQuestion(t, ctx, db, otherQuiz.ID, 0, quiz.TypeMultipleChoice, 5, []bool{true, false})

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)

	_, err = svc.Submit(asUser(student), attempt.ID, question.ID, multiPayload(question.Options[0].ID))
	require.Equal(t, apierr.CodeInvalidResponseShape, apierr.CodeOf(err))

	_, err = svc.Submit(asUser(student), attempt.ID, question.ID, json.RawMessage(`{"selected_option_id":"abc","extra":1}`))
	require.Equal(t, apierr.CodeInvalidResponseShape, apierr.CodeOf(err))

	_, err = svc.Submit(asUser(student), attempt.ID, foreign.ID, singlePayload(foreign.Options[0].ID))
	require.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

func TestSubmitRejectsForeignAttempt(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, db, "submit-owner@test.edu", user.RoleStudent)
	intruder := testutil.SeedUser(t, ctx, db, "submit-intruder@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	question := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeTrueFalse, 5, []bool{true, false})

	attempt, err := svc.Start(asUser(owner), q.ID)
	require.NoError(t, err)

	_, err = svc.Submit(asUser(intruder), attempt.ID, question.ID, singlePayload(question.Options[0].ID))
	require.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))
}

func TestCompleteScoresAttemptAndIsIdempotent(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "complete-score@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	mc := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeMultipleChoice, 5, []bool{true, false, false})
	ms := testutil.SeedQuestion(t, ctx, db, q.ID, 1, quiz.TypeMultipleSelect, 5, []bool{true, true, false})

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	_, err = svc.Submit(asUser(student), attempt.ID, mc.ID, singlePayload(mc.Options[0].ID))
	require.NoError(t, err)
	_, err = svc.Submit(asUser(student), attempt.ID, ms.ID, multiPayload(ms.Options[0].ID, ms.Options[1].ID))
	require.NoError(t, err)

	done, err := svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.AttemptStatusCompleted, done.Status)
	require.Nil(t, done.ActiveKey)
	require.NotNil(t, done.CompletedAt)
	require.NotNil(t, done.Score)
	require.Equal(t, 100.0, *done.Score)
	require.Equal(t, 10.0, *done.PointsEarned)
	require.Equal(t, 10.0, *done.PointsTotal)
	require.True(t, *done.Passed)

	again, err := svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, *done.Score, *again.Score)
	require.True(t, done.CompletedAt.Equal(*again.CompletedAt))

	var marked []*quiz.Response
	require.NoError(t, db.Where("attempt_id = ?", attempt.ID).Find(&marked).Error)
	require.Len(t, marked, 2)
	for _, resp := range marked {
		require.NotNil(t, resp.Correct)
		require.True(t, *resp.Correct)
	}
}

func TestCompletePartialCreditIsNotGiven(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "complete-half@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	mc := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeMultipleChoice, 5, []bool{true, false, false})
	ms := testutil.SeedQuestion(t, ctx, db, q.ID, 1, quiz.TypeMultipleSelect, 5, []bool{true, true, false})

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	_, err = svc.Submit(asUser(student), attempt.ID, mc.ID, singlePayload(mc.Options[0].ID))
	require.NoError(t, err)
	// One of the two required selections: the whole question scores zero.
	_, err = svc.Submit(asUser(student), attempt.ID, ms.ID, multiPayload(ms.Options[0].ID))
	require.NoError(t, err)

	done, err := svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, 50.0, *done.Score)
	require.Equal(t, 5.0, *done.PointsEarned)
	require.False(t, *done.Passed)
}

func TestExpiredAttemptRejectsSubmitAndFinalizesAsExpired(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "expire@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, testutil.PtrInt(10), nil, 70)
	question := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeTrueFalse, 5, []bool{true, false})

	started := time.Now().UTC().Add(-20 * time.Minute)
	attempt := testutil.SeedAttempt(t, ctx, db, q.ID, student.ID, quiz.AttemptStatusInProgress, started)

	_, err := svc.Submit(asUser(student), attempt.ID, question.ID, singlePayload(question.Options[0].ID))
	require.Equal(t, apierr.CodeAttemptExpired, apierr.CodeOf(err))

	done, err := svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.AttemptStatusExpired, done.Status)
	require.NotNil(t, done.Score)
	require.Equal(t, 0.0, *done.Score)
	require.False(t, *done.Passed)
}

func TestSubmitAfterCompletionIsRejected(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "submit-late@test.edu", user.RoleStudent)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)
	question := testutil.SeedQuestion(t, ctx, db, q.ID, 0, quiz.TypeTrueFalse, 5, []bool{true, false})

	attempt, err := svc.Start(asUser(student), q.ID)
	require.NoError(t, err)
	_, err = svc.Complete(asUser(student), attempt.ID)
	require.NoError(t, err)

	_, err = svc.Submit(asUser(student), attempt.ID, question.ID, singlePayload(question.Options[0].ID))
	require.Equal(t, apierr.CodeAttemptNotActive, apierr.CodeOf(err))
}

func TestCompleteAccessControl(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, ctx, db, "complete-owner@test.edu", user.RoleStudent)
	stranger := testutil.SeedUser(t, ctx, db, "complete-stranger@test.edu", user.RoleStudent)
	instructor := testutil.SeedUser(t, ctx, db, "complete-staff@test.edu", user.RoleInstructor)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)

	attempt, err := svc.Start(asUser(owner), q.ID)
	require.NoError(t, err)

	_, err = svc.Complete(asUser(stranger), attempt.ID)
	require.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))

	done, err := svc.Complete(asUser(instructor), attempt.ID)
	require.NoError(t, err)
	require.Equal(t, quiz.AttemptStatusCompleted, done.Status)
}

func TestListForUser(t *testing.T) {
	db, svc := newAttemptEnv(t)
	ctx := context.Background()
	student := testutil.SeedUser(t, ctx, db, "list-owner@test.edu", user.RoleStudent)
	other := testutil.SeedUser(t, ctx, db, "list-other@test.edu", user.RoleStudent)
	instructor := testutil.SeedUser(t, ctx, db, "list-staff@test.edu", user.RoleInstructor)
	q := testutil.SeedQuiz(t, ctx, db, nil, nil, 70)

	now := time.Now().UTC()
	testutil.SeedTerminalAttempt(t, ctx, db, q.ID, student.ID, quiz.AttemptStatusCompleted, 80, true, now.Add(-2*time.Hour))
	testutil.SeedTerminalAttempt(t, ctx, db, q.ID, student.ID, quiz.AttemptStatusExpired, 40, false, now.Add(-time.Hour))

	mine, err := svc.ListForUser(asUser(student), q.ID, uuid.Nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.True(t, mine[0].StartedAt.Before(mine[1].StartedAt))

	_, err = svc.ListForUser(asUser(other), q.ID, student.ID)
	require.Equal(t, apierr.CodeForbidden, apierr.CodeOf(err))

	theirs, err := svc.ListForUser(asUser(instructor), q.ID, student.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 2)

	_, err = svc.ListForUser(asUser(instructor), q.ID, uuid.New())
	require.Equal(t, apierr.CodeNotFound, apierr.CodeOf(err))
}

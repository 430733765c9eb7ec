package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
)

// buildQuestion makes an in-memory question with one option per entry of
// correct, flagging option i correct when correct[i] is true.
func buildQuestion(qtype string, points float64, correct []bool) *types.Question {
	q := &types.Question{
		ID:     uuid.New(),
		Type:   qtype,
		Points: points,
	}
	for i, isCorrect := range correct {
		q.Options = append(q.Options, &types.Option{
			ID:         uuid.New(),
			QuestionID: q.ID,
			Index:      i,
			IsCorrect:  isCorrect,
		})
	}
	return q
}

func single(id uuid.UUID) *types.Answer {
	return &types.Answer{SelectedOptionID: &id}
}

func multi(ids ...uuid.UUID) *types.Answer {
	return &types.Answer{SelectedOptionIDs: ids}
}

func TestScoreAttemptAllCorrectPasses(t *testing.T) {
	mc := buildQuestion(types.TypeMultipleChoice, 10, []bool{true, false, false, false})
	ms := buildQuestion(types.TypeMultipleSelect, 5, []bool{true, true, false})
	tf := buildQuestion(types.TypeTrueFalse, 2.5, []bool{true, false})
	q := &types.Quiz{
		ID:           uuid.New(),
		PassingScore: 100,
		Questions:    []*types.Question{mc, ms, tf},
	}

	answers := map[uuid.UUID]*types.Answer{
		mc.ID: single(mc.Options[0].ID),
		ms.ID: multi(ms.Options[1].ID, ms.Options[0].ID),
		tf.ID: single(tf.Options[0].ID),
	}

	result := ScoreAttempt(q, answers)
	require.Equal(t, 17.5, result.PointsEarned)
	require.Equal(t, 17.5, result.PointsPossible)
	require.Equal(t, float64(100), result.Percent)
	require.True(t, result.Passed)
}

func TestScoreAttemptMultipleSelectAllOrNothing(t *testing.T) {
	ms := buildQuestion(types.TypeMultipleSelect, 10, []bool{true, true, true, false, false})
	q := &types.Quiz{ID: uuid.New(), PassingScore: 50, Questions: []*types.Question{ms}}

	// Two of the three correct options, no incorrect ones: still zero.
	result := ScoreAttempt(q, map[uuid.UUID]*types.Answer{
		ms.ID: multi(ms.Options[0].ID, ms.Options[1].ID),
	})
	require.Equal(t, float64(0), result.PointsEarned)
	require.False(t, result.Passed)

	// Superset (all correct plus one incorrect) scores zero too.
	result = ScoreAttempt(q, map[uuid.UUID]*types.Answer{
		ms.ID: multi(ms.Options[0].ID, ms.Options[1].ID, ms.Options[2].ID, ms.Options[3].ID),
	})
	require.Equal(t, float64(0), result.PointsEarned)

	// Exact set earns full points.
	result = ScoreAttempt(q, map[uuid.UUID]*types.Answer{
		ms.ID: multi(ms.Options[2].ID, ms.Options[0].ID, ms.Options[1].ID),
	})
	require.Equal(t, float64(10), result.PointsEarned)
	require.True(t, result.Passed)
}

func TestScoreAttemptMissingResponseScoresZero(t *testing.T) {
	mc := buildQuestion(types.TypeMultipleChoice, 10, []bool{true, false})
	tf := buildQuestion(types.TypeTrueFalse, 10, []bool{true, false})
	q := &types.Quiz{ID: uuid.New(), PassingScore: 70, Questions: []*types.Question{mc, tf}}

	result := ScoreAttempt(q, map[uuid.UUID]*types.Answer{
		tf.ID: single(tf.Options[0].ID),
	})
	require.Equal(t, float64(10), result.PointsEarned)
	require.Equal(t, float64(50), result.Percent)
	require.False(t, result.Passed)

	qs := result.Questions
	require.Len(t, qs, 2)
	require.False(t, qs[0].Answered)
	require.True(t, qs[1].Answered)
	require.True(t, qs[1].Correct)
}

// The worked example: time_limit=10, max_attempts=2, passing_score=70,
// QuestionA multiple choice 10pts, QuestionB true/false 10pts.
func TestScoreAttemptWorkedExample(t *testing.T) {
	qa := buildQuestion(types.TypeMultipleChoice, 10, []bool{true, false, false, false})
	qb := buildQuestion(types.TypeTrueFalse, 10, []bool{true, false})
	quiz := &types.Quiz{ID: uuid.New(), PassingScore: 70, Questions: []*types.Question{qa, qb}}

	// {A=a, B=True} -> 20/20 = 100%, passed.
	result := ScoreAttempt(quiz, map[uuid.UUID]*types.Answer{
		qa.ID: single(qa.Options[0].ID),
		qb.ID: single(qb.Options[0].ID),
	})
	require.Equal(t, float64(100), result.Percent)
	require.True(t, result.Passed)

	// {A=b, B=True} -> 10/20 = 50%, failed.
	result = ScoreAttempt(quiz, map[uuid.UUID]*types.Answer{
		qa.ID: single(qa.Options[1].ID),
		qb.ID: single(qb.Options[0].ID),
	})
	require.Equal(t, float64(50), result.Percent)
	require.False(t, result.Passed)
}

func TestScoreAttemptDeterministic(t *testing.T) {
	mc := buildQuestion(types.TypeMultipleChoice, 7, []bool{false, true})
	q := &types.Quiz{ID: uuid.New(), PassingScore: 60, Questions: []*types.Question{mc}}
	answers := map[uuid.UUID]*types.Answer{mc.ID: single(mc.Options[1].ID)}

	first := ScoreAttempt(q, answers)
	second := ScoreAttempt(q, answers)
	require.Equal(t, first, second)
}

func TestScoreAttemptEmptyQuizScoresZeroPercent(t *testing.T) {
	q := &types.Quiz{ID: uuid.New(), PassingScore: 0, Questions: nil}
	result := ScoreAttempt(q, nil)
	require.Equal(t, float64(0), result.Percent)
	require.True(t, result.Passed) // 0 >= 0
}

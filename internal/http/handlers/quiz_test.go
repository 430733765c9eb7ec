package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
)

func dtoFixtureQuiz() *types.Quiz {
	q := &types.Quiz{
		ID:           uuid.New(),
		CourseID:     uuid.New(),
		Title:        "Photosynthesis basics",
		PassingScore: 70,
	}
	question := &types.Question{
		ID:     uuid.New(),
		QuizID: q.ID,
		Index:  0,
		Text:   "Pick the right one",
		Type:   types.TypeMultipleChoice,
		Points: 5,
	}
	question.Options = []*types.Option{
		{ID: uuid.New(), QuestionID: question.ID, Index: 0, Text: "right", IsCorrect: true},
		{ID: uuid.New(), QuestionID: question.ID, Index: 1, Text: "wrong", IsCorrect: false},
	}
	q.Questions = []*types.Question{question}
	return q
}

func TestToQuizDTOStripsCorrectnessFlags(t *testing.T) {
	q := dtoFixtureQuiz()

	dto := toQuizDTO(q, false)
	require.Len(t, dto.Questions, 1)
	for _, opt := range dto.Questions[0].Options {
		require.Nil(t, opt.IsCorrect)
	}

	// The wire form must not carry the field at all when it is withheld.
	raw, err := json.Marshal(dto)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "is_correct")
}

func TestToQuizDTOIncludesCorrectnessWhenRevealed(t *testing.T) {
	q := dtoFixtureQuiz()

	dto := toQuizDTO(q, true)
	require.Len(t, dto.Questions, 1)
	opts := dto.Questions[0].Options
	require.Len(t, opts, 2)
	require.NotNil(t, opts[0].IsCorrect)
	require.True(t, *opts[0].IsCorrect)
	require.NotNil(t, opts[1].IsCorrect)
	require.False(t, *opts[1].IsCorrect)
}

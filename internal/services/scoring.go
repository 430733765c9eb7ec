package services

import (
	"github.com/google/uuid"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
)

// QuestionScore is the scoring verdict for a single question.
type QuestionScore struct {
	QuestionID uuid.UUID `json:"question_id"`
	Points     float64   `json:"points"`
	Earned     float64   `json:"earned"`
	Answered   bool      `json:"answered"`
	Correct    bool      `json:"correct"`
}

type ScoreResult struct {
	PointsEarned   float64         `json:"points_earned"`
	PointsPossible float64         `json:"points_possible"`
	Percent        float64         `json:"percent"`
	Passed         bool            `json:"passed"`
	Questions      []QuestionScore `json:"questions"`
}

// ScoreAttempt grades one attempt's answers against a quiz definition. It is
// a pure function: same inputs give the same result, nothing is persisted
// here. Unanswered questions score zero. There is no partial credit anywhere;
// multiple_select earns its points only when the selected set equals the
// correct set exactly.
func ScoreAttempt(q *types.Quiz, answers map[uuid.UUID]*types.Answer) ScoreResult {
	result := ScoreResult{
		Questions: make([]QuestionScore, 0, len(q.Questions)),
	}

	for _, question := range q.Questions {
		qs := QuestionScore{
			QuestionID: question.ID,
			Points:     question.Points,
		}
		result.PointsPossible += question.Points

		answer := answers[question.ID]
		if answer != nil {
			qs.Answered = true
			qs.Correct = answerCorrect(question, answer)
			if qs.Correct {
				qs.Earned = question.Points
				result.PointsEarned += question.Points
			}
		}
		result.Questions = append(result.Questions, qs)
	}

	if result.PointsPossible > 0 {
		result.Percent = result.PointsEarned / result.PointsPossible * 100
	}
	result.Passed = result.Percent >= q.PassingScore
	return result
}

func answerCorrect(question *types.Question, answer *types.Answer) bool {
	switch question.Type {
	case types.TypeMultipleChoice, types.TypeTrueFalse:
		if answer.SelectedOptionID == nil {
			return false
		}
		opt := question.Option(*answer.SelectedOptionID)
		return opt != nil && opt.IsCorrect

	case types.TypeMultipleSelect:
		correct := question.CorrectOptionIDs()
		if len(answer.SelectedOptionIDs) != len(correct) {
			return false
		}
		selected := make(map[uuid.UUID]bool, len(answer.SelectedOptionIDs))
		for _, id := range answer.SelectedOptionIDs {
			selected[id] = true
		}
		for _, id := range correct {
			if !selected[id] {
				return false
			}
		}
		return true
	}
	return false
}

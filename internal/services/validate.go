package services

import (
	"github.com/google/uuid"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
)

// questionRule is the declarative per-type schema for quiz questions. Rules
// are evaluated up front, never inside the scoring path.
type questionRule struct {
	exactOptions int // 0 means use min/max
	minOptions   int
	maxOptions   int
	minCorrect   int
	maxCorrect   int // 0 means unbounded above minCorrect
}

var questionRules = map[string]questionRule{
	types.TypeMultipleChoice: {minOptions: 2, maxOptions: 6, minCorrect: 1, maxCorrect: 1},
	types.TypeMultipleSelect: {minOptions: 2, maxOptions: 6, minCorrect: 1},
	types.TypeTrueFalse:      {exactOptions: 2, minCorrect: 1, maxCorrect: 1},
}

const minQuestionPoints = 0.5

// ValidateQuizDefinition shape-checks a quiz definition against the question
// rules. The attempt engine treats the definition store as authoritative, so
// this runs when definitions are written and again defensively before an
// attempt starts.
func ValidateQuizDefinition(q *types.Quiz) error {
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return apierr.Validation("passing_score must be within 0..100, got %v", q.PassingScore)
	}
	if q.TimeLimitMinutes != nil && *q.TimeLimitMinutes <= 0 {
		return apierr.Validation("time_limit_minutes must be positive")
	}
	if q.MaxAttempts != nil && *q.MaxAttempts <= 0 {
		return apierr.Validation("max_attempts must be positive")
	}
	for _, question := range q.Questions {
		if err := validateQuestion(question); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestion(question *types.Question) error {
	rule, ok := questionRules[question.Type]
	if !ok {
		return apierr.Validation("question %s has unknown type %q", question.ID, question.Type)
	}
	if question.Points < minQuestionPoints {
		return apierr.Validation("question %s points must be >= %v", question.ID, minQuestionPoints)
	}

	n := len(question.Options)
	if rule.exactOptions > 0 {
		if n != rule.exactOptions {
			return apierr.Validation("question %s requires exactly %d options, has %d", question.ID, rule.exactOptions, n)
		}
	} else if n < rule.minOptions || n > rule.maxOptions {
		return apierr.Validation("question %s requires %d..%d options, has %d", question.ID, rule.minOptions, rule.maxOptions, n)
	}

	correct := len(question.CorrectOptionIDs())
	if correct < rule.minCorrect {
		return apierr.Validation("question %s requires at least %d correct option(s), has %d", question.ID, rule.minCorrect, correct)
	}
	if rule.maxCorrect > 0 && correct > rule.maxCorrect {
		return apierr.Validation("question %s allows at most %d correct option(s), has %d", question.ID, rule.maxCorrect, correct)
	}
	return nil
}

// ValidateAnswerShape checks a parsed answer against its question's type and
// option set. Nothing is persisted when it fails.
func ValidateAnswerShape(question *types.Question, answer *types.Answer) error {
	switch question.Type {
	case types.TypeMultipleChoice, types.TypeTrueFalse:
		if answer.SelectedOptionID == nil {
			return apierr.InvalidResponseShape("question type %s requires selected_option_id", question.Type)
		}
		if len(answer.SelectedOptionIDs) > 0 {
			return apierr.InvalidResponseShape("question type %s takes a single option, not selected_option_ids", question.Type)
		}
		if question.Option(*answer.SelectedOptionID) == nil {
			return apierr.InvalidResponseShape("option %s does not belong to question %s", *answer.SelectedOptionID, question.ID)
		}
		return nil

	case types.TypeMultipleSelect:
		if answer.SelectedOptionID != nil {
			return apierr.InvalidResponseShape("question type %s takes selected_option_ids, not a single option", question.Type)
		}
		if len(answer.SelectedOptionIDs) == 0 {
			return apierr.InvalidResponseShape("question type %s requires a non-empty selected_option_ids", question.Type)
		}
		seen := make(map[uuid.UUID]bool, len(answer.SelectedOptionIDs))
		for _, id := range answer.SelectedOptionIDs {
			if seen[id] {
				return apierr.InvalidResponseShape("selected_option_ids contains duplicate option %s", id)
			}
			seen[id] = true
			if question.Option(id) == nil {
				return apierr.InvalidResponseShape("option %s does not belong to question %s", id, question.ID)
			}
		}
		return nil
	}
	return apierr.InvalidResponseShape("question %s has unsupported type %q", question.ID, question.Type)
}

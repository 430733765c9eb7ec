package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/brightmoss/quizcraft-backend/internal/domain/quiz"
	"github.com/brightmoss/quizcraft-backend/internal/http/response"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
	"github.com/brightmoss/quizcraft-backend/internal/services"
)

type QuizHandler struct {
	log     *logger.Logger
	quizSvc services.QuizService
}

func NewQuizHandler(log *logger.Logger, quizSvc services.QuizService) *QuizHandler {
	return &QuizHandler{
		log:     log.With("handler", "QuizHandler"),
		quizSvc: quizSvc,
	}
}

// Option correctness is serialized only when the service says the caller may
// see it; the raw domain structs never reach the wire here.
type quizDTO struct {
	ID                     uuid.UUID     `json:"id"`
	CourseID               uuid.UUID     `json:"course_id"`
	Title                  string        `json:"title"`
	Description            string        `json:"description"`
	TimeLimitMinutes       *int          `json:"time_limit_minutes,omitempty"`
	MaxAttempts            *int          `json:"max_attempts,omitempty"`
	PassingScore           float64       `json:"passing_score"`
	RandomizeQuestions     bool          `json:"randomize_questions"`
	ShowResultsImmediately bool          `json:"show_results_immediately"`
	AllowReview            bool          `json:"allow_review"`
	Questions              []questionDTO `json:"questions"`
}

type questionDTO struct {
	ID      uuid.UUID   `json:"id"`
	Index   int         `json:"index"`
	Text    string      `json:"text"`
	Type    string      `json:"type"`
	Points  float64     `json:"points"`
	Options []optionDTO `json:"options"`
}

type optionDTO struct {
	ID        uuid.UUID `json:"id"`
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	IsCorrect *bool     `json:"is_correct,omitempty"`
}

// GET /api/quizzes/:id
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid quiz id: %v", err))
		return
	}

	q, revealAnswers, err := h.quizSvc.GetForTaking(c.Request.Context(), quizID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"quiz": toQuizDTO(q, revealAnswers)})
}

func toQuizDTO(q *types.Quiz, revealAnswers bool) quizDTO {
	dto := quizDTO{
		ID:                     q.ID,
		CourseID:               q.CourseID,
		Title:                  q.Title,
		Description:            q.Description,
		TimeLimitMinutes:       q.TimeLimitMinutes,
		MaxAttempts:            q.MaxAttempts,
		PassingScore:           q.PassingScore,
		RandomizeQuestions:     q.RandomizeQuestions,
		ShowResultsImmediately: q.ShowResultsImmediately,
		AllowReview:            q.AllowReview,
		Questions:              make([]questionDTO, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		qdto := questionDTO{
			ID:      question.ID,
			Index:   question.Index,
			Text:    question.Text,
			Type:    question.Type,
			Points:  question.Points,
			Options: make([]optionDTO, 0, len(question.Options)),
		}
		for _, opt := range question.Options {
			odto := optionDTO{
				ID:    opt.ID,
				Index: opt.Index,
				Text:  opt.Text,
			}
			if revealAnswers {
				isCorrect := opt.IsCorrect
				odto.IsCorrect = &isCorrect
			}
			qdto.Options = append(qdto.Options, odto)
		}
		dto.Questions = append(dto.Questions, qdto)
	}
	return dto
}

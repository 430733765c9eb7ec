package handlers

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightmoss/quizcraft-backend/internal/http/response"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
	"github.com/brightmoss/quizcraft-backend/internal/services"
)

type AttemptHandler struct {
	log        *logger.Logger
	attemptSvc services.AttemptService
	statsSvc   services.StatsService
}

func NewAttemptHandler(log *logger.Logger, attemptSvc services.AttemptService, statsSvc services.StatsService) *AttemptHandler {
	return &AttemptHandler{
		log:        log.With("handler", "AttemptHandler"),
		attemptSvc: attemptSvc,
		statsSvc:   statsSvc,
	}
}

// POST /api/quizzes/:id/attempts
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid quiz id: %v", err))
		return
	}

	attempt, err := h.attemptSvc.Start(c.Request.Context(), quizID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"attempt": attempt})
}

type submitResponseRequest struct {
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Answer     json.RawMessage `json:"answer" binding:"required"`
}

// POST /api/attempts/:id/responses
func (h *AttemptHandler) SubmitResponse(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid attempt id: %v", err))
		return
	}
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondFromError(c, apierr.Validation("invalid request body: %v", err))
		return
	}

	resp, err := h.attemptSvc.Submit(c.Request.Context(), attemptID, req.QuestionID, req.Answer)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"response": resp})
}

// POST /api/attempts/:id/complete
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid attempt id: %v", err))
		return
	}

	attempt, err := h.attemptSvc.Complete(c.Request.Context(), attemptID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": attempt})
}

// GET /api/attempts/:id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid attempt id: %v", err))
		return
	}

	attempt, responses, err := h.attemptSvc.Get(c.Request.Context(), attemptID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": attempt, "responses": responses})
}

// GET /api/quizzes/:id/attempts
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid quiz id: %v", err))
		return
	}
	userID, err := optionalUserID(c)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}

	attempts, err := h.attemptSvc.ListForUser(c.Request.Context(), quizID, userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempts": attempts})
}

// GET /api/quizzes/:id/attempts/best
func (h *AttemptHandler) GetBestAttempt(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid quiz id: %v", err))
		return
	}
	userID, err := optionalUserID(c)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}

	attempt, err := h.statsSvc.BestAttempt(c.Request.Context(), quizID, userID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": attempt})
}

// optionalUserID reads the ?user_id= staff override; uuid.Nil means "the
// caller", resolved by the service layer.
func optionalUserID(c *gin.Context) (uuid.UUID, error) {
	raw := c.Query("user_id")
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid user_id: %v", err)
	}
	return id, nil
}

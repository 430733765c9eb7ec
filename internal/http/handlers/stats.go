package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightmoss/quizcraft-backend/internal/http/response"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/apierr"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
	"github.com/brightmoss/quizcraft-backend/internal/services"
)

type StatsHandler struct {
	log      *logger.Logger
	statsSvc services.StatsService
}

func NewStatsHandler(log *logger.Logger, statsSvc services.StatsService) *StatsHandler {
	return &StatsHandler{
		log:      log.With("handler", "StatsHandler"),
		statsSvc: statsSvc,
	}
}

// GET /api/quizzes/:id/statistics
func (h *StatsHandler) GetQuizStatistics(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondFromError(c, apierr.Validation("invalid quiz id: %v", err))
		return
	}

	stats, err := h.statsSvc.QuizStatistics(c.Request.Context(), quizID)
	if err != nil {
		response.RespondFromError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"statistics": stats})
}

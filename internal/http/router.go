package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/brightmoss/quizcraft-backend/internal/http/handlers"
	httpMW "github.com/brightmoss/quizcraft-backend/internal/http/middleware"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	QuizHandler    *httpH.QuizHandler
	AttemptHandler *httpH.AttemptHandler
	StatsHandler   *httpH.StatsHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	if cfg.QuizHandler != nil {
		api.GET("/quizzes/:id", cfg.QuizHandler.GetQuiz)
	}

	if cfg.AttemptHandler != nil {
		api.POST("/quizzes/:id/attempts", cfg.AttemptHandler.StartAttempt)
		api.GET("/quizzes/:id/attempts", cfg.AttemptHandler.ListAttempts)
		api.GET("/quizzes/:id/attempts/best", cfg.AttemptHandler.GetBestAttempt)
		api.GET("/attempts/:id", cfg.AttemptHandler.GetAttempt)
		api.POST("/attempts/:id/responses", cfg.AttemptHandler.SubmitResponse)
		api.POST("/attempts/:id/complete", cfg.AttemptHandler.CompleteAttempt)
	}

	if cfg.StatsHandler != nil {
		api.GET("/quizzes/:id/statistics", cfg.StatsHandler.GetQuizStatistics)
	}

	return r
}

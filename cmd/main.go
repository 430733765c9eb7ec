package main

import (
	"fmt"
	"os"
	"time"

	redisclient "github.com/brightmoss/quizcraft-backend/internal/clients/redis"
	"github.com/brightmoss/quizcraft-backend/internal/data/db"
	"github.com/brightmoss/quizcraft-backend/internal/data/repos"
	httpserver "github.com/brightmoss/quizcraft-backend/internal/http"
	httpH "github.com/brightmoss/quizcraft-backend/internal/http/handlers"
	httpMW "github.com/brightmoss/quizcraft-backend/internal/http/middleware"
	"github.com/brightmoss/quizcraft-backend/internal/pkg/logger"
	"github.com/brightmoss/quizcraft-backend/internal/services"
	"github.com/brightmoss/quizcraft-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	port := utils.GetEnv("PORT", "8080", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	statsCacheTTL := utils.GetEnvAsInt("STATS_CACHE_TTL_SECONDS", 60, log)

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Database migration failed", "error", err)
	}
	conn := dbService.DB()

	// Repos
	log.Info("Setting up repos...")
	quizRepo := repos.NewQuizRepo(conn, log)
	attemptRepo := repos.NewAttemptRepo(conn, log)
	responseRepo := repos.NewResponseRepo(conn, log)
	userRepo := repos.NewUserRepo(conn, log)

	// Clients
	statsCache := redisclient.NewCache(redisAddr, log)
	if statsCache == nil {
		log.Info("REDIS_ADDR not set, statistics cache disabled")
	}

	// Services
	log.Info("Setting up services...")
	quizService := services.NewQuizService(conn, log, quizRepo, attemptRepo)
	attemptService := services.NewAttemptService(conn, log, quizRepo, attemptRepo, responseRepo, userRepo)
	statsService := services.NewStatsService(conn, log, quizRepo, attemptRepo, responseRepo, userRepo, statsCache, time.Duration(statsCacheTTL)*time.Second)

	// HTTP
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, jwtSecretKey),
		QuizHandler:    httpH.NewQuizHandler(log, quizService),
		AttemptHandler: httpH.NewAttemptHandler(log, attemptService, statsService),
		StatsHandler:   httpH.NewStatsHandler(log, statsService),
		HealthHandler:  httpH.NewHealthHandler(),
	})

	log.Info("Starting HTTP server", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatal("HTTP server exited", "error", err)
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lumelearn/quiz-engine/internal/config"
	"github.com/lumelearn/quiz-engine/internal/handler"
	"github.com/lumelearn/quiz-engine/internal/middleware"
	"github.com/lumelearn/quiz-engine/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz      *handler.QuizHandler
	Attempt   *handler.AttemptHandler
	Analytics *handler.AnalyticsHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	secret := cfg.IdentityJWTSecret

	// Rate limiter for attempt starts, which trigger question generation
	// against the external provider (10 per minute per IP).
	startLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Lecturer Group (JWT, lecturer role) ────────────────────────
	lecturerAPI := router.Group("/api/v1")
	lecturerAPI.Use(middleware.RequireLecturerJWT(secret))
	{
		// Quiz authoring
		lecturerAPI.POST("/quizzes", handlers.Quiz.CreateQuiz)
		lecturerAPI.GET("/quizzes", handlers.Quiz.ListQuizzes)
		lecturerAPI.GET("/quizzes/:quiz_id", handlers.Quiz.GetQuiz)
		lecturerAPI.PUT("/quizzes/:quiz_id", handlers.Quiz.UpdateQuiz)
		lecturerAPI.POST("/quizzes/:quiz_id/deactivate", handlers.Quiz.DeactivateQuiz)

		// Manual grading
		lecturerAPI.POST("/attempts/:attempt_id/grade", handlers.Attempt.ManualGrade)

		// Analytics
		lecturerAPI.GET("/quizzes/:quiz_id/statistics", handlers.Analytics.GetQuizStatistics)
		lecturerAPI.GET("/analytics/courses/:course_id/semesters/:semester_id", handlers.Analytics.GetClassPerformance)
	}

	// ─── 2. Student Group (JWT, student role) ──────────────────────────
	studentAPI := router.Group("/api/v1")
	studentAPI.Use(middleware.RequireStudentJWT(secret))
	{
		studentAPI.POST("/quizzes/:quiz_id/attempts", startLimiter.Middleware(), handlers.Attempt.StartAttempt)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.Attempt.SubmitAttempt)
		studentAPI.GET("/attempts", handlers.Attempt.ListMyAttempts)
	}

	// ─── 3. Shared Group (JWT, any role) ───────────────────────────────
	// Students read their own attempts, lecturers read any. The handler
	// enforces ownership for the student role.
	sharedAPI := router.Group("/api/v1")
	sharedAPI.Use(middleware.RequireJWT(secret))
	{
		sharedAPI.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
	}

	return router
}

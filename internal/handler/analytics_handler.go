package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumelearn/quiz-engine/internal/response"
	"github.com/lumelearn/quiz-engine/internal/service"
)

// AnalyticsHandler serves aggregate reporting endpoints.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// GetQuizStatistics godoc
// GET /api/v1/quizzes/:quiz_id/statistics
// Returns the pass/fail aggregate over a quiz's graded attempts. A quiz
// with no attempts yields all-zero statistics.
func (h *AnalyticsHandler) GetQuizStatistics(c *gin.Context) {
	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.analyticsService.QuizStatistics(c.Request.Context(), quizID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"statistics": stats})
}

// GetClassPerformance godoc
// GET /api/v1/analytics/courses/:course_id/semesters/:semester_id
// Returns per-quiz and per-student rollups for a course and semester.
func (h *AnalyticsHandler) GetClassPerformance(c *gin.Context) {
	courseID, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || courseID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	semesterID, err := strconv.Atoi(c.Param("semester_id"))
	if err != nil || semesterID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	perf, err := h.analyticsService.ClassPerformance(c.Request.Context(), courseID, semesterID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"performance": perf})
}

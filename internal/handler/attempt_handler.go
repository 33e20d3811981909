package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lumelearn/quiz-engine/internal/middleware"
	"github.com/lumelearn/quiz-engine/internal/model"
	"github.com/lumelearn/quiz-engine/internal/response"
	"github.com/lumelearn/quiz-engine/internal/service"
	"github.com/lumelearn/quiz-engine/internal/validator"
)

// AttemptHandler handles the attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttempt godoc
// POST /api/v1/quizzes/:quiz_id/attempts
// Starts a new attempt for the authenticated student. The quiz must be
// active and inside its scheduling window, and the student must not
// already have an attempt in progress for it.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	quizID, err := uuid.Parse(c.Param("quiz_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), quizID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuizNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrQuizNotActive):
			response.Fail(c, http.StatusForbidden, response.ErrQuizNotActive)
		case errors.Is(err, service.ErrQuizNotYetOpen):
			response.Fail(c, http.StatusForbidden, response.ErrQuizNotYetOpen)
		case errors.Is(err, service.ErrQuizExpired):
			response.Fail(c, http.StatusForbidden, response.ErrQuizExpired)
		case errors.Is(err, service.ErrDuplicateAttempt):
			response.Fail(c, http.StatusConflict, response.ErrDuplicateAttempt)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt.Sanitized()})
}

// SubmitAttempt godoc
// POST /api/v1/attempts/:attempt_id/submit
// Grades the attempt and moves it to a terminal state. A submission past
// the time limit is still graded but recorded as timed out.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if !h.ownsAttempt(c, attemptID, claims.UserID) {
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), attemptID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrInvalidAttemptState):
			response.Fail(c, http.StatusConflict, response.ErrInvalidAttemptState)
		case errors.Is(err, service.ErrMalformedSubmission):
			response.Fail(c, http.StatusBadRequest, response.ErrMalformedSubmission)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetAttempt godoc
// GET /api/v1/attempts/:attempt_id
// Students may only read their own attempts. An in-progress attempt is
// returned without answer keys.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if claims.Role == middleware.RoleStudent && attempt.StudentID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	if attempt.Status == model.AttemptStatusInProgress {
		response.Success(c, http.StatusOK, gin.H{"attempt": attempt.Sanitized()})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ManualGrade godoc
// POST /api/v1/attempts/:attempt_id/grade
// Lecturer override: replaces the grade fields and marks the attempt
// completed regardless of its prior status.
func (h *AttemptHandler) ManualGrade(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ManualGradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.ManualGrade(c.Request.Context(), attemptID, *req.Score, *req.IsPassed, &req.Feedback, req.Analysis)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListMyAttempts godoc
// GET /api/v1/attempts
// Lists the authenticated student's attempt history.
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attemptService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// ownsAttempt verifies the attempt belongs to the student, writing the
// error response itself when it does not.
func (h *AttemptHandler) ownsAttempt(c *gin.Context, attemptID uuid.UUID, studentID int) bool {
	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return false
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return false
	}
	if attempt.StudentID != studentID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return false
	}
	return true
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumelearn/quiz-engine/internal/config"
	"github.com/lumelearn/quiz-engine/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// statsCacheTTL bounds staleness of the cached aggregates.
const statsCacheTTL = 30 * time.Second

// QuizStatistics is the aggregate over a quiz's graded attempts.
type QuizStatistics struct {
	TotalAttempts  int     `json:"total_attempts"`
	PassedAttempts int     `json:"passed_attempts"`
	FailedAttempts int     `json:"failed_attempts"`
	PassRate       float64 `json:"pass_rate"`
	AverageScore   float64 `json:"average_score"`
}

// QuizPerformance is one quiz's rollup within a class performance report.
type QuizPerformance struct {
	QuizID    uuid.UUID      `json:"quiz_id"`
	QuizTitle string         `json:"quiz_title"`
	Stats     QuizStatistics `json:"stats"`
}

// StudentPerformance is one student's rollup within a class performance report.
type StudentPerformance struct {
	StudentID int            `json:"student_id"`
	Stats     QuizStatistics `json:"stats"`
}

// ClassPerformance groups a course/semester's graded attempts by quiz and
// by student.
type ClassPerformance struct {
	PerQuiz    []QuizPerformance    `json:"per_quiz"`
	PerStudent []StudentPerformance `json:"per_student"`
	Overall    QuizStatistics       `json:"overall"`
}

// gradedLister is the slice of AttemptRepository the aggregator needs.
type gradedLister interface {
	ListGradedByQuiz(ctx context.Context, quizID uuid.UUID) ([]repository.GradedAttempt, error)
	ListGradedByCourse(ctx context.Context, courseID, semesterID int) ([]repository.GradedAttempt, error)
}

// AnalyticsService computes quiz- and class-level aggregates over graded
// attempts. Results are cached in Redis with a short TTL; cache failures
// fall through to the database.
type AnalyticsService struct {
	attempts gradedLister
	cache    *redis.Client
	log      zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService. cache may be nil to
// disable caching.
func NewAnalyticsService(attempts gradedLister, cache *redis.Client, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		attempts: attempts,
		cache:    cache,
		log:      log.With().Str("component", "analytics_service").Logger(),
	}
}

// QuizStatistics aggregates one quiz's graded attempts. A quiz with no
// attempts yields all-zero statistics, never an error.
func (s *AnalyticsService) QuizStatistics(ctx context.Context, quizID uuid.UUID) (*QuizStatistics, error) {
	cacheKey := config.CacheKey.QuizStatisticsKey(quizID.String())
	if cached := s.fromCache(ctx, cacheKey, &QuizStatistics{}); cached != nil {
		return cached.(*QuizStatistics), nil
	}

	graded, err := s.attempts.ListGradedByQuiz(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("list graded attempts: %w", err)
	}

	stats := computeStats(graded)
	s.toCache(ctx, cacheKey, stats)
	return &stats, nil
}

// ClassPerformance aggregates a course/semester's graded attempts, first
// by quiz then by student, with an overall rollup.
func (s *AnalyticsService) ClassPerformance(ctx context.Context, courseID, semesterID int) (*ClassPerformance, error) {
	cacheKey := config.CacheKey.ClassPerformanceKey(courseID, semesterID)
	if cached := s.fromCache(ctx, cacheKey, &ClassPerformance{}); cached != nil {
		return cached.(*ClassPerformance), nil
	}

	graded, err := s.attempts.ListGradedByCourse(ctx, courseID, semesterID)
	if err != nil {
		return nil, fmt.Errorf("list graded attempts: %w", err)
	}

	perf := groupPerformance(graded)
	s.toCache(ctx, cacheKey, perf)
	return perf, nil
}

// computeStats derives the four metrics from graded attempts. Divisions
// guard the empty case: no attempts means zeros, never NaN.
func computeStats(graded []repository.GradedAttempt) QuizStatistics {
	stats := QuizStatistics{TotalAttempts: len(graded)}
	if len(graded) == 0 {
		return stats
	}

	var scoreSum float64
	for _, g := range graded {
		if g.IsPassed {
			stats.PassedAttempts++
		} else {
			stats.FailedAttempts++
		}
		scoreSum += g.Score
	}
	stats.PassRate = float64(stats.PassedAttempts) / float64(stats.TotalAttempts) * 100
	stats.AverageScore = scoreSum / float64(stats.TotalAttempts)
	return stats
}

// groupPerformance builds per-quiz and per-student rollups in first-seen
// order, which the repository keeps stable.
func groupPerformance(graded []repository.GradedAttempt) *ClassPerformance {
	byQuiz := map[uuid.UUID][]repository.GradedAttempt{}
	byStudent := map[int][]repository.GradedAttempt{}
	quizTitles := map[uuid.UUID]string{}
	var quizOrder []uuid.UUID
	var studentOrder []int

	for _, g := range graded {
		if _, seen := byQuiz[g.QuizID]; !seen {
			quizOrder = append(quizOrder, g.QuizID)
			quizTitles[g.QuizID] = g.QuizTitle
		}
		byQuiz[g.QuizID] = append(byQuiz[g.QuizID], g)

		if _, seen := byStudent[g.StudentID]; !seen {
			studentOrder = append(studentOrder, g.StudentID)
		}
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}

	perf := &ClassPerformance{
		PerQuiz:    make([]QuizPerformance, 0, len(quizOrder)),
		PerStudent: make([]StudentPerformance, 0, len(studentOrder)),
		Overall:    computeStats(graded),
	}
	for _, id := range quizOrder {
		perf.PerQuiz = append(perf.PerQuiz, QuizPerformance{
			QuizID:    id,
			QuizTitle: quizTitles[id],
			Stats:     computeStats(byQuiz[id]),
		})
	}
	for _, id := range studentOrder {
		perf.PerStudent = append(perf.PerStudent, StudentPerformance{
			StudentID: id,
			Stats:     computeStats(byStudent[id]),
		})
	}
	return perf
}

// fromCache returns dst populated from the cache, or nil on miss/error.
func (s *AnalyticsService) fromCache(ctx context.Context, key string, dst any) any {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil
	}
	return dst
}

// toCache stores the value with a short TTL. Failures are logged only.
func (s *AnalyticsService) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, statsCacheTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache statistics")
	}
}

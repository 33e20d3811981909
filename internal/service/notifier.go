package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumelearn/quiz-engine/internal/config"
	"github.com/redis/go-redis/v9"
)

// Notification event types consumed by the dispatch worker.
const (
	EventQuizPublished = "quiz_published"
	EventResultReady   = "result_ready"
)

// Event is a notification intent. The engine emits intent only; delivery
// belongs to the external notification service.
type Event struct {
	Type      string    `json:"type"`
	QuizID    string    `json:"quiz_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	StudentID int       `json:"student_id,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Notifier queues notification intents.
type Notifier interface {
	Emit(ctx context.Context, ev Event) error
}

// RedisNotifier pushes events onto the Redis queue drained by the
// notification worker.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier creates a RedisNotifier.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Emit enqueues the event.
func (n *RedisNotifier) Emit(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.RPush(ctx, config.WorkerKey.NotifyEventsQueue, raw).Err()
}

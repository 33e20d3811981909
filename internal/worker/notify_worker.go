package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/lumelearn/quiz-engine/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	NotifyPollTimeout     = 1 * time.Second
	NotifyDispatchTimeout = 5 * time.Second
)

// NotifyWorker drains the notification intent queue and posts events to
// the external notification service. Delivery is fire-and-forget: a
// failed dispatch is requeued once, then dropped with a log line. Grading
// correctness never depends on this worker.
type NotifyWorker struct {
	rdb        *redis.Client
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

// NewNotifyWorker creates a new NotifyWorker. An empty webhookURL turns
// the worker into a queue drain that only logs events.
func NewNotifyWorker(rdb *redis.Client, webhookURL string, log zerolog.Logger) *NotifyWorker {
	return &NotifyWorker{
		rdb:        rdb,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: NotifyDispatchTimeout},
		log:        log.With().Str("component", "notify_worker").Logger(),
	}
}

// queuedEvent mirrors service.Event plus the local retry counter.
type queuedEvent struct {
	Type      string    `json:"type"`
	QuizID    string    `json:"quiz_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	StudentID int       `json:"student_id,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
	Retries   int       `json:"retries,omitempty"`
}

// Start runs the dispatch loop until ctx is cancelled.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotifyWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("NotifyWorker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, NotifyPollTimeout, config.WorkerKey.NotifyEventsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var ev queuedEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload, dropping")
				continue
			}

			w.dispatch(ctx, &ev)
		}
	}
}

func (w *NotifyWorker) dispatch(ctx context.Context, ev *queuedEvent) {
	if w.webhookURL == "" {
		w.log.Debug().Str("type", ev.Type).Str("quiz_id", ev.QuizID).Msg("No webhook configured, event dropped")
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		w.log.Error().Err(err).Msg("Marshal event failed, dropping")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		w.log.Error().Err(err).Msg("Build webhook request failed, dropping")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode < 300 {
			w.log.Debug().Str("type", ev.Type).Str("quiz_id", ev.QuizID).Msg("Event dispatched")
			return
		}
		w.log.Warn().Int("status", resp.StatusCode).Str("type", ev.Type).Msg("Webhook rejected event")
	} else {
		w.log.Warn().Err(err).Str("type", ev.Type).Msg("Webhook dispatch failed")
	}

	// One retry via requeue, then drop. Notifications are best-effort.
	if ev.Retries >= 1 {
		w.log.Warn().Str("type", ev.Type).Str("quiz_id", ev.QuizID).Msg("Event dropped after retry")
		return
	}
	ev.Retries++
	raw, _ := json.Marshal(ev)
	if err := w.rdb.RPush(ctx, config.WorkerKey.NotifyEventsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("Requeue failed, event lost")
	}
}

package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event names emitted over the sink, one per lifecycle transition.
const (
	EventAdded     = "job:added"
	EventExecute   = "job:execute"
	EventCompleted = "job:completed"
	EventFailed    = "job:failed"
	EventRetry     = "job:retry"
)

// JobEvent is the payload published on every lifecycle transition.
type JobEvent struct {
	Name    string    `json:"name"`
	JobID   string    `json:"jobId"`
	JobType string    `json:"jobType"`
	Attempt int       `json:"attempt"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// EventSink receives job lifecycle events. Publish must not block the
// processing loop for long; failures are the sink's problem to report.
type EventSink interface {
	Publish(ctx context.Context, ev JobEvent)
}

// RedisSink publishes lifecycle events on Redis Pub/Sub, one channel per
// event name, for dashboards and other services to subscribe to.
type RedisSink struct {
	rdb *redis.Client
}

// NewRedisSink wraps an existing client.
func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb}
}

// Publish marshals the event and publishes it on its channel. Publish
// errors are logged and swallowed: event delivery is best-effort.
func (s *RedisSink) Publish(ctx context.Context, ev JobEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[queue] marshal event %s: %v", ev.Name, err)
		return
	}
	if err := s.rdb.Publish(ctx, ev.Name, payload).Err(); err != nil {
		log.Printf("[queue] publish %s failed: %v", ev.Name, err)
	}
}

// NopSink discards all events. Used in tests and when Redis is absent.
type NopSink struct{}

// Publish does nothing.
func (NopSink) Publish(context.Context, JobEvent) {}

// Package events publishes fire-and-forget notifications about completed
// reports. Publishing is optional and best-effort: a failed publish is
// logged by the caller, never surfaced to the client.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// ReportCreated is emitted after a report has been generated and stored.
type ReportCreated struct {
	UserID    int       `json:"user_id"`
	UserIDStr string    `json:"user_id_str"`
	Locator   string    `json:"locator"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with a stable API bound to one topic.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher for the provided backend and topic.
func NewPublisher(backend Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// PublishReportCreated sends one report.created event.
func (p *Publisher) PublishReportCreated(ctx context.Context, event ReportCreated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.topic, data, map[string]string{
		"event": "report.created",
	})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

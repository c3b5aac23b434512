package publisher

import (
	"context"
	"errors"
)

// ActivityEvent records one finished extraction for auditing
type ActivityEvent struct {
	ID         string `json:"id"`
	CallerID   string `json:"caller_id,omitempty"`
	SourceID   string `json:"source_id"`
	URL        string `json:"url"`
	DetailURL  string `json:"detail_url"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	AtMs       int64  `json:"at_ms"`
}

// Publisher represents a sink for activity events
type Publisher interface {
	// Publish delivers one event
	Publish(ctx context.Context, event ActivityEvent) error

	// Close releases the sink
	Close() error
}

// Multi fans every event out to all publishers
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package publisher

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// FilePublisher appends one line per event to a log file
type FilePublisher struct {
	path string
	mu   sync.Mutex
}

// NewFilePublisher creates a publisher writing to path
func NewFilePublisher(path string) *FilePublisher {
	return &FilePublisher{path: path}
}

// Publish appends the event with its timestamp, source and outcome
func (f *FilePublisher) Publish(_ context.Context, event ActivityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	defer file.Close()

	timestamp := time.UnixMilli(event.AtMs).Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%s] [%s] %s %s %dms", timestamp, event.SourceID, event.Status, event.URL, event.DurationMs)
	if event.CallerID != "" {
		line += " caller=" + event.CallerID
	}
	if event.Error != "" {
		line += " error=" + event.Error
	}
	_, err = file.WriteString(line + "\n")
	return err
}

func (f *FilePublisher) Close() error { return nil }

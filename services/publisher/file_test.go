package publisher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePublisher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	p := NewFilePublisher(path)

	err := p.Publish(context.Background(), ActivityEvent{
		SourceID:   "javbus",
		URL:        "https://www.javbus.com/IPX-156",
		Status:     "error",
		Error:      "timed out",
		CallerID:   "user-1",
		DurationMs: 12,
		AtMs:       time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), ActivityEvent{SourceID: "jable", Status: "success"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[javbus] error https://www.javbus.com/IPX-156 12ms caller=user-1 error=timed out")
	assert.Contains(t, string(data), "[jable] success")
}

type failing struct{ closed bool }

func (f *failing) Publish(context.Context, ActivityEvent) error { return errors.New("down") }
func (f *failing) Close() error {
	f.closed = true
	return nil
}

func TestMultiPublishesToEverySink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	bad := &failing{}
	m := Multi{bad, NewFilePublisher(path)}

	err := m.Publish(context.Background(), ActivityEvent{SourceID: "generic", Status: "cached"})
	assert.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Contains(t, string(data), "[generic] cached")

	require.NoError(t, m.Close())
	assert.True(t, bad.closed)
}

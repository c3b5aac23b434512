package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/cache"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw     string
		want    Location
		wantErr bool
	}{
		{raw: "backup.json", want: Location{Key: "backup.json"}},
		{raw: "/tmp/x/backup.json", want: Location{Key: "/tmp/x/backup.json"}},
		{raw: "s3://snaps/daily/cache.json", want: Location{Bucket: "snaps", Key: "daily/cache.json"}},
		{raw: "s3://snaps", wantErr: true},
		{raw: "s3:///key", wantErr: true},
		{raw: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStorage(t.TempDir())

	snap := &cache.Snapshot{
		Version:      cache.SnapshotVersion,
		ExportedAtMs: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Backend:      "memory",
		Entries: []cache.Entry{{
			Key:         cache.KeyFor("https://www.javbus.com/ABC-123"),
			URL:         "https://www.javbus.com/ABC-123",
			Payload:     json.RawMessage(`{"title":"x"}`),
			StoredAtMs:  1,
			ExpiresAtMs: 2,
		}},
	}
	require.NoError(t, Write(ctx, fs, "nested/cache.json", snap))

	_, err := os.Stat(filepath.Join(fs.Dir, "nested", "cache.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	got, err := Read(ctx, fs, "nested/cache.json")
	require.NoError(t, err)
	assert.Equal(t, snap.Version, got.Version)
	assert.Equal(t, snap.Backend, got.Backend)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, snap.Entries[0].Key, got.Entries[0].Key)
	assert.JSONEq(t, `{"title":"x"}`, string(got.Entries[0].Payload))
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs := NewFileStorage(dir)

	_, err := Read(ctx, fs, "missing.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeCache))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
	_, err = Read(ctx, fs, "bad.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeCache))
}

func TestOpenPicksStorage(t *testing.T) {
	ctx := context.Background()
	cfg := config.LoadConfig()

	s, err := Open(ctx, cfg, Location{Key: "local.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	cfg.S3Endpoint = "http://localhost:9000"
	cfg.S3User = "admin"
	cfg.S3Password = "password"
	s, err = Open(ctx, cfg, Location{Bucket: "snaps", Key: "k.json"})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s)
}

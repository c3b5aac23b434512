// Package snapshot persists cache export documents to a local file or an
// S3-compatible bucket.
package snapshot

import (
	"context"
	"encoding/json"
	"strings"

	"sjsage522/metaworker/config"
	"sjsage522/metaworker/pkg/errors"
	"sjsage522/metaworker/services/cache"
)

// Storage saves and loads raw snapshot documents by key
type Storage interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

const s3Scheme = "s3://"

// Location is a parsed snapshot destination
type Location struct {
	Bucket string // empty for local files
	Key    string
}

// ParseLocation accepts a local path or s3://bucket/key
func ParseLocation(raw string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, errors.NewValidation("snapshot", "location is empty")
	}
	if !strings.HasPrefix(raw, s3Scheme) {
		return Location{Key: raw}, nil
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(raw, s3Scheme), "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return Location{}, errors.NewValidation("snapshot", "s3 location must look like s3://bucket/key: "+raw)
	}
	return Location{Bucket: bucket, Key: strings.TrimPrefix(key, "/")}, nil
}

// Open returns the storage serving loc
func Open(ctx context.Context, cfg *config.Config, loc Location) (Storage, error) {
	if loc.Bucket == "" {
		return NewFileStorage(""), nil
	}
	s, err := NewS3Storage(ctx, S3Options{
		Bucket:   loc.Bucket,
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.S3Region,
		User:     cfg.S3User,
		Password: cfg.S3Password,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Write encodes snap and saves it under key
func Write(ctx context.Context, s Storage, key string, snap *cache.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.NewCache("snapshot", "encode snapshot", err)
	}
	return s.Save(ctx, key, data)
}

// Read loads and decodes the snapshot saved under key
func Read(ctx context.Context, s Storage, key string) (*cache.Snapshot, error) {
	data, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	var snap cache.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.NewCache("snapshot", "decode snapshot "+key, err)
	}
	return &snap, nil
}

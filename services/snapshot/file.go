package snapshot

import (
	"context"
	"os"
	"path/filepath"

	"sjsage522/metaworker/pkg/errors"
)

// FileStorage keeps snapshots on the local filesystem. Relative keys are
// resolved against Dir.
type FileStorage struct {
	Dir string
}

func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Dir: dir}
}

func (f *FileStorage) path(key string) string {
	if f.Dir == "" || filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(f.Dir, key)
}

// Save writes through a temp file so a crash never leaves half a snapshot
func (f *FileStorage) Save(ctx context.Context, key string, data []byte) error {
	p := f.path(key)
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.NewCache("snapshot", "create directory "+dir, err)
		}
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewCache("snapshot", "write "+tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return errors.NewCache("snapshot", "rename "+tmp, err)
	}
	return nil
}

func (f *FileStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return nil, errors.NewCache("snapshot", "read "+key, err)
	}
	return data, nil
}

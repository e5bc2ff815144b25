package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-hclog"
)

// lockRetryDelay is how often a blocked FileLocker polls the lock file.
const lockRetryDelay = 25 * time.Millisecond

var _ Locker = (*FileLocker)(nil)

// FileLocker serializes computations between processes on one host with
// one lock file per key.
type FileLocker struct {
	dir    string
	logger hclog.Logger
}

// NewFileLocker creates a locker keeping its lock files in dir.
func NewFileLocker(dir string, logger hclog.Logger) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FileLocker{dir: dir, logger: logger.Named("file-lock")}, nil
}

// Lock acquires the lock file for key.
func (l *FileLocker) Lock(ctx context.Context, key string) (func(), error) {
	fl := flock.New(l.path(key))

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to acquire lock for %s", key)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			l.logger.Warn("failed to release lock", "key", key, "error", err)
		}
	}, nil
}

// path hashes the key so arbitrary keys map to valid file names.
func (l *FileLocker) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(l.dir, hex.EncodeToString(sum[:16])+".lock")
}

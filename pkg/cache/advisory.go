package cache

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Locker = (*AdvisoryLocker)(nil)

// AdvisoryLocker serializes computations across processes with PostgreSQL
// session advisory locks. Each held lock pins one pool connection.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger hclog.Logger
}

// NewAdvisoryLocker connects a pool for advisory locks.
func NewAdvisoryLocker(ctx context.Context, connString string, logger hclog.Logger) (*AdvisoryLocker, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &AdvisoryLocker{pool: pool, logger: logger.Named("advisory-lock")}, nil
}

// Lock takes the advisory lock derived from key.
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtextextended($1, 0))", key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take advisory lock: %w", err)
	}

	return func() {
		// The caller's context may already be done.
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtextextended($1, 0))", key); err != nil {
			l.logger.Warn("failed to release advisory lock, dropping connection", "key", key, "error", err)
			// Closing the session releases every lock it held.
			_ = conn.Conn().Close(context.Background())
		}
		conn.Release()
	}, nil
}

// Close closes the pool.
func (l *AdvisoryLocker) Close() {
	l.pool.Close()
}

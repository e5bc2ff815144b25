package database

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "postgres", cfg: Config{Host: "localhost", DBName: "wiki"}},
		{name: "postgres without host", cfg: Config{DBName: "wiki"}, wantErr: "host is required"},
		{name: "postgres without dbname", cfg: Config{Host: "localhost"}, wantErr: "dbname is required"},
		{name: "sqlite", cfg: Config{Driver: DriverSQLite, Path: ":memory:"}},
		{name: "sqlite without path", cfg: Config{Driver: DriverSQLite}, wantErr: "path is required"},
		{name: "unknown driver", cfg: Config{Driver: "mysql"}, wantErr: "unsupported database driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", User: "wiki", Password: "secret", DBName: "wiki"}
	cfg.SetDefaults()
	assert.Equal(t, "host=db port=5432 user=wiki password=secret dbname=wiki sslmode=disable", cfg.DSN())
}

// TestConnectSQLite tests that connection pool settings are applied.
func TestConnectSQLite(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Path: ":memory:", MaxOpenConns: 3}, hclog.NewNullLogger())
	require.NoError(t, err)

	poolStats, err := GetPoolStats(db)
	require.NoError(t, err)
	assert.Equal(t, 3, poolStats.MaxOpenConnections)
	assert.Equal(t, poolStats.OpenConnections, poolStats.InUse+poolStats.Idle, "open = in-use + idle")
}

func TestGormLogger_IgnoresRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	log := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Trace})
	l := NewGormLogger(log).LogMode(logger.Error)

	fc := func() (string, int64) { return "SELECT 1", 0 }
	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), fc, assert.AnError)
	assert.Contains(t, buf.String(), "database query failed")
}

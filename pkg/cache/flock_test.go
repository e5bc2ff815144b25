package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLocker(t *testing.T) {
	ctx := context.Background()
	locker, err := NewFileLocker(t.TempDir(), nil)
	require.NoError(t, err)

	unlock, err := locker.Lock(ctx, "wiki:page:page:1.3:Main_Page/en.md")
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(timeoutCtx, "wiki:page:page:1.3:Main_Page/en.md")
	assert.Error(t, err)

	unlockOther, err := locker.Lock(ctx, "wiki:page:page:1.3:Main_Page/id.md")
	require.NoError(t, err)
	unlockOther()

	unlock()

	unlock, err = locker.Lock(ctx, "wiki:page:page:1.3:Main_Page/en.md")
	require.NoError(t, err)
	unlock()
}

func TestFileLocker_PathIsStable(t *testing.T) {
	locker, err := NewFileLocker(t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, locker.path("a"), locker.path("a"))
	assert.NotEqual(t, locker.path("a"), locker.path("b"))
}

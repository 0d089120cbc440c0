package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsSQLiteConflictError(nil))
	assert.False(t, IsSQLiteConflictError(errors.New("no such table")))
	assert.True(t, IsSQLiteConflictError(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsSQLiteConflictError(errors.New("exec: database is locked")))
}

func TestRetryPolicyRetriesConflicts(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), "append", func() error {
		calls++
		if calls < 3 {
			return errors.New("SQLITE_BUSY")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicyGivesUp(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond}
	calls := 0
	busy := errors.New("database is locked")
	err := p.Do(context.Background(), "append", func() error {
		calls++
		return busy
	})
	require.ErrorIs(t, err, busy)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, calls)
}

func TestRetryPolicyStopsOnOtherErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("constraint failed")
	calls := 0
	err := DefaultRetryPolicy.Do(context.Background(), "append", func() error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicyHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{Attempts: 5, BaseDelay: time.Hour}
	err := p.Do(ctx, "append", func() error { return errors.New("SQLITE_BUSY") })
	require.ErrorIs(t, err, context.Canceled)
}

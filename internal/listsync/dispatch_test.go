package listsync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBulkPartialFailure(t *testing.T) {
	var seen []string
	result := RunBulk("Deleted", "task", []string{"1", "2", "3", "4", "5"}, func(id string) error {
		seen = append(seen, id)
		if id == "2" || id == "4" {
			return errors.New("locked")
		}
		return nil
	})

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, seen, "every id attempted in order")
	assert.Equal(t, "Deleted 3 of 5 tasks", result.Summary())
	assert.True(t, result.Failed())
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "2", result.Failures[0].ID)
	assert.EqualError(t, result.FirstError(), "locked")
}

func TestBulkSummarySingular(t *testing.T) {
	result := RunBulk("Dismissed", "item", []string{"x"}, func(string) error { return nil })
	assert.Equal(t, "Dismissed 1 of 1 item", result.Summary())
	assert.False(t, result.Failed())
	assert.NoError(t, result.FirstError())
}

func TestDuplicateGuardWindow(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(10*time.Second, func() time.Time { return now })

	require.NoError(t, guard.Check("buy milk"))

	now = now.Add(5 * time.Second)
	assert.ErrorIs(t, guard.Check("  buy   milk\n"), ErrDuplicate)
	assert.NoError(t, guard.Check("buy bread"))

	// The rejected attempt at +5s does not extend the window.
	now = now.Add(5 * time.Second)
	assert.NoError(t, guard.Check("buy milk"))
}

func TestDuplicateGuardReleaseAllowsRetry(t *testing.T) {
	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	guard := NewDuplicateGuard(10*time.Second, func() time.Time { return now })

	require.NoError(t, guard.Check("buy milk"))
	guard.Release(" buy milk ")
	now = now.Add(time.Second)
	require.NoError(t, guard.Check("buy milk"))
	assert.ErrorIs(t, guard.Check("buy milk"), ErrDuplicate)
}

func TestDuplicateGuardDefaults(t *testing.T) {
	guard := NewDuplicateGuard(0, nil)
	assert.Equal(t, DefaultDuplicateWindow, guard.window)
	require.NoError(t, guard.Check("a"))
	assert.ErrorIs(t, guard.Check("a"), ErrDuplicate)
}

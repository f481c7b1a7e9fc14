package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Allows(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	w, err := ParseWindow("* 8-21 * * 1-5", seoul)
	require.NoError(t, err)

	// 2024-03-05 is a Tuesday.
	assert.True(t, w.Allows(time.Date(2024, 3, 5, 8, 0, 0, 0, seoul)))
	assert.True(t, w.Allows(time.Date(2024, 3, 5, 21, 59, 30, 0, seoul)))
	assert.False(t, w.Allows(time.Date(2024, 3, 5, 22, 0, 0, 0, seoul)))
	assert.False(t, w.Allows(time.Date(2024, 3, 5, 7, 59, 59, 0, seoul)))
	assert.False(t, w.Allows(time.Date(2024, 3, 9, 12, 0, 0, 0, seoul)))

	// 00:30 UTC is 09:30 in Seoul.
	assert.True(t, w.Allows(time.Date(2024, 3, 5, 0, 30, 0, 0, time.UTC)))
}

func TestWindow_EmptyAllowsAll(t *testing.T) {
	w, err := ParseWindow("  ", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, w)
	assert.True(t, w.Allows(time.Now()))
	assert.Equal(t, "always", w.String())
}

func TestWindow_Invalid(t *testing.T) {
	_, err := ParseWindow("every day", time.UTC)
	assert.Error(t, err)
}

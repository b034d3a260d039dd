package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		got, err := ParseTimestamp("2025-03-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("rfc3339 converted to utc", func(t *testing.T) {
		got, err := ParseTimestamp("2025-03-01T10:00:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), got)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseTimestamp("yesterday")
		assert.Error(t, err)
	})
}

func TestContextString(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	got := ContextString(ctx, RequestIDKey)
	require.NotNil(t, got)
	assert.Equal(t, "req-1", *got)

	assert.Nil(t, ContextString(ctx, UserAgentKey))
	assert.Nil(t, ContextString(context.WithValue(ctx, IPAddressKey, ""), IPAddressKey))
}

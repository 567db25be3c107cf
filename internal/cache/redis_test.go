package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilStoreDegrades(t *testing.T) {
	ctx := context.Background()
	var s *Store

	assert.False(t, s.Enabled())
	assert.Nil(t, s.Client())

	s.SetJSON(ctx, DashboardKey, map[string]int{"a": 1}, time.Minute)
	var out map[string]int
	assert.False(t, s.GetJSON(ctx, DashboardKey, &out))

	s.InvalidateDresses(ctx)
	s.InvalidateDashboard(ctx)
	assert.NoError(t, s.Ping(ctx))
	assert.False(t, s.IsHealthy())
	assert.NoError(t, s.Close())
}

func TestInitWithoutAddressIsDisabled(t *testing.T) {
	s, err := Init("", "", 0)
	require.NoError(t, err)
	assert.False(t, s.Enabled())
	_, ok := s.GetCached(context.Background(), DressListKey)
	assert.False(t, ok)
}

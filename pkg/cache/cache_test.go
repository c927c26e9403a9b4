package cache_test

import (
	"testing"
	"time"

	"github.com/soundprediction/go-chatforge/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerCacheRoundTrip(t *testing.T) {
	c, err := cache.NewBadgerCache(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	key := cache.Key("analysis", "some dialogue text")

	_, err = c.Get(key)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	payload := []byte(`{"intent":"other"}`)
	require.NoError(t, c.Put(key, payload, time.Hour))

	got, err := c.Get(key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestKeyIsStableAndCollisionResistant(t *testing.T) {
	assert.Equal(t, cache.Key("a", "b"), cache.Key("a", "b"))
	assert.NotEqual(t, cache.Key("a", "b"), cache.Key("ab"))
	assert.NotEqual(t, cache.Key("a", "b"), cache.Key("b", "a"))
}

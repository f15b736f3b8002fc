package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRU_GetSet(t *testing.T) {
	t.Run("should return a stored value", func(t *testing.T) {
		cache := NewLRU[string](4, time.Minute)

		cache.Set("a", "alpha")

		value, ok := cache.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "alpha", value)
	})

	t.Run("should miss on an unknown key", func(t *testing.T) {
		cache := NewLRU[string](4, time.Minute)

		_, ok := cache.Get("missing")
		assert.False(t, ok)
	})

	t.Run("should overwrite an existing key without growing", func(t *testing.T) {
		cache := NewLRU[string](4, time.Minute)

		cache.Set("a", "alpha")
		cache.Set("a", "beta")

		value, _ := cache.Get("a")
		assert.Equal(t, "beta", value)
		assert.Equal(t, 1, cache.Len())
	})
}

func TestLRU_Eviction(t *testing.T) {
	t.Run("should evict the least recently used entry past max size", func(t *testing.T) {
		cache := NewLRU[string](2, time.Minute)

		cache.Set("a", "alpha")
		cache.Set("b", "beta")
		cache.Set("c", "gamma")

		_, ok := cache.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("should keep a recently read entry over an older one", func(t *testing.T) {
		cache := NewLRU[string](2, time.Minute)

		cache.Set("a", "alpha")
		cache.Set("b", "beta")
		cache.Get("a")
		cache.Set("c", "gamma")

		_, aOk := cache.Get("a")
		_, bOk := cache.Get("b")
		assert.True(t, aOk)
		assert.False(t, bOk)
	})
}

func TestLRU_Expiry(t *testing.T) {
	t.Run("should drop an entry past its TTL", func(t *testing.T) {
		cache := NewLRU[string](4, -time.Second)

		cache.Set("a", "alpha")

		_, ok := cache.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})
}

func TestLRU_Delete(t *testing.T) {
	t.Run("should remove the entry", func(t *testing.T) {
		cache := NewLRU[string](4, time.Minute)

		cache.Set("a", "alpha")
		cache.Delete("a")

		_, ok := cache.Get("a")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("should tolerate deleting an unknown key", func(t *testing.T) {
		cache := NewLRU[string](4, time.Minute)

		cache.Delete("missing")
		assert.Equal(t, 0, cache.Len())
	})
}

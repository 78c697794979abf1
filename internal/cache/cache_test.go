package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_EvictsWhenFull(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewBoundedCache(time.Minute, 3)
	c.now = func() time.Time { return now }

	for i := range 3 {
		c.Set(fmt.Sprintf("k%d", i), i)
		now = now.Add(time.Second)
	}
	c.Set("k3", 3)

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("k0")
	assert.False(t, ok, "entry closest to expiry is evicted first")
	_, ok = c.Get("k3")
	assert.True(t, ok)
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c := NewBoundedCache(time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 2, c.Len())
	v, _ := c.Get("a")
	assert.Equal(t, 3, v)

	c.Delete("a")
	assert.Equal(t, 1, c.Len())
}

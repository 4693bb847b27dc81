package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string](10)
	c.Set("model", "phase", "bundle", "v1", 0)
	got, ok := c.Get("model", "phase", "bundle")
	require.True(t, ok)
	require.Equal(t, "v1", got)
}

func TestCache_MissingKey(t *testing.T) {
	c := New[string](10)
	_, ok := c.Get("model", "phase", "bundle")
	require.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsedPerScope(t *testing.T) {
	c := New[int](2)
	c.Set("s", "id", "a", 1, 0)
	c.Set("s", "id", "b", 2, 0)
	c.Set("s", "id", "c", 3, 0) // evicts "a"

	_, ok := c.Get("s", "id", "a")
	require.False(t, ok)
	v, ok := c.Get("s", "id", "b")
	require.True(t, ok)
	require.Equal(t, 2, v)
	v, ok = c.Get("s", "id", "c")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestCache_ScopesAreIndependent(t *testing.T) {
	c := New[int](1)
	c.Set("s1", "id", "a", 1, 0)
	c.Set("s2", "id", "a", 2, 0)

	v1, ok := c.Get("s1", "id", "a")
	require.True(t, ok)
	require.Equal(t, 1, v1)
	v2, ok := c.Get("s2", "id", "a")
	require.True(t, ok)
	require.Equal(t, 2, v2)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string](10)
	c.Set("s", "id", "a", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("s", "id", "a")
	require.False(t, ok)
}

func TestCache_Delete(t *testing.T) {
	c := New[string](10)
	c.Set("s", "id", "a", "v", 0)
	require.True(t, c.Delete("s", "id", "a"))
	require.False(t, c.Delete("s", "id", "a"))
	_, ok := c.Get("s", "id", "a")
	require.False(t, ok)
}

func TestCache_Len(t *testing.T) {
	c := New[string](10)
	require.Equal(t, 0, c.Len())
	c.Set("s", "id", "a", "v", 0)
	c.Set("s", "id2", "a", "v", 0)
	require.Equal(t, 2, c.Len())
}

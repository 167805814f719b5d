package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisabledCacheAlwaysMisses(t *testing.T) {
	c := New(Options{})
	c.Put("obj.0", 0, []byte("x"))

	_, ok := c.Get("obj.0", 0)
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestPutThenGetHits(t *testing.T) {
	c := New(Options{MaxEntries: 4})
	c.Put("obj.0", 5, []byte("payload"))

	got, ok := c.Get("obj.0", 5)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)
}

func TestDifferentObjectsDoNotCollide(t *testing.T) {
	c := New(Options{MaxEntries: 4})
	c.Put("obj.0", 1, []byte("a"))
	c.Put("obj.1", 1, []byte("b"))

	got, ok := c.Get("obj.0", 1)
	require.True(t, ok)
	require.Equal(t, []byte("a"), got)

	got, ok = c.Get("obj.1", 1)
	require.True(t, ok)
	require.Equal(t, []byte("b"), got)
}

func TestEvictsLeastRecentlyUsedPastCapacity(t *testing.T) {
	c := New(Options{MaxEntries: 2})
	c.Put("obj.0", 0, []byte("a"))
	c.Put("obj.0", 1, []byte("b"))
	c.Put("obj.0", 2, []byte("c")) // evicts position 0

	_, ok := c.Get("obj.0", 0)
	require.False(t, ok)

	_, ok = c.Get("obj.0", 1)
	require.True(t, ok)

	_, ok = c.Get("obj.0", 2)
	require.True(t, ok)
}

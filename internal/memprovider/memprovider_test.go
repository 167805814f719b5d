package memprovider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadPastEndOfUnknownObjectIsEmptyNotError(t *testing.T) {
	s := New()
	buf := make([]byte, 10)
	n, err := s.Read("missing", 0, buf)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.Write("obj", 2, []byte("hi")))

	buf := make([]byte, 2)
	n, err := s.Read("obj", 2, buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []byte("hi"), buf)
}

func TestWriteZeroExtendsHoleBeforeOffset(t *testing.T) {
	s := New()
	require.NoError(t, s.Write("obj", 4, []byte("x")))

	size, exists, err := s.Stat("obj")
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, uint64(5), size)

	hole := make([]byte, 4)
	n, err := s.Read("obj", 0, hole)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0, 0, 0, 0}, hole)
}

func TestXattrRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.SetXattr("obj", "meta", []byte("v1")))

	v, ok, err := s.GetXattr("obj", "meta")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	_, ok, err = s.GetXattr("obj", "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMapValRoundTrip(t *testing.T) {
	s := New()
	require.NoError(t, s.MapSetVal("obj", "k1", []byte("v1")))

	v, ok, err := s.MapGetVal("obj", "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestLockSerializesAccessToSameObject(t *testing.T) {
	s := New()
	unlock := s.Lock("obj")
	done := make(chan struct{})
	go func() {
		unlock2 := s.Lock("obj")
		unlock2()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second Lock should not succeed while first is held")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
}

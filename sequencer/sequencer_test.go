package sequencer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zlogio/zlog/bte"
)

func TestFakeSequencerStartsAtZeroAndIncrements(t *testing.T) {
	f := NewFake(0)
	for want := uint64(0); want < 5; want++ {
		got, err := f.Next(context.Background())
		require.NoError(t, toErr(err))
		require.Equal(t, want, got)
	}
}

func TestFakeSequencerHonorsStart(t *testing.T) {
	f := NewFake(100)
	got, err := f.Next(context.Background())
	require.NoError(t, toErr(err))
	require.Equal(t, uint64(100), got)
}

func TestFakeSequencerPeekDoesNotConsume(t *testing.T) {
	f := NewFake(0)
	peeked, err := f.Peek(context.Background())
	require.NoError(t, toErr(err))
	require.Equal(t, uint64(0), peeked)

	next, err := f.Next(context.Background())
	require.NoError(t, toErr(err))
	require.Equal(t, peeked, next)
}

func TestFakeSequencerConcurrentNextNeverRepeats(t *testing.T) {
	f := NewFake(0)
	const n = 200
	results := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := f.Next(context.Background())
			require.NoError(t, toErr(err))
			results[i] = v
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, v := range results {
		require.False(t, seen[v], "position %d handed out twice", v)
		seen[v] = true
	}
}

func TestClientServerWireRoundTrip(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", 0)
	require.NoError(t, err)
	defer srv.Close()
	go srv.Serve()

	c := NewClient(srv.Addr().String())
	first, err := c.Next(context.Background())
	require.NoError(t, toErr(err))
	second, err := c.Next(context.Background())
	require.NoError(t, toErr(err))
	require.Equal(t, first+1, second)
}

func toErr(e bte.BTE) error {
	if e == nil {
		return nil
	}
	return e
}

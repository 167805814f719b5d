package backend

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/memprovider"
)

func newTestBackend() *Backend {
	return New(memprovider.New())
}

func TestWriteThenReadOK(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.Init(context.Background(), "obj.0", 100, 4, 2, 0)))

	require.Equal(t, bte.OK, b.Write(context.Background(), "obj.0", 0, []byte("hi")))

	out, err := b.Read(context.Background(), "obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.OK, out.Code)
	// Read returns the full entry_size (100) bytes: payload then zero padding.
	require.Equal(t, append([]byte("hi"), make([]byte, 100-2)...), out.Data)
}

func TestWriteRaceLoserGetsReadOnly(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.Init(context.Background(), "obj.0", 100, 4, 2, 0)))

	require.Equal(t, bte.OK, b.Write(context.Background(), "obj.0", 0, []byte("first")))
	require.Equal(t, bte.ReadOnly, b.Write(context.Background(), "obj.0", 0, []byte("second")))
}

func TestReadUnwrittenReportsNotWritten(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.Init(context.Background(), "obj.0", 100, 4, 2, 0)))

	out, err := b.Read(context.Background(), "obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.NotWritten, out.Code)
}

func TestReadInvalidatedReportsInvalidated(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.Init(context.Background(), "obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(b.Invalidate(context.Background(), "obj.0", 0, false)))

	out, err := b.Read(context.Background(), "obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.Invalidated, out.Code)
}

func TestViewLifecycle(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.ViewInit(context.Background(), "log.meta", 100, 4, 2, 8)))

	views, err := b.ViewRead(context.Background(), "log.meta", 0)
	require.NoError(t, toErr(err))
	require.Len(t, views, 1)

	require.NoError(t, toErr(b.ViewExtend(context.Background(), "log.meta", 100)))

	views, err = b.ViewRead(context.Background(), "log.meta", 0)
	require.NoError(t, toErr(err))
	require.Len(t, views, 2)
}

func TestAioWriteThenAioReadCompleteExactlyOnce(t *testing.T) {
	b := newTestBackend()
	require.NoError(t, toErr(b.Init(context.Background(), "obj.0", 100, 4, 2, 0)))

	var writeCount int
	var mu sync.Mutex
	writeDone := make(chan AioResult, 1)
	b.AioWrite(context.Background(), "obj.0", 0, []byte("async"), func(res AioResult) {
		mu.Lock()
		writeCount++
		mu.Unlock()
		writeDone <- res
	})

	select {
	case res := <-writeDone:
		require.Equal(t, bte.OK, res.Code)
	case <-time.After(time.Second):
		t.Fatal("AioWrite callback never fired")
	}
	mu.Lock()
	require.Equal(t, 1, writeCount)
	mu.Unlock()

	readDone := make(chan AioResult, 1)
	b.AioRead(context.Background(), "obj.0", 0, func(res AioResult) {
		readDone <- res
	})
	select {
	case res := <-readDone:
		require.Equal(t, bte.OK, res.Code)
		require.Equal(t, append([]byte("async"), make([]byte, 100-5)...), res.Data)
	case <-time.After(time.Second):
		t.Fatal("AioRead callback never fired")
	}
}

func toErr(e bte.BTE) error {
	if e == nil {
		return nil
	}
	return e
}

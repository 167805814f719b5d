package objectstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/memprovider"
)

func newTestStore() *Store {
	return New(memprovider.New())
}

func TestInitThenWriteThenRead(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))

	require.NoError(t, toErr(s.Write("obj.0", 0, []byte("hello"))))

	res, err := s.Read("obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.OK, res.Code)
	// Read returns the full entry_size (100) bytes: payload then zero padding.
	require.Equal(t, append([]byte("hello"), make([]byte, 100-5)...), res.Data)
}

func TestReadUnwrittenSlotReportsUnwritten(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))

	res, err := s.Read("obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.Unwritten, res.Code)
}

func TestDoubleWriteToSamePositionFails(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(s.Write("obj.0", 0, []byte("a"))))

	err := s.Write("obj.0", 0, []byte("b"))
	require.Error(t, err)
	require.Equal(t, bte.AlreadyExists, err.Code())
}

func TestInitMismatchOnReinitFails(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))

	err := s.Init("obj.0", 200, 4, 2, 0)
	require.Error(t, err)
	require.Equal(t, bte.InvalidArgument, err.Code())
}

func TestInitIsIdempotentWithMatchingParams(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
}

func TestWriteWrongObjectForPositionFails(t *testing.T) {
	s := newTestStore()
	// Position 1 under (width=4, entries_per_object=2) maps to object_no 1,
	// not 0 (spec.md §4.1): object_set_no=0, stripe_pos=1 -> object_no=1.
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))

	err := s.Write("obj.0", 1, []byte("x"))
	require.Error(t, err)
	require.Equal(t, bte.WrongObject, err.Code())
}

func TestWriteEntryLargerThanEntrySizeFails(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 4, 4, 2, 0)))

	err := s.Write("obj.0", 0, []byte("toolong"))
	require.Error(t, err)
	require.Equal(t, bte.TooLarge, err.Code())
}

func TestInvalidateUnwrittenSlotThenReadReportsInvalidated(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))

	require.NoError(t, toErr(s.Invalidate("obj.0", 0, false)))

	res, err := s.Read("obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.Invalidated, res.Code)
}

func TestInvalidateTakenSlotWithoutForceFails(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(s.Write("obj.0", 0, []byte("a"))))

	err := s.Invalidate("obj.0", 0, false)
	require.Error(t, err)
	require.Equal(t, bte.ReadOnly, err.Code())
}

func TestInvalidateTakenSlotWithForceSucceeds(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(s.Write("obj.0", 0, []byte("a"))))

	require.NoError(t, toErr(s.Invalidate("obj.0", 0, true)))

	res, err := s.Read("obj.0", 0)
	require.NoError(t, toErr(err))
	require.Equal(t, bte.Invalidated, res.Code)
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s := newTestStore()
	require.NoError(t, toErr(s.Init("obj.0", 100, 4, 2, 0)))
	require.NoError(t, toErr(s.Invalidate("obj.0", 0, false)))
	require.NoError(t, toErr(s.Invalidate("obj.0", 0, false)))
}

// toErr adapts a bte.BTE (nil-able interface) to a plain error so
// require.NoError reports a useful message on failure.
func toErr(e bte.BTE) error {
	if e == nil {
		return nil
	}
	return e
}

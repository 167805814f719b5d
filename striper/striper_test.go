package striper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/viewstore"
)

// noopExtender is a ViewExtender that should never be called in tests
// where every position is already covered by AddViews.
type noopExtender struct {
	called bool
}

func (n *noopExtender) ExtendViews(ctx context.Context, position uint64) bte.BTE {
	n.called = true
	return nil
}

func (n *noopExtender) RefreshProjection(ctx context.Context) bte.BTE {
	return nil
}

func view0() viewstore.View {
	return viewstore.View{Epoch: 0, EntrySize: 100, StripeWidth: 4, EntriesPerObject: 2, NumStripes: 8}
}

func TestMapPositionWithinBootstrapView(t *testing.T) {
	ext := &noopExtender{}
	s := New("mylog", ext)
	s.AddViews([]viewstore.View{view0()})

	oid, err := s.MapPosition(context.Background(), 0, false)
	require.NoError(t, toErr(err))
	require.Equal(t, "mylog.0", oid)
	require.False(t, ext.called)
}

func TestMapPositionSecondObjectSet(t *testing.T) {
	ext := &noopExtender{}
	s := New("mylog", ext)
	s.AddViews([]viewstore.View{view0()})

	// position 8 starts the second object set: object_no = 1*4+0 = 4.
	oid, err := s.MapPosition(context.Background(), 8, false)
	require.NoError(t, toErr(err))
	require.Equal(t, "mylog.4", oid)
}

func TestMapPositionOutOfRangeWithoutExtendFails(t *testing.T) {
	ext := &noopExtender{}
	s := New("mylog", ext)
	s.AddViews([]viewstore.View{view0()})

	// view0 spans 4*2*8 = 64 positions: 0..63.
	_, err := s.MapPosition(context.Background(), 64, false)
	require.Error(t, err)
	require.Equal(t, bte.OutOfRange, err.Code())
	require.False(t, ext.called)
}

// extendingExtender simulates a real Log: ExtendViews only records that it
// was called, and RefreshProjection hands the striper view0 plus the
// pre-built view1 through AddViews.
type extendingExtender struct {
	s      *Striper
	view1  viewstore.View
	called bool
}

func (e *extendingExtender) ExtendViews(ctx context.Context, position uint64) bte.BTE {
	e.called = true
	return nil
}

func (e *extendingExtender) RefreshProjection(ctx context.Context) bte.BTE {
	e.s.AddViews([]viewstore.View{view0(), e.view1})
	return nil
}

func TestMapPositionExtendsOnMiss(t *testing.T) {
	ext := &extendingExtender{view1: viewstore.View{Epoch: 1, EntrySize: 100, StripeWidth: 4, EntriesPerObject: 2, NumStripes: 4}}
	s := New("mylog", ext)
	ext.s = s
	s.AddViews([]viewstore.View{view0()})

	oid, err := s.MapPosition(context.Background(), 64, true)
	require.NoError(t, toErr(err))
	require.True(t, ext.called)
	// layout.Compute(64, width=4, entries_per_object=2):
	// stripe_num=16, object_set_no=8, stripe_pos=0 -> object_no=32.
	require.Equal(t, "mylog.32", oid)
}

func TestObjectParamsReportsLayout(t *testing.T) {
	ext := &noopExtender{}
	s := New("mylog", ext)
	s.AddViews([]viewstore.View{view0()})

	oid, entrySize, stripeWidth, entriesPerObject, objectNo, ok := s.ObjectParams(0)
	require.True(t, ok)
	require.Equal(t, "mylog.0", oid)
	require.Equal(t, uint64(100), entrySize)
	require.Equal(t, uint64(4), stripeWidth)
	require.Equal(t, uint64(2), entriesPerObject)
	require.Equal(t, uint64(0), objectNo)
}

func toErr(e bte.BTE) error {
	if e == nil {
		return nil
	}
	return e
}

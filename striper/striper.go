// Package striper implements the client-side cache of known views (spec.md
// §4.4, component C5): mapping a log position to an object name, and
// extending the view sequence on demand when a position runs past what's
// currently known.
//
// This is a generalized port of zlog::Striper in
// original_source/src/libzlog/striper.{h,cc}. The C++ Striper holds a raw
// back-pointer to LogImpl so MapPosition can call log_->ExtendViews and
// log_->RefreshProjection; spec.md §9's Design Notes calls that a cycle to
// break "by having the striper receive an explicit 'view extender'
// capability at construction rather than a back pointer", which is what
// ViewExtender does here.
package striper

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/op/go-logging"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/layout"
	"github.com/zlogio/zlog/internal/viewstore"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Layout is the immutable geometry of one view, used only to compute
// object numbers (spec.md §4.1).
type Layout struct {
	EntrySize        uint64
	StripeWidth      uint64
	EntriesPerObject uint64
}

func (l Layout) objectNo(position uint64) uint64 {
	return layout.Compute(position, l.StripeWidth, l.EntriesPerObject).ObjectNo
}

// objectSet is the range of positions one view maps, plus the layout to
// resolve object numbers within that range.
type objectSet struct {
	layout Layout
	minPos uint64
	maxPos uint64
}

// ViewExtender is the narrow capability the striper needs to recover from
// a mapping miss: ask the view store to grow, then re-read it. Log
// implements this; the striper never references Log directly.
type ViewExtender interface {
	ExtendViews(ctx context.Context, position uint64) bte.BTE
	RefreshProjection(ctx context.Context) bte.BTE
}

// Striper maps positions to object identifiers for one named log. It is
// safe for concurrent use by many goroutines.
type Striper struct {
	mu       sync.Mutex
	logName  string
	epoch    uint64
	haveAny  bool
	objsets  map[uint64]objectSet // keyed by minPos
	starts   []uint64             // sorted keys of objsets, kept in sync
	extender ViewExtender
}

// New returns an empty striper for logName. AddViews must be called with
// at least epoch 0 before MapPosition can succeed.
func New(logName string, extender ViewExtender) *Striper {
	return &Striper{
		logName:  logName,
		objsets:  make(map[uint64]objectSet),
		extender: extender,
	}
}

// AddViews incorporates the given views into the local map, in epoch
// order. Epoch 0 bootstraps the map when empty; subsequent views must be
// contiguous with the current epoch (spec.md §4.4's "add_views").
func (s *Striper) AddViews(views []viewstore.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byEpoch := make(map[uint64]viewstore.View, len(views))
	for _, v := range views {
		byEpoch[v.Epoch] = v
	}

	if !s.haveAny {
		v, ok := byEpoch[0]
		if !ok {
			panic("striper: AddViews called without epoch 0 present on bootstrap")
		}
		s.insert(0, v, 0)
		s.epoch = 0
		s.haveAny = true
	}

	next := s.epoch + 1
	for {
		v, ok := byEpoch[next]
		if !ok {
			break
		}
		minPos := s.objsets[s.starts[len(s.starts)-1]].maxPos + 1
		s.insert(minPos, v, minPos)
		s.epoch = next
		next++
	}
}

func (s *Striper) insert(key uint64, v viewstore.View, minPos uint64) {
	l := Layout{EntrySize: v.EntrySize, StripeWidth: v.StripeWidth, EntriesPerObject: v.EntriesPerObject}
	maxPos := minPos + l.StripeWidth*l.EntriesPerObject*v.NumStripes - 1
	s.objsets[key] = objectSet{layout: l, minPos: minPos, maxPos: maxPos}
	idx := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] >= key })
	s.starts = append(s.starts, 0)
	copy(s.starts[idx+1:], s.starts[idx:])
	s.starts[idx] = key
}

// mapToObjectSet finds the object set covering position, returning
// ok=false if position is not covered by anything currently known (an
// upper-bound lookup followed by a step back, per striper.cc's
// MapToObjectSet).
func (s *Striper) mapToObjectSet(position uint64) (objectSet, bool) {
	if len(s.starts) == 0 {
		return objectSet{}, false
	}
	idx := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > position }) - 1
	if idx < 0 {
		return objectSet{}, false
	}
	os := s.objsets[s.starts[idx]]
	if position > os.maxPos {
		return objectSet{}, false
	}
	return os, true
}

func (s *Striper) objectName(objectNo uint64) string {
	return fmt.Sprintf("%s.%d", s.logName, objectNo)
}

// MapPosition resolves position to an object name. If position is not
// covered by any known view and extend is true, it asks the extender to
// grow the view sequence and retries exactly once (spec.md §4.4 / §7: "one
// retry per failed call; any further failure surfaces").
func (s *Striper) MapPosition(ctx context.Context, position uint64, extend bool) (string, bte.BTE) {
	s.mu.Lock()
	os, ok := s.mapToObjectSet(position)
	s.mu.Unlock()

	if ok {
		return s.objectName(os.layout.objectNo(position)), nil
	}

	if !extend {
		return "", bte.Errf(bte.OutOfRange, "position %d not covered by any known view", position)
	}

	if err := s.extender.ExtendViews(ctx, position); err != nil {
		return "", err
	}
	if err := s.extender.RefreshProjection(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	os, ok = s.mapToObjectSet(position)
	s.mu.Unlock()
	if !ok {
		logger.Errorf("MapPosition(%s, %d): still unmapped after extending views", s.logName, position)
		return "", bte.Errf(bte.IOError, "position %d still unmapped after extending views", position)
	}
	return s.objectName(os.layout.objectNo(position)), nil
}

// ObjectParams returns the layout parameters and computed object number
// for position, for callers that need to Init the target data object
// before writing to it (spec.md §4.4's InitDataObject).
func (s *Striper) ObjectParams(position uint64) (oid string, entrySize, stripeWidth, entriesPerObject, objectNo uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	os, found := s.mapToObjectSet(position)
	if !found {
		return "", 0, 0, 0, 0, false
	}
	objectNo = os.layout.objectNo(position)
	return s.objectName(objectNo), os.layout.EntrySize, os.layout.StripeWidth, os.layout.EntriesPerObject, objectNo, true
}

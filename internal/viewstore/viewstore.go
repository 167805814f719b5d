// Package viewstore implements the server-side view sequence (spec.md
// §4.3, component C3): view_init, view_read, view_extend against a single
// metadata object per log, storing each view under a zero-padded decimal
// epoch key in the object's key-value submap plus a small header xattr
// holding (max_epoch, max_position).
//
// This is a direct port of the view_init/view_read/view_extend cls_zlog
// methods in original_source/src/libzlog/storage/ceph/cls_zlog.cc.
package viewstore

import (
	"github.com/op/go-logging"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/bprovider"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Store exposes the C3 view operations for metadata objects held in one
// bprovider.ObjectStore.
type Store struct {
	os bprovider.ObjectStore
}

func New(os bprovider.ObjectStore) *Store {
	return &Store{os: os}
}

func readMeta(os bprovider.ObjectStore, oid string) (meta, bte.BTE) {
	buf, ok, err := os.GetXattr(oid, viewMetaXattr)
	if err != nil {
		return meta{}, bte.Errf(bte.IOError, "reading view metadata for %s: %v", oid, err)
	}
	if !ok {
		logger.Errorf("readMeta(%s): object exists but view metadata xattr missing", oid)
		return meta{}, bte.Err(bte.IOError, "view metadata missing")
	}
	return decodeMeta(buf)
}

func readView(os bprovider.ObjectStore, oid string, epoch uint64) (View, bte.BTE) {
	buf, ok, err := os.MapGetVal(oid, viewKey(epoch))
	if err != nil {
		return View{}, bte.Errf(bte.IOError, "reading view %d for %s: %v", epoch, oid, err)
	}
	if !ok {
		return View{}, bte.Errf(bte.IOError, "view %d missing for %s", epoch, oid)
	}
	return decodeView(buf)
}

// ViewInit implements spec.md §4.3's view_init(): creates epoch 0 with the
// given layout parameters. Fails if the metadata object already exists.
func (s *Store) ViewInit(oid string, entrySize, stripeWidth, entriesPerObject, numStripes uint64) bte.BTE {
	unlock := s.os.Lock(oid)
	defer unlock()

	if entrySize == 0 || stripeWidth == 0 || entriesPerObject == 0 || numStripes == 0 {
		return bte.Err(bte.InvalidArgument, "view_init: zero-valued parameter")
	}

	_, exists, err := s.os.Stat(oid)
	if err != nil {
		return bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if exists {
		return bte.Errf(bte.AlreadyExists, "metadata object %s already exists", oid)
	}

	v := View{
		Epoch:            0,
		EntrySize:        entrySize,
		StripeWidth:      stripeWidth,
		EntriesPerObject: entriesPerObject,
		NumStripes:       numStripes,
	}
	if err := s.os.MapSetVal(oid, viewKey(0), v.encode()); err != nil {
		return bte.Errf(bte.IOError, "writing view 0 for %s: %v", oid, err)
	}

	maxPos := entriesPerObject*stripeWidth*numStripes - 1
	m := meta{MaxEpoch: 0, MaxPosition: maxPos}
	if err := s.os.SetXattr(oid, viewMetaXattr, m.encode()); err != nil {
		return bte.Errf(bte.IOError, "writing view metadata for %s: %v", oid, err)
	}
	return nil
}

// ViewRead implements spec.md §4.3's view_read(): returns every view from
// minEpoch through the current max_epoch, inclusive, in order.
func (s *Store) ViewRead(oid string, minEpoch uint64) ([]View, bte.BTE) {
	unlock := s.os.Lock(oid)
	defer unlock()

	_, exists, err := s.os.Stat(oid)
	if err != nil {
		return nil, bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if !exists {
		return nil, bte.Errf(bte.NotFound, "metadata object %s does not exist", oid)
	}

	m, berr := readMeta(s.os, oid)
	if berr != nil {
		return nil, berr
	}
	if minEpoch > m.MaxEpoch {
		return nil, bte.Errf(bte.InvalidArgument, "min_epoch %d exceeds max_epoch %d", minEpoch, m.MaxEpoch)
	}

	views := make([]View, 0, m.MaxEpoch-minEpoch+1)
	for e := minEpoch; e <= m.MaxEpoch; e++ {
		v, berr := readView(s.os, oid, e)
		if berr != nil {
			return nil, berr
		}
		views = append(views, v)
	}
	return views, nil
}

// ViewExtend implements spec.md §4.3's view_extend(): ensures position is
// covered by appending exactly one new view derived from the current
// latest view's layout, scaled to the minimum number of additional
// stripes needed.
func (s *Store) ViewExtend(oid string, position uint64) bte.BTE {
	unlock := s.os.Lock(oid)
	defer unlock()

	_, exists, err := s.os.Stat(oid)
	if err != nil {
		return bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if !exists {
		return bte.Errf(bte.NotFound, "metadata object %s does not exist", oid)
	}

	m, berr := readMeta(s.os, oid)
	if berr != nil {
		return berr
	}

	if position <= m.MaxPosition {
		return nil
	}

	latest, berr := readView(s.os, oid, m.MaxEpoch)
	if berr != nil {
		return berr
	}

	nextEpoch := m.MaxEpoch + 1
	entriesPerStripe := latest.EntriesPerObject * latest.StripeWidth

	entriesNeeded := position - m.MaxPosition
	stripesNeeded := (entriesNeeded + entriesPerStripe - 1) / entriesPerStripe

	next := View{
		Epoch:            nextEpoch,
		EntrySize:        latest.EntrySize,
		StripeWidth:      latest.StripeWidth,
		EntriesPerObject: latest.EntriesPerObject,
		NumStripes:       stripesNeeded,
	}

	if err := s.os.MapSetVal(oid, viewKey(nextEpoch), next.encode()); err != nil {
		return bte.Errf(bte.IOError, "writing view %d for %s: %v", nextEpoch, oid, err)
	}

	newMeta := meta{
		MaxEpoch:    nextEpoch,
		MaxPosition: m.MaxPosition + entriesPerStripe*stripesNeeded,
	}
	if err := s.os.SetXattr(oid, viewMetaXattr, newMeta.encode()); err != nil {
		return bte.Errf(bte.IOError, "writing view metadata for %s: %v", oid, err)
	}
	return nil
}

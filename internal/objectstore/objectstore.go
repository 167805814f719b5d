// Package objectstore implements the per-object server-side state machine
// (spec.md §4.2, component C2): init, write, read, invalidate against a
// single data object, enforcing write-once slot semantics and the
// Unused→Taken / Unused→Invalid / Taken→Invalid(force) transition rules.
//
// This is a direct port of the cls_zlog object methods in
// original_source/src/libzlog/storage/ceph/cls_zlog.cc, generalized from a
// Ceph object-class method (invoked server-side inside the storage
// cluster) to a Go function invoked against a bprovider.ObjectStore
// handle.
package objectstore

import (
	"bytes"

	"github.com/op/go-logging"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/bprovider"
	"github.com/zlogio/zlog/internal/layout"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

const metaXattr = "meta"

// stateTag is the first byte of every slot.
type stateTag byte

const (
	stateUnused  stateTag = 0
	stateTaken   stateTag = 1
	stateInvalid stateTag = 2
)

// Store wraps a bprovider.ObjectStore handle and exposes the C2 operations
// for one data object addressed by oid.
type Store struct {
	os bprovider.ObjectStore
}

// New returns an object-class handle backed by os.
func New(os bprovider.ObjectStore) *Store {
	return &Store{os: os}
}

func readMeta(os bprovider.ObjectStore, oid string) (ObjectMeta, bte.BTE) {
	buf, ok, err := os.GetXattr(oid, metaXattr)
	if err != nil {
		return ObjectMeta{}, bte.Errf(bte.IOError, "reading metadata for %s: %v", oid, err)
	}
	if !ok {
		logger.Errorf("readMeta(%s): object exists but meta xattr missing", oid)
		return ObjectMeta{}, bte.Err(bte.IOError, "object exists but metadata is missing")
	}
	return decodeObjectMeta(buf)
}

// Init implements spec.md §4.2's init(). If the object does not exist, the
// given parameters are pinned as its permanent metadata. If it exists, the
// given parameters must match exactly.
func (s *Store) Init(oid string, entrySize, stripeWidth, entriesPerObject, objectID uint64) bte.BTE {
	unlock := s.os.Lock(oid)
	defer unlock()

	want := ObjectMeta{
		EntrySize:        entrySize,
		StripeWidth:      stripeWidth,
		EntriesPerObject: entriesPerObject,
		ObjectID:         objectID,
	}
	if want.isZero() {
		return bte.Err(bte.InvalidArgument, "init: zero-valued parameter")
	}

	_, exists, err := s.os.Stat(oid)
	if err != nil {
		return bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}

	if !exists {
		if err := s.os.SetXattr(oid, metaXattr, want.encode()); err != nil {
			return bte.Errf(bte.IOError, "writing metadata for %s: %v", oid, err)
		}
		return nil
	}

	have, berr := readMeta(s.os, oid)
	if berr != nil {
		return berr
	}
	if have.isZero() {
		return bte.Err(bte.IOError, "existing object has corrupt (zero) metadata")
	}
	if !have.equals(want) {
		return bte.Err(bte.InvalidArgument, "metadata mismatch on re-init")
	}
	return nil
}

// compute resolves oid's stored metadata and the target slot offset for
// position, enforcing the object-identity check from spec.md invariant 4.
func compute(os bprovider.ObjectStore, oid string, position uint64) (ObjectMeta, layout.Coords, uint64, bte.BTE) {
	meta, berr := readMeta(os, oid)
	if berr != nil {
		return ObjectMeta{}, layout.Coords{}, 0, berr
	}
	if meta.isZero() {
		return ObjectMeta{}, layout.Coords{}, 0, bte.Err(bte.IOError, "invalid (zero) object metadata")
	}

	coords := layout.Compute(position, meta.StripeWidth, meta.EntriesPerObject)
	if coords.ObjectNo != meta.ObjectID {
		return ObjectMeta{}, layout.Coords{}, 0, bte.Errf(bte.WrongObject,
			"position %d maps to object %d, not %d", position, coords.ObjectNo, meta.ObjectID)
	}

	offset := layout.Offset(coords.SlotIndex, meta.EntrySize)
	return meta, coords, offset, nil
}

// Write implements spec.md §4.2's write(): single-write-per-position, full
// slot written atomically.
func (s *Store) Write(oid string, position uint64, data []byte) bte.BTE {
	unlock := s.os.Lock(oid)
	defer unlock()

	_, exists, err := s.os.Stat(oid)
	if err != nil {
		return bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if !exists {
		return bte.Errf(bte.NotFound, "object %s does not exist", oid)
	}

	meta, _, offset, berr := compute(s.os, oid, position)
	if berr != nil {
		return berr
	}

	slotSize := layout.SlotSize(meta.EntrySize)
	if uint64(1+len(data)) > slotSize {
		return bte.Errf(bte.TooLarge, "entry of %d bytes exceeds entry_size %d", len(data), meta.EntrySize)
	}

	hdr := make([]byte, 1)
	n, err := s.os.Read(oid, offset, hdr)
	if err != nil {
		return bte.Errf(bte.IOError, "reading slot header at %s:%d: %v", oid, offset, err)
	}
	var tag stateTag
	if n == 1 {
		tag = stateTag(hdr[0])
	}
	if tag != stateUnused {
		return bte.Errf(bte.AlreadyExists, "position %d already written", position)
	}

	slot := make([]byte, slotSize)
	slot[0] = byte(stateTaken)
	copy(slot[1:], data)

	if err := s.os.Write(oid, offset, slot); err != nil {
		return bte.Errf(bte.IOError, "writing slot at %s:%d: %v", oid, offset, err)
	}
	return nil
}

// ReadResult is the outcome of Read: exactly one of OK/Unwritten/Invalidated
// holds, distinguished by Code.
type ReadResult struct {
	Code bte.Code // bte.OK, bte.Unwritten or bte.Invalidated
	Data []byte   // populated only when Code == bte.OK
}

// Read implements spec.md §4.2's read().
func (s *Store) Read(oid string, position uint64) (ReadResult, bte.BTE) {
	unlock := s.os.Lock(oid)
	defer unlock()

	size, exists, err := s.os.Stat(oid)
	if err != nil {
		return ReadResult{}, bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if !exists {
		return ReadResult{}, bte.Errf(bte.NotFound, "object %s does not exist", oid)
	}

	meta, _, offset, berr := compute(s.os, oid, position)
	if berr != nil {
		return ReadResult{}, berr
	}

	slotSize := layout.SlotSize(meta.EntrySize)
	if offset+slotSize > size {
		return ReadResult{Code: bte.Unwritten}, nil
	}

	slot := make([]byte, slotSize)
	n, err := s.os.Read(oid, offset, slot)
	if err != nil {
		return ReadResult{}, bte.Errf(bte.IOError, "reading slot at %s:%d: %v", oid, offset, err)
	}
	if uint64(n) != slotSize {
		return ReadResult{}, bte.Err(bte.IOError, "partial slot read")
	}

	switch stateTag(slot[0]) {
	case stateTaken:
		return ReadResult{Code: bte.OK, Data: bytes.Clone(slot[1:])}, nil
	case stateUnused:
		return ReadResult{Code: bte.Unwritten}, nil
	case stateInvalid:
		return ReadResult{Code: bte.Invalidated}, nil
	default:
		return ReadResult{}, bte.Err(bte.IOError, "unexpected slot state tag")
	}
}

// Invalidate implements spec.md §4.2's invalidate().
func (s *Store) Invalidate(oid string, position uint64, force bool) bte.BTE {
	unlock := s.os.Lock(oid)
	defer unlock()

	size, exists, err := s.os.Stat(oid)
	if err != nil {
		return bte.Errf(bte.IOError, "stat %s: %v", oid, err)
	}
	if !exists {
		return bte.Errf(bte.NotFound, "object %s does not exist", oid)
	}

	meta, _, offset, berr := compute(s.os, oid, position)
	if berr != nil {
		return berr
	}
	slotSize := layout.SlotSize(meta.EntrySize)

	var tag stateTag
	if offset < size && !force {
		hdr := make([]byte, 1)
		n, err := s.os.Read(oid, offset, hdr)
		if err != nil {
			return bte.Errf(bte.IOError, "reading slot header at %s:%d: %v", oid, offset, err)
		}
		if n == 1 {
			tag = stateTag(hdr[0])
		}
	}

	if tag == stateInvalid {
		return nil
	}

	if tag == stateUnused || force {
		slot := make([]byte, 1, slotSize)
		slot[0] = byte(stateInvalid)
		if offset >= size {
			slot = append(slot, make([]byte, slotSize-1)...)
		}
		if err := s.os.Write(oid, offset, slot); err != nil {
			return bte.Errf(bte.IOError, "writing invalid tag at %s:%d: %v", oid, offset, err)
		}
		return nil
	}

	return bte.Errf(bte.ReadOnly, "position %d is taken; invalidate requires force", position)
}

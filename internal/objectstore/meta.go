package objectstore

import (
	"encoding/binary"

	"github.com/zlogio/zlog/bte"
)

// metaXattrSize is the on-disk width of an ObjectMeta record: four
// little-endian uint64 fields. Fixed-width binary encoding is used here
// rather than a serialization library because the record is a tiny,
// never-evolving tuple pinned for the lifetime of an object (spec.md §3,
// invariant 6) and the wire contract with the sequencer (spec.md §6)
// already establishes little-endian uint64 as this domain's on-disk
// convention.
const metaXattrSize = 8 * 4

// ObjectMeta is the write-once metadata record pinned to a data object on
// its first successful Init (spec.md §3, "Object").
type ObjectMeta struct {
	EntrySize        uint64
	StripeWidth      uint64
	EntriesPerObject uint64
	ObjectID         uint64
}

func (m ObjectMeta) encode() []byte {
	buf := make([]byte, metaXattrSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.EntrySize)
	binary.LittleEndian.PutUint64(buf[8:16], m.StripeWidth)
	binary.LittleEndian.PutUint64(buf[16:24], m.EntriesPerObject)
	binary.LittleEndian.PutUint64(buf[24:32], m.ObjectID)
	return buf
}

func decodeObjectMeta(buf []byte) (ObjectMeta, bte.BTE) {
	if len(buf) != metaXattrSize {
		return ObjectMeta{}, bte.Err(bte.IOError, "corrupt object metadata: wrong size")
	}
	return ObjectMeta{
		EntrySize:        binary.LittleEndian.Uint64(buf[0:8]),
		StripeWidth:      binary.LittleEndian.Uint64(buf[8:16]),
		EntriesPerObject: binary.LittleEndian.Uint64(buf[16:24]),
		ObjectID:         binary.LittleEndian.Uint64(buf[24:32]),
	}, nil
}

func (m ObjectMeta) isZero() bool {
	return m.EntrySize == 0 || m.StripeWidth == 0 || m.EntriesPerObject == 0
}

func (m ObjectMeta) equals(o ObjectMeta) bool {
	return m == o
}

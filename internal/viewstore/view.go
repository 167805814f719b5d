package viewstore

import (
	"encoding/binary"
	"fmt"

	"github.com/zlogio/zlog/bte"
)

// View is the immutable description of how a contiguous range of log
// positions is striped across objects (spec.md §3, "View").
type View struct {
	Epoch            uint64
	EntrySize        uint64
	StripeWidth      uint64
	EntriesPerObject uint64
	NumStripes       uint64
}

// Span is the number of positions this view maps:
// stripe_width * entries_per_object * num_stripes.
func (v View) Span() uint64 {
	return v.StripeWidth * v.EntriesPerObject * v.NumStripes
}

const viewRecordSize = 8 * 5

func (v View) encode() []byte {
	buf := make([]byte, viewRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], v.Epoch)
	binary.LittleEndian.PutUint64(buf[8:16], v.EntrySize)
	binary.LittleEndian.PutUint64(buf[16:24], v.StripeWidth)
	binary.LittleEndian.PutUint64(buf[24:32], v.EntriesPerObject)
	binary.LittleEndian.PutUint64(buf[32:40], v.NumStripes)
	return buf
}

func decodeView(buf []byte) (View, bte.BTE) {
	if len(buf) != viewRecordSize {
		return View{}, bte.Err(bte.IOError, "corrupt view record: wrong size")
	}
	return View{
		Epoch:            binary.LittleEndian.Uint64(buf[0:8]),
		EntrySize:        binary.LittleEndian.Uint64(buf[8:16]),
		StripeWidth:      binary.LittleEndian.Uint64(buf[16:24]),
		EntriesPerObject: binary.LittleEndian.Uint64(buf[24:32]),
		NumStripes:       binary.LittleEndian.Uint64(buf[32:40]),
	}, nil
}

// viewKey is the key scheme from spec.md §4.3 / §6: lexicographic order on
// the zero-padded 20-digit decimal epoch equals numeric order, which is
// how view_read walks the sequence in a plain key-value submap.
func viewKey(epoch uint64) string {
	return fmt.Sprintf("view.epoch.%020d", epoch)
}

const viewMetaXattr = "zlog.view.meta"

// meta is the small header tracked alongside the view sequence: the
// derived invariant (max_epoch, max_position) (spec.md §3, "View
// sequence").
type meta struct {
	MaxEpoch    uint64
	MaxPosition uint64
}

const metaRecordSize = 16

func (m meta) encode() []byte {
	buf := make([]byte, metaRecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.MaxEpoch)
	binary.LittleEndian.PutUint64(buf[8:16], m.MaxPosition)
	return buf
}

func decodeMeta(buf []byte) (meta, bte.BTE) {
	if len(buf) != metaRecordSize {
		return meta{}, bte.Err(bte.IOError, "corrupt view metadata: wrong size")
	}
	return meta{
		MaxEpoch:    binary.LittleEndian.Uint64(buf[0:8]),
		MaxPosition: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}

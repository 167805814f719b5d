// Package layout implements the pure arithmetic (spec.md §4.1, component
// C4) that maps an absolute log position, under a given view's stripe
// geometry, onto an object number and a byte offset inside that object.
// It has no I/O and no state; every function here is a direct port of
// calc_layout() in original_source/src/libzlog/storage/ceph/cls_zlog.cc.
package layout

// Coords is the result of mapping a position through a view's geometry.
type Coords struct {
	StripeNum   uint64
	SlotIndex   uint64 // slot within target object
	StripePos   uint64 // column within stripe
	ObjectSetNo uint64
	ObjectNo    uint64
}

// Compute implements the "wide-then-deep" striping walk described in
// spec.md §4.1: consecutive positions walk columns of a stripe, then
// advance to the next row, and only when entriesPerObject rows have been
// consumed does the object set advance.
func Compute(pos, stripeWidth, entriesPerObject uint64) Coords {
	stripeNum := pos / stripeWidth
	slotIndex := stripeNum % entriesPerObject
	stripePos := pos % stripeWidth
	objectSetNo := stripeNum / entriesPerObject
	objectNo := objectSetNo*stripeWidth + stripePos

	return Coords{
		StripeNum:   stripeNum,
		SlotIndex:   slotIndex,
		StripePos:   stripePos,
		ObjectSetNo: objectSetNo,
		ObjectNo:    objectNo,
	}
}

// SlotSize is the on-disk size of one slot: one state-tag byte followed by
// entrySize bytes of payload (spec.md §3, "Object").
func SlotSize(entrySize uint64) uint64 {
	return 1 + entrySize
}

// Offset returns the byte offset of slotIndex within its object.
func Offset(slotIndex, entrySize uint64) uint64 {
	return slotIndex * SlotSize(entrySize)
}

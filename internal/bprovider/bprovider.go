// Package bprovider defines the narrow capability set that the object
// state machine (internal/objectstore) and the view store
// (internal/viewstore) run against. It is the Go analogue of treating the
// object store as providing a whole-object byte stream, a per-object
// key-value submap and per-object small named byte attributes (spec.md §9,
// Design Notes: "Per-object mutable extended attributes and key-value
// maps").
//
// Two implementations are provided: internal/memprovider (RAM-backed, used
// by tests and the "fake" configuration) and internal/cephprovider
// (go-ceph/rados-backed).
package bprovider

// ObjectStore is the capability set a single connection to the underlying
// storage cluster must expose. Every method operates on one named object;
// spec.md's concurrency model (§5) requires the store to serialize all
// operations against the same object, which Lock makes explicit at this
// layer rather than assuming the storage backend composes multi-call
// transactions for us.
type ObjectStore interface {
	// Lock returns an unlock function that must be called to release the
	// per-object critical section. Every object-class and view-store
	// operation runs its whole body (stat, read, decide, write) while
	// holding this lock, which is what spec.md §5 calls "a single
	// object-store transaction on one object".
	Lock(oid string) func()

	// Stat reports whether oid exists and, if so, its current size in
	// bytes. A hole (an offset beyond the last write but within size) is
	// defined to read as zero, matching spec.md §6: "Holes ... are
	// guaranteed to read as zero by the object store".
	Stat(oid string) (size uint64, exists bool, err error)

	// Read reads len(data) bytes from oid at offset into data, returning
	// the number of bytes actually present. Reading entirely past the end
	// of the object is not an error: it returns (0, nil), and the object
	// class interprets that as an unwritten slot.
	Read(oid string, offset uint64, data []byte) (int, error)

	// Write writes data to oid at offset as a single atomic operation,
	// creating the object if it does not exist and zero-extending any
	// gap between the previous size and offset.
	Write(oid string, offset uint64, data []byte) error

	// GetXattr reads a named extended attribute. ok is false if the
	// attribute is unset (distinct from the zero-length case).
	GetXattr(oid, name string) (data []byte, ok bool, err error)

	// SetXattr sets a named extended attribute, creating oid if needed.
	SetXattr(oid, name string, data []byte) error

	// MapGetVal reads one key from oid's key-value submap.
	MapGetVal(oid, key string) (data []byte, ok bool, err error)

	// MapSetVal writes one key to oid's key-value submap, creating oid if
	// needed.
	MapSetVal(oid, key string, data []byte) error
}

package log

import (
	"golang.org/x/net/context"

	"github.com/zlogio/zlog/bte"
)

// Iterator walks a log's positions in order, the facade's thin composition
// over the striper (to resolve each position to an object) and the backend
// (to read it), skipping invalidated slots and stopping at the first
// position that has never been written. It holds no network or file
// resources and needs no Close.
type Iterator struct {
	log  *Log
	pos  uint64
	cur  []byte
	err  error
	done bool
}

// NewIterator returns an iterator starting at position 0. Advance it with
// Next before reading Position/Value.
func (l *Log) NewIterator(ctx context.Context) *Iterator {
	return &Iterator{log: l}
}

// Next advances the iterator to the next filled position and reports
// whether one was found. It returns false once a NotWritten position is
// reached (the log's current tail) or a read fails; callers must check Err
// after a false return to tell the two apart.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	for {
		data, err := it.log.Read(ctx, it.pos)
		switch {
		case err == nil:
			it.cur = data
			it.pos++
			return true
		case bte.Is(err, bte.Invalidated):
			it.pos++
			continue
		case bte.Is(err, bte.NotWritten):
			it.done = true
			return false
		default:
			it.err = err
			it.done = true
			return false
		}
	}
}

// Position returns the position Value currently refers to, valid only
// after a Next call that returned true.
func (it *Iterator) Position() uint64 {
	return it.pos - 1
}

// Value returns the payload read at Position, valid only after a Next call
// that returned true.
func (it *Iterator) Value() []byte {
	return it.cur
}

// Err returns the error that stopped iteration, or nil if iteration ended
// because the tail (an unwritten position) was reached.
func (it *Iterator) Err() error {
	return it.err
}

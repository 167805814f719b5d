// Package log is the top-level client facade (spec.md §2, "Log"):
// Append, Read, CheckTail and iteration over one named shared log,
// composing the striper (C5), the backend façade (C6) and a sequencer
// the way the teacher's Quasar composes bstore, bprovider and
// configprovider behind one struct (quasar.go).
package log

import (
	"fmt"

	"github.com/op/go-logging"
	"golang.org/x/net/context"

	"github.com/zlogio/zlog/backend"
	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/cache"
	"github.com/zlogio/zlog/internal/viewstore"
	"github.com/zlogio/zlog/sequencer"
	"github.com/zlogio/zlog/striper"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// maxWriteRetries bounds how many times Append will pick a fresh
// position after losing a write race for the previous one (spec.md §7:
// "one retry per failed call" governs view_extend misses; a lost append
// race against another writer is a distinct, separately bounded retry).
const maxWriteRetries = 16

// Options pins one log's immutable striping geometry, chosen at Create
// time and written once into view epoch 0 (spec.md §3, "Invariant 6:
// parameters pinned at object creation are immutable").
type Options struct {
	EntrySize         uint64
	StripeWidth       uint64
	EntriesPerObject  uint64
	InitialNumStripes uint64
	Cache             cache.Options
}

// Log is a handle to one named shared log.
type Log struct {
	name    string
	metaOid string
	be      *backend.Backend
	seq     sequencer.Sequencer
	striper *striper.Striper
	cache   *cache.ReadCache
}

func metaObjectName(name string) string {
	return fmt.Sprintf("%s.meta", name)
}

// Create initializes a brand-new log's view sequence and returns a handle
// to it.
func Create(ctx context.Context, name string, be *backend.Backend, seq sequencer.Sequencer, opts Options) (*Log, error) {
	metaOid := metaObjectName(name)
	if err := be.ViewInit(ctx, metaOid, opts.EntrySize, opts.StripeWidth, opts.EntriesPerObject, opts.InitialNumStripes); err != nil {
		return nil, err
	}
	return open(ctx, name, metaOid, be, seq, opts.Cache)
}

// Open returns a handle to an existing log, reading its current view
// sequence.
func Open(ctx context.Context, name string, be *backend.Backend, seq sequencer.Sequencer, cacheOpts cache.Options) (*Log, error) {
	return open(ctx, name, metaObjectName(name), be, seq, cacheOpts)
}

func open(ctx context.Context, name, metaOid string, be *backend.Backend, seq sequencer.Sequencer, cacheOpts cache.Options) (*Log, error) {
	l := &Log{
		name:    name,
		metaOid: metaOid,
		be:      be,
		seq:     seq,
		cache:   cache.New(cacheOpts),
	}
	l.striper = striper.New(name, l)
	if err := l.RefreshProjection(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// ExtendViews implements striper.ViewExtender.
func (l *Log) ExtendViews(ctx context.Context, position uint64) bte.BTE {
	return l.be.ViewExtend(ctx, l.metaOid, position)
}

// RefreshProjection implements striper.ViewExtender: pull every view from
// epoch 0 forward and fold any new ones into the local map. Re-adding
// already-known views is harmless; AddViews only advances past the
// striper's current epoch.
func (l *Log) RefreshProjection(ctx context.Context) bte.BTE {
	views, err := l.be.ViewRead(ctx, l.metaOid, 0)
	if err != nil {
		return err
	}
	l.striper.AddViews(views)
	return nil
}

// Append writes data to the next available position and returns it.
func (l *Log) Append(ctx context.Context, data []byte) (uint64, error) {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		position, err := l.seq.Next(ctx)
		if err != nil {
			return 0, err
		}

		oid, err := l.striper.MapPosition(ctx, position, true)
		if err != nil {
			return 0, err
		}
		if _, err := l.initDataObjectAt(oid, position); err != nil {
			return 0, err
		}

		code := l.be.Write(ctx, oid, position, data)
		switch code {
		case bte.OK:
			return position, nil
		case bte.ReadOnly:
			logger.Debugf("append: lost write race at position %d, retrying", position)
			continue
		default:
			return 0, bte.Errf(code, "append: write at %s:%d failed", oid, position)
		}
	}
	return 0, bte.Errf(bte.IOError, "append: exhausted %d retries", maxWriteRetries)
}

func (l *Log) initDataObjectAt(oid string, position uint64) (string, bte.BTE) {
	_, entrySize, stripeWidth, entriesPerObject, objectNo, ok := l.striper.ObjectParams(position)
	if !ok {
		return "", bte.Errf(bte.OutOfRange, "position %d not mapped", position)
	}
	if err := l.be.Init(context.Background(), oid, entrySize, stripeWidth, entriesPerObject, objectNo); err != nil {
		return "", err
	}
	return oid, nil
}

// Read returns the entry written at position, or a bte.NotWritten /
// bte.Invalidated error if the slot was never filled or was invalidated.
func (l *Log) Read(ctx context.Context, position uint64) ([]byte, error) {
	oid, err := l.striper.MapPosition(ctx, position, false)
	if err != nil {
		return nil, err
	}

	if data, ok := l.cache.Get(oid, position); ok {
		return data, nil
	}
	if _, err := l.initDataObjectAt(oid, position); err != nil {
		return nil, err
	}

	out, berr := l.be.Read(ctx, oid, position)
	if berr != nil {
		return nil, berr
	}
	switch out.Code {
	case bte.OK:
		l.cache.Put(oid, position, out.Data)
		return out.Data, nil
	case bte.NotWritten:
		return nil, bte.Errf(bte.NotWritten, "position %d not written", position)
	case bte.Invalidated:
		return nil, bte.Errf(bte.Invalidated, "position %d invalidated", position)
	default:
		return nil, bte.Errf(out.Code, "read %d: unexpected outcome", position)
	}
}

// Fill marks position as permanently unwritable, used by a reader that
// lost a race against a slow writer and wants to unblock anyone waiting
// on that slot (spec.md §4.2's invalidate, the non-forced "reader fill"
// path).
func (l *Log) Fill(ctx context.Context, position uint64) error {
	oid, err := l.striper.MapPosition(ctx, position, false)
	if err != nil {
		return err
	}
	if _, err := l.initDataObjectAt(oid, position); err != nil {
		return err
	}
	return l.be.Invalidate(ctx, oid, position, false)
}

// CheckTail returns the next position that Append would claim, without
// claiming it. Only available when the configured sequencer supports a
// non-destructive peek (sequencer.PeekSequencer); FakeSequencer does,
// sequencer.Client does not.
func (l *Log) CheckTail(ctx context.Context) (uint64, error) {
	peek, ok := l.seq.(sequencer.PeekSequencer)
	if !ok {
		return 0, bte.Err(bte.InvalidArgument, "checktail: configured sequencer has no peek support")
	}
	return peek.Peek(ctx)
}

// Views re-exports the log's current view sequence, for diagnostics.
func (l *Log) Views(ctx context.Context) ([]viewstore.View, error) {
	views, err := l.be.ViewRead(ctx, l.metaOid, 0)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Package backend implements the Backend façade (spec.md §4.5, component
// C6): a uniform sync/async entry point over the per-object state machine
// (internal/objectstore) and the view sequence (internal/viewstore),
// translating their outcomes into the canonical result codes of §4.6.
//
// This generalizes the teacher's Quasar façade: one struct holding the
// storage handle, exposing plain synchronous methods plus Aio* variants of
// Write and Read that take a callback, modeled on the abstract C++ Backend in
// original_source/src/include/zlog/backend.h (AioAppend/AioRead taking an
// AioCompletion).
package backend

import (
	"github.com/op/go-logging"
	"golang.org/x/net/context"

	"github.com/zlogio/zlog/bte"
	"github.com/zlogio/zlog/internal/bprovider"
	"github.com/zlogio/zlog/internal/objectstore"
	"github.com/zlogio/zlog/internal/viewstore"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Backend is the process-local façade over one object store handle,
// serving every log hosted on it.
type Backend struct {
	objects bprovider.ObjectStore
	os      *objectstore.Store
	vs      *viewstore.Store
}

// New wraps os with the object-class and view-store operations.
func New(os bprovider.ObjectStore) *Backend {
	return &Backend{
		objects: os,
		os:      objectstore.New(os),
		vs:      viewstore.New(os),
	}
}

// Init implements spec.md §4.2's init via the façade.
func (b *Backend) Init(ctx context.Context, oid string, entrySize, stripeWidth, entriesPerObject, objectID uint64) bte.BTE {
	return b.os.Init(oid, entrySize, stripeWidth, entriesPerObject, objectID)
}

// Write implements spec.md §4.5's mapping for write: AlreadyExists from the
// object store surfaces as ReadOnly, matching the C++ Backend's -EEXIST →
// ZLOG_READ_ONLY convention (a position that already has a winner is
// permanently read-only, never reopened for a second writer).
func (b *Backend) Write(ctx context.Context, oid string, position uint64, data []byte) bte.Code {
	if err := b.os.Write(oid, position, data); err != nil {
		if err.Code() == bte.AlreadyExists {
			return bte.ReadOnly
		}
		logger.Errorf("write(%s, %d): %v", oid, position, err)
		return err.Code()
	}
	return bte.OK
}

// ReadOutcome is the result of Read: Code is one of OK, NotWritten,
// Invalidated, or an error code; Data is populated only when Code == OK.
type ReadOutcome struct {
	Code bte.Code
	Data []byte
}

// Read implements spec.md §4.5's mapping for read.
func (b *Backend) Read(ctx context.Context, oid string, position uint64) (ReadOutcome, bte.BTE) {
	res, err := b.os.Read(oid, position)
	if err != nil {
		return ReadOutcome{}, err
	}
	switch res.Code {
	case bte.OK:
		return ReadOutcome{Code: bte.OK, Data: res.Data}, nil
	case bte.Unwritten:
		return ReadOutcome{Code: bte.NotWritten}, nil
	case bte.Invalidated:
		return ReadOutcome{Code: bte.Invalidated}, nil
	default:
		return ReadOutcome{}, bte.Errf(bte.IOError, "read(%s, %d): unexpected code %s", oid, position, res.Code)
	}
}

// Invalidate implements spec.md §4.2's invalidate via the façade.
func (b *Backend) Invalidate(ctx context.Context, oid string, position uint64, force bool) bte.BTE {
	return b.os.Invalidate(oid, position, force)
}

// ViewInit implements spec.md §4.3's view_init via the façade.
func (b *Backend) ViewInit(ctx context.Context, oid string, entrySize, stripeWidth, entriesPerObject, numStripes uint64) bte.BTE {
	return b.vs.ViewInit(oid, entrySize, stripeWidth, entriesPerObject, numStripes)
}

// ViewRead implements spec.md §4.3's view_read via the façade.
func (b *Backend) ViewRead(ctx context.Context, oid string, minEpoch uint64) ([]viewstore.View, bte.BTE) {
	return b.vs.ViewRead(oid, minEpoch)
}

// ViewExtend implements spec.md §4.3's view_extend via the façade.
func (b *Backend) ViewExtend(ctx context.Context, oid string, position uint64) bte.BTE {
	return b.vs.ViewExtend(oid, position)
}

// AioResult is delivered to an async callback exactly once. Completion
// contexts are heap-allocated per call and never reused, mirroring the
// teacher's per-request completion handles.
type AioResult struct {
	Code bte.Code
	Data []byte
	Err  bte.BTE
}

// aioCtx is the heap-allocated completion context for one async call; cb
// is invoked exactly once, from the single goroutine that services it.
type aioCtx struct {
	cb func(AioResult)
}

func (a *aioCtx) complete(res AioResult) {
	cb := a.cb
	a.cb = nil
	cb(res)
}

// AioWrite is the asynchronous form of Write. cb is invoked exactly once,
// from a new goroutine, once the write completes.
func (b *Backend) AioWrite(ctx context.Context, oid string, position uint64, data []byte, cb func(AioResult)) {
	c := &aioCtx{cb: cb}
	go func() {
		code := b.Write(ctx, oid, position, data)
		c.complete(AioResult{Code: code})
	}()
}

// AioRead is the asynchronous form of Read.
func (b *Backend) AioRead(ctx context.Context, oid string, position uint64, cb func(AioResult)) {
	c := &aioCtx{cb: cb}
	go func() {
		out, err := b.Read(ctx, oid, position)
		if err != nil {
			c.complete(AioResult{Code: err.Code(), Err: err})
			return
		}
		c.complete(AioResult{Code: out.Code, Data: out.Data})
	}()
}

// Package memprovider is an in-process, RAM-backed bprovider.ObjectStore.
// It is the "fake" storage implementation spec.md §9's Design Notes calls
// for ("a single capability set ... implementations are tagged variants
// ... chosen by configuration; no inheritance required") and is what the
// object-store and view-store test suites run against.
package memprovider

import (
	"sync"

	"github.com/op/go-logging"

	"github.com/zlogio/zlog/internal/bprovider"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

type object struct {
	data   []byte
	xattrs map[string][]byte
	omap   map[string][]byte
}

func newObject() *object {
	return &object{
		xattrs: make(map[string][]byte),
		omap:   make(map[string][]byte),
	}
}

// Store is a process-local collection of named objects, safe for
// concurrent use by many callers.
type Store struct {
	mu      sync.Mutex
	objects map[string]*object
	locks   map[string]*sync.Mutex
}

// New returns an empty in-memory object store.
func New() *Store {
	return &Store{
		objects: make(map[string]*object),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) get(oid string, create bool) *object {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[oid]
	if !ok {
		if !create {
			return nil
		}
		o = newObject()
		s.objects[oid] = o
	}
	return o
}

func (s *Store) lockFor(oid string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[oid]
	if !ok {
		l = &sync.Mutex{}
		s.locks[oid] = l
	}
	return l
}

// Lock implements bprovider.ObjectStore. A lock keyed independently of
// object creation (mirroring internal/cephprovider's lockFor) stands in
// for the storage cluster's per-object serializability (spec.md §5): it
// must not itself materialize the object, or Stat's exists=false branch
// for a never-Init'd object becomes unreachable.
func (s *Store) Lock(oid string) func() {
	l := s.lockFor(oid)
	l.Lock()
	return l.Unlock
}

func (s *Store) Stat(oid string) (uint64, bool, error) {
	o := s.get(oid, false)
	if o == nil {
		return 0, false, nil
	}
	return uint64(len(o.data)), true, nil
}

func (s *Store) Read(oid string, offset uint64, data []byte) (int, error) {
	o := s.get(oid, false)
	if o == nil {
		return 0, nil
	}
	if offset >= uint64(len(o.data)) {
		return 0, nil
	}
	n := copy(data, o.data[offset:])
	return n, nil
}

func (s *Store) Write(oid string, offset uint64, data []byte) error {
	o := s.get(oid, true)
	end := offset + uint64(len(data))
	if uint64(len(o.data)) < end {
		grown := make([]byte, end)
		copy(grown, o.data)
		o.data = grown
	}
	copy(o.data[offset:end], data)
	return nil
}

func (s *Store) GetXattr(oid, name string) ([]byte, bool, error) {
	o := s.get(oid, false)
	if o == nil {
		return nil, false, nil
	}
	v, ok := o.xattrs[name]
	return v, ok, nil
}

func (s *Store) SetXattr(oid, name string, data []byte) error {
	o := s.get(oid, true)
	cp := make([]byte, len(data))
	copy(cp, data)
	o.xattrs[name] = cp
	return nil
}

func (s *Store) MapGetVal(oid, key string) ([]byte, bool, error) {
	o := s.get(oid, false)
	if o == nil {
		return nil, false, nil
	}
	v, ok := o.omap[key]
	return v, ok, nil
}

func (s *Store) MapSetVal(oid, key string, data []byte) error {
	o := s.get(oid, true)
	cp := make([]byte, len(data))
	copy(cp, data)
	o.omap[key] = cp
	return nil
}

var _ bprovider.ObjectStore = (*Store)(nil)

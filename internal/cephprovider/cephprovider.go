// Package cephprovider is a bprovider.ObjectStore backed by a single
// connection to a Ceph RADOS pool, using github.com/ceph/go-ceph/rados
// exactly as the teacher's cephprovider.go talks to RADOS: per-object
// extended attributes for metadata, a per-object omap for the view
// sequence, and plain offset/length reads and writes for slot data.
//
// True atomic cross-process read-modify-write on a single object is one
// of the explicit external collaborators spec.md §1 places out of scope
// ("The underlying object store (providing atomic per-object
// read-modify-write...)"); in production this is what a compiled cls_zlog
// object-class method provides inside the OSD. This package assumes that
// guarantee and adds an in-process per-object mutex on top of it, the
// same belt-and-suspenders pattern the teacher uses for its own segment
// and annotation locks in the original cephprovider.go.
package cephprovider

import (
	"sync"

	"github.com/ceph/go-ceph/rados"
	"github.com/op/go-logging"

	"github.com/zlogio/zlog/internal/bprovider"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

// Config names the RADOS cluster and pool a Store should use, mirroring
// the teacher's configprovider.Configuration accessors
// (cfg.StorageCephConf(), cfg.StorageCephDataPool()).
type Config struct {
	ClusterName string // e.g. "ceph"
	UserName    string // e.g. "client.admin"
	ConfFile    string // path to ceph.conf; empty uses the default search path
	Pool        string // data pool holding log objects
}

// maxXattrSize bounds the fixed-width metadata records this module reads
// back from an xattr; all such records are well under this (the largest
// is a data object's 32-byte meta record).
const maxXattrSize = 4096

// Store is a bprovider.ObjectStore backed by one RADOS IOContext.
type Store struct {
	cfg  Config
	conn *rados.Conn
	ctx  *rados.IOContext

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open connects to the configured RADOS cluster and pool.
func Open(cfg Config) (*Store, error) {
	conn, err := rados.NewConnWithClusterAndUser(cfg.ClusterName, cfg.UserName)
	if err != nil {
		return nil, err
	}
	if cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(cfg.ConfFile); err != nil {
			return nil, err
		}
	} else if err := conn.ReadDefaultConfigFile(); err != nil {
		logger.Warningf("no ceph config file found, relying on defaults: %v", err)
	}

	if err := conn.Connect(); err != nil {
		return nil, err
	}

	ctx, err := conn.OpenIOContext(cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return nil, err
	}

	return &Store{
		cfg:   cfg,
		conn:  conn,
		ctx:   ctx,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the RADOS connection.
func (s *Store) Close() {
	s.ctx.Destroy()
	s.conn.Shutdown()
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

// Lock implements bprovider.ObjectStore.
func (s *Store) Lock(oid string) func() {
	l := s.lockFor(oid)
	l.Lock()
	return l.Unlock
}

func (s *Store) Stat(oid string) (uint64, bool, error) {
	stat, err := s.ctx.Stat(oid)
	if err != nil {
		if err == rados.RadosErrorNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return stat.Size, true, nil
}

func (s *Store) Read(oid string, offset uint64, data []byte) (int, error) {
	n, err := s.ctx.Read(oid, data, offset)
	if err != nil {
		if err == rados.RadosErrorNotFound {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (s *Store) Write(oid string, offset uint64, data []byte) error {
	return s.ctx.Write(oid, data, offset)
}

func (s *Store) GetXattr(oid, name string) ([]byte, bool, error) {
	buf := make([]byte, maxXattrSize)
	n, err := s.ctx.GetXattr(oid, name, buf)
	if err != nil {
		if err == rados.RadosErrorNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return buf[:n], true, nil
}

func (s *Store) SetXattr(oid, name string, data []byte) error {
	return s.ctx.SetXattr(oid, name, data)
}

func (s *Store) MapGetVal(oid, key string) ([]byte, bool, error) {
	vals, err := s.ctx.GetOmapValues(oid, "", key, 1)
	if err != nil {
		if err == rados.RadosErrorNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	v, ok := vals[key]
	return v, ok, nil
}

func (s *Store) MapSetVal(oid, key string, data []byte) error {
	return s.ctx.SetOmap(oid, map[string][]byte{key: data})
}

var _ bprovider.ObjectStore = (*Store)(nil)

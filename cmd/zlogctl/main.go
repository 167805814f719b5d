// Command zlogctl is a small operator CLI over the log facade, the
// generalized analogue of the teacher's httpinterface commands but
// exposed as a terminal tool instead of an HTTP handler, using
// github.com/alecthomas/kong the way AKJUS-bsc-erigon's go.mod pulls it
// in for its own command tree.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/op/go-logging"
	"github.com/pborman/uuid"
	"golang.org/x/net/context"

	"github.com/zlogio/zlog/backend"
	"github.com/zlogio/zlog/cache"
	"github.com/zlogio/zlog/internal/bprovider"
	"github.com/zlogio/zlog/internal/cephprovider"
	"github.com/zlogio/zlog/internal/memprovider"
	"github.com/zlogio/zlog/log"
	"github.com/zlogio/zlog/sequencer"
)

var logger *logging.Logger

func init() {
	logger = logging.MustGetLogger("log")
}

type storeFlags struct {
	Backend     string `enum:"mem,ceph" default:"mem" help:"object store backend to use."`
	CephCluster string `default:"ceph" help:"ceph cluster name (backend=ceph only)."`
	CephUser    string `default:"client.admin" help:"ceph user name (backend=ceph only)."`
	CephConf    string `help:"path to ceph.conf (backend=ceph only)."`
	CephPool    string `help:"ceph data pool (backend=ceph only)."`
}

func (f storeFlags) open() (bprovider.ObjectStore, func(), error) {
	switch f.Backend {
	case "ceph":
		s, err := cephprovider.Open(cephprovider.Config{
			ClusterName: f.CephCluster,
			UserName:    f.CephUser,
			ConfFile:    f.CephConf,
			Pool:        f.CephPool,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memprovider.New(), func() {}, nil
	}
}

type createCmd struct {
	storeFlags
	Name             string `arg:"" help:"log name."`
	EntrySize        uint64 `default:"4096" help:"bytes reserved per slot."`
	StripeWidth      uint64 `default:"4" help:"objects touched per stripe."`
	EntriesPerObject uint64 `default:"1024" help:"entries stored per object."`
	NumStripes       uint64 `default:"16" help:"stripes in the initial view."`
}

func (c *createCmd) Run() error {
	os, closeStore, err := c.open()
	if err != nil {
		return err
	}
	defer closeStore()

	be := backend.New(os)
	seq := sequencer.NewFake(0)
	_, err = log.Create(context.Background(), c.Name, be, seq, log.Options{
		EntrySize:         c.EntrySize,
		StripeWidth:       c.StripeWidth,
		EntriesPerObject:  c.EntriesPerObject,
		InitialNumStripes: c.NumStripes,
		Cache:             cache.Options{MaxEntries: 1024},
	})
	if err != nil {
		return err
	}
	fmt.Printf("created log %q\n", c.Name)
	return nil
}

type appendCmd struct {
	storeFlags
	Name string `arg:"" help:"log name."`
	Data string `arg:"" help:"payload to append."`
}

func (c *appendCmd) Run() error {
	reqID := uuid.NewRandom()
	logger.Debugf("request %s: append to %q", reqID, c.Name)

	os, closeStore, err := c.open()
	if err != nil {
		return err
	}
	defer closeStore()

	be := backend.New(os)
	seq := sequencer.NewFake(0)
	l, err := log.Open(context.Background(), c.Name, be, seq, cache.Options{MaxEntries: 1024})
	if err != nil {
		return err
	}
	pos, err := l.Append(context.Background(), []byte(c.Data))
	if err != nil {
		return err
	}
	fmt.Printf("appended at position %d\n", pos)
	return nil
}

type readCmd struct {
	storeFlags
	Name     string `arg:"" help:"log name."`
	Position uint64 `arg:"" help:"position to read."`
}

func (c *readCmd) Run() error {
	os, closeStore, err := c.open()
	if err != nil {
		return err
	}
	defer closeStore()

	be := backend.New(os)
	seq := sequencer.NewFake(0)
	l, err := log.Open(context.Background(), c.Name, be, seq, cache.Options{MaxEntries: 1024})
	if err != nil {
		return err
	}
	data, err := l.Read(context.Background(), c.Position)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", data)
	return nil
}

type tailCmd struct {
	storeFlags
	Name string `arg:"" help:"log name."`
}

func (c *tailCmd) Run() error {
	os, closeStore, err := c.open()
	if err != nil {
		return err
	}
	defer closeStore()

	be := backend.New(os)
	seq := sequencer.NewFake(0)
	l, err := log.Open(context.Background(), c.Name, be, seq, cache.Options{MaxEntries: 1024})
	if err != nil {
		return err
	}
	tail, err := l.CheckTail(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", tail)
	return nil
}

type fillCmd struct {
	storeFlags
	Name     string `arg:"" help:"log name."`
	Position uint64 `arg:"" help:"position to invalidate."`
}

func (c *fillCmd) Run() error {
	os, closeStore, err := c.open()
	if err != nil {
		return err
	}
	defer closeStore()

	be := backend.New(os)
	seq := sequencer.NewFake(0)
	l, err := log.Open(context.Background(), c.Name, be, seq, cache.Options{MaxEntries: 1024})
	if err != nil {
		return err
	}
	return l.Fill(context.Background(), c.Position)
}

type seqdCmd struct {
	Addr string `default:":5678" help:"address to listen on."`
}

func (c *seqdCmd) Run() error {
	srv, err := sequencer.Listen(c.Addr, 0)
	if err != nil {
		return err
	}
	logger.Infof("sequencer listening on %s", srv.Addr())
	return srv.Serve()
}

var cli struct {
	Create createCmd `cmd:"" help:"create a new log."`
	Append appendCmd `cmd:"" help:"append an entry and print its position."`
	Read   readCmd   `cmd:"" help:"read an entry at a position."`
	Tail   tailCmd   `cmd:"" help:"print the next position that would be claimed."`
	Fill   fillCmd   `cmd:"" help:"invalidate an unwritten position."`
	Seqd   seqdCmd   `cmd:"" help:"run a standalone sequencer service."`
}

func main() {
	ctx := kong.Parse(&cli, kong.Name("zlogctl"), kong.Description("operate on a distributed shared log."))
	if err := ctx.Run(); err != nil {
		logger.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

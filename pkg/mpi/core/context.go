// Package core implements the runtime owned by a single process: the
// per-peer reader goroutines, the wire codec, the send/recv protocol
// (including cooperative deadlock detection), and the collective
// engine. pkg/mpi wraps a Context behind the public World façade; core
// itself never reads the environment or touches a file beyond the
// endpoints it is handed.
package core

import (
	"fmt"
	"io"
	"sync"

	"github.com/jabolina/go-mpi/pkg/mpi/definition"
	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

// PeerEndpoint is the pair of byte-stream endpoints wired to one remote
// peer: Read drains frames the peer sends to us, Write carries frames
// we send to the peer. Ownership of closing Write passes to Context at
// Finalize; Read is closed by the reader goroutine once the peer has
// gone away.
type PeerEndpoint struct {
	Read  io.ReadCloser
	Write io.WriteCloser
}

// ContextConfig parameterizes a Context. Rank and WorldSize must be
// consistent across every process in the group; DeadlockDetection and
// ProtocolVersion likewise, since either one drifting between peers
// produces protocol frames the other side does not expect.
type ContextConfig struct {
	Rank              int
	WorldSize         int
	DeadlockDetection bool

	// ProtocolVersion, if non-empty, is exchanged with every peer
	// during NewContext and must parse to the same semantic version
	// everywhere. Leave empty to skip the handshake entirely.
	ProtocolVersion string

	Logger definition.Logger
}

// waitSlot is the single outstanding Recv call a Context may be parked
// on at any moment; Context.recv never permits more than one because
// callers are expected to drive a single Context from a single
// goroutine of their own.
type waitSlot struct {
	active   bool
	filter   types.Filter
	received bool
	deadlock bool
}

// sendRecord is one entry of send_not_acknowledged: a send this process
// performed whose RECEIVED acknowledgment has not yet arrived.
type sendRecord struct {
	Destination int
	Tag         types.Tag
	Count       int
}

// Context is the single owned object a process uses to talk to its
// peers. There is exactly one per process; it holds no package-level
// state, so an entire world can be simulated as goroutines inside one
// test binary, each with its own Context wired over os.Pipe endpoints.
type Context struct {
	cfg ContextConfig

	mu   sync.Mutex
	cond *sync.Cond

	endpoints []PeerEndpoint

	receivedQueue []*Queue[types.Message]
	othersWaiting []*Queue[types.AckKey]
	sendNotAcked  *Queue[sendRecord]
	peerClosed    []bool

	waiting waitSlot

	invoker      Invoker
	log          definition.Logger
	finalizeOnce sync.Once
}

// NewContext validates cfg, performs the optional protocol-version
// handshake, and spawns one reader goroutine per peer. endpoints must
// have exactly WorldSize entries; the entry at index Rank is ignored.
func NewContext(cfg ContextConfig, endpoints []PeerEndpoint) (*Context, error) {
	if cfg.WorldSize < 1 || cfg.WorldSize > 16 {
		return nil, fmt.Errorf("mpi: world size %d out of range [1,16]", cfg.WorldSize)
	}
	if cfg.Rank < 0 || cfg.Rank >= cfg.WorldSize {
		return nil, fmt.Errorf("mpi: rank %d out of range for world size %d", cfg.Rank, cfg.WorldSize)
	}
	if len(endpoints) != cfg.WorldSize {
		return nil, fmt.Errorf("mpi: expected %d peer endpoints, got %d", cfg.WorldSize, len(endpoints))
	}
	if cfg.Logger == nil {
		cfg.Logger = definition.NoopLogger{}
	}

	c := &Context{
		cfg:           cfg,
		endpoints:     endpoints,
		receivedQueue: make([]*Queue[types.Message], cfg.WorldSize),
		peerClosed:    make([]bool, cfg.WorldSize),
		invoker:       NewInvoker(),
		log:           cfg.Logger,
	}
	c.cond = sync.NewCond(&c.mu)

	for p := 0; p < cfg.WorldSize; p++ {
		if p == cfg.Rank {
			continue
		}
		c.receivedQueue[p] = NewQueue[types.Message]()
	}

	if cfg.DeadlockDetection {
		c.sendNotAcked = NewQueue[sendRecord]()
		c.othersWaiting = make([]*Queue[types.AckKey], cfg.WorldSize)
		for p := 0; p < cfg.WorldSize; p++ {
			if p == cfg.Rank {
				continue
			}
			c.othersWaiting[p] = NewQueue[types.AckKey]()
		}
	}

	if err := c.handshake(); err != nil {
		return nil, err
	}

	for p := 0; p < cfg.WorldSize; p++ {
		if p == cfg.Rank {
			continue
		}
		peer := p
		c.invoker.Spawn(func() { c.runReader(peer) })
	}

	c.log.Infof("context ready, world size %d, deadlock detection %v", cfg.WorldSize, cfg.DeadlockDetection)
	return c, nil
}

// Rank returns this process's rank.
func (c *Context) Rank() int { return c.cfg.Rank }

// Size returns the world size.
func (c *Context) Size() int { return c.cfg.WorldSize }

// Finalize closes every outbound endpoint and waits for the reader
// goroutines to observe EOF and exit. It is idempotent.
func (c *Context) Finalize() error {
	c.finalizeOnce.Do(func() {
		for p := 0; p < c.cfg.WorldSize; p++ {
			if p == c.cfg.Rank {
				continue
			}
			if err := c.endpoints[p].Write.Close(); err != nil {
				c.log.Warnf("closing write endpoint to %d: %v", p, err)
			}
		}
		c.invoker.Join()
		c.log.Infof("context finalized")
	})
	return nil
}

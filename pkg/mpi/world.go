// Package mpi is the public façade over pkg/mpi/core: a World obtained
// from Bootstrap (when run under cmd/mpirun) or built directly from a
// core.Context (when wired by hand, e.g. in tests).
package mpi

import (
	"github.com/jabolina/go-mpi/pkg/mpi/core"
	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

// World is the handle a worker program holds for the lifetime of its
// participation in a run: one Rank among Size peers, able to exchange
// point-to-point messages and participate in collectives.
type World struct {
	ctx *core.Context
}

// NewWorld wraps an already-constructed Context. Bootstrap is the usual
// way to obtain a World; NewWorld is exported for callers (tests, or an
// alternative launcher) that build the Context themselves.
func NewWorld(ctx *core.Context) *World {
	return &World{ctx: ctx}
}

// Rank returns this process's rank in [0, Size).
func (w *World) Rank() int { return w.ctx.Rank() }

// Size returns the number of processes in the world.
func (w *World) Size() int { return w.ctx.Size() }

// Send delivers data to dest tagged tag. tag must be non-negative.
func (w *World) Send(data []byte, dest, tag int) error {
	return w.ctx.Send(data, dest, tag)
}

// Recv blocks until a message from source matching tag (or ANY_TAG,
// i.e. -1) arrives, copying its payload into buf.
func (w *World) Recv(buf []byte, source, tag int) error {
	return w.ctx.Recv(buf, source, tag)
}

// Barrier blocks until every process in the world has called Barrier.
func (w *World) Barrier() error {
	return w.ctx.Barrier()
}

// Bcast distributes data from root to every other process.
func (w *World) Bcast(data []byte, root int) error {
	return w.ctx.Bcast(data, root)
}

// Reduce combines send with op across every process, leaving the
// result in recv at root.
func (w *World) Reduce(send, recv []byte, op types.Op, root int) error {
	return w.ctx.Reduce(send, recv, op, root)
}

// Finalize releases this process's endpoints and waits for its reader
// goroutines to exit. Safe to call more than once.
func (w *World) Finalize() error {
	return w.ctx.Finalize()
}

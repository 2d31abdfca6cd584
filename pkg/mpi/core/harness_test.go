package core

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jabolina/go-mpi/pkg/mpi/definition"
)

// newCluster wires size in-process Contexts over os.Pipe endpoints,
// bypassing cmd/mpirun entirely: build every participant up front, hand
// the caller one *Context per rank, and let the test drive them as
// goroutines within a single binary.
func newCluster(t *testing.T, size int, deadlockDetection bool) []*Context {
	t.Helper()

	pipes := make([][]struct{ r, w *os.File }, size)
	for s := 0; s < size; s++ {
		pipes[s] = make([]struct{ r, w *os.File }, size)
		for d := 0; d < size; d++ {
			if s == d {
				continue
			}
			r, w, err := os.Pipe()
			if err != nil {
				t.Fatalf("allocating pipe %d->%d: %v", s, d, err)
			}
			pipes[s][d] = struct{ r, w *os.File }{r: r, w: w}
		}
	}

	contexts := make([]*Context, size)
	for rank := 0; rank < size; rank++ {
		endpoints := make([]PeerEndpoint, size)
		for peer := 0; peer < size; peer++ {
			if peer == rank {
				continue
			}
			endpoints[peer] = PeerEndpoint{
				Read:  pipes[peer][rank].r,
				Write: pipes[rank][peer].w,
			}
		}

		ctx, err := NewContext(ContextConfig{
			Rank:              rank,
			WorldSize:         size,
			DeadlockDetection: deadlockDetection,
			Logger:            definition.NoopLogger{},
		}, endpoints)
		if err != nil {
			t.Fatalf("constructing context for rank %d: %v", rank, err)
		}
		contexts[rank] = ctx
	}

	// Finalize waits for every peer to close its side, so the contexts
	// must be finalized concurrently rather than one after another.
	t.Cleanup(func() {
		var wg sync.WaitGroup
		for _, ctx := range contexts {
			ctx := ctx
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = ctx.Finalize()
			}()
		}
		wg.Wait()
	})

	return contexts
}

// waitOrTimeout runs cb in its own goroutine and reports whether it
// completed within duration.
func waitOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}

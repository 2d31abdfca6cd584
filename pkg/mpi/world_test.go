package mpi

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-mpi/pkg/mpi/core"
	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

// newWorldCluster wires size Worlds over os.Pipe endpoints directly,
// the same way Bootstrap would reconstruct them from a real mpirun
// launch, without actually forking any processes.
func newWorldCluster(t *testing.T, size int) []*World {
	t.Helper()

	type pipePair struct{ r, w *os.File }
	pipes := make([][]pipePair, size)
	for s := 0; s < size; s++ {
		pipes[s] = make([]pipePair, size)
		for d := 0; d < size; d++ {
			if s == d {
				continue
			}
			r, w, err := os.Pipe()
			require.NoError(t, err)
			pipes[s][d] = pipePair{r: r, w: w}
		}
	}

	worlds := make([]*World, size)
	for rank := 0; rank < size; rank++ {
		endpoints := make([]core.PeerEndpoint, size)
		for peer := 0; peer < size; peer++ {
			if peer == rank {
				continue
			}
			endpoints[peer] = core.PeerEndpoint{
				Read:  pipes[peer][rank].r,
				Write: pipes[rank][peer].w,
			}
		}
		ctx, err := core.NewContext(core.ContextConfig{
			Rank:      rank,
			WorldSize: size,
		}, endpoints)
		require.NoError(t, err)
		worlds[rank] = NewWorld(ctx)
	}

	// Finalize waits for every peer to close its side, so the worlds
	// must be finalized concurrently rather than one after another.
	t.Cleanup(func() {
		var wg sync.WaitGroup
		for _, w := range worlds {
			w := w
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = w.Finalize()
			}()
		}
		wg.Wait()
	})

	return worlds
}

func TestWorldEndToEndBcastThenReduce(t *testing.T) {
	const size = 4
	worlds := newWorldCluster(t, size)

	var wg sync.WaitGroup
	wg.Add(size)
	sums := make([][]byte, size)
	for rank := 0; rank < size; rank++ {
		rank := rank
		w := worlds[rank]
		go func() {
			defer wg.Done()

			buf := make([]byte, 2)
			if rank == 0 {
				copy(buf, []byte{3, 4})
			}
			require.NoError(t, w.Bcast(buf, 0))
			require.Equal(t, []byte{3, 4}, buf)

			require.NoError(t, w.Barrier())

			recv := make([]byte, 2)
			require.NoError(t, w.Reduce(buf, recv, types.OpSum, 0))
			sums[rank] = recv
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}

	require.Equal(t, []byte{12, 16}, sums[0])
}

func TestWorldRankAndSize(t *testing.T) {
	worlds := newWorldCluster(t, 3)
	for rank, w := range worlds {
		require.Equal(t, rank, w.Rank())
		require.Equal(t, 3, w.Size())
	}
}

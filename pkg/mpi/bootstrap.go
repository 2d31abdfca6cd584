package mpi

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/jabolina/go-mpi/pkg/mpi/core"
	"github.com/jabolina/go-mpi/pkg/mpi/definition"
)

const (
	envFDBase   = "MPI_FD_BASE"
	envSize     = "MPI_SIZE"
	envRank     = "MPI_RANK"
	envDeadlock = "MPI_DEADLOCK_DETECTION"
)

// DeadlockDetectionFromEnv reports the value of mpirun's
// --deadlock-detection flag, as published to this process via
// MPI_DEADLOCK_DETECTION. Worker programs that want to honor the
// launcher's flag rather than hard-coding the choice call this before
// Bootstrap.
func DeadlockDetectionFromEnv() bool {
	return os.Getenv(envDeadlock) == "true"
}

// Bootstrap reconstructs the peer endpoints cmd/mpirun wired via
// exec.Cmd.ExtraFiles and returns a ready World. It reads MPI_FD_BASE,
// MPI_SIZE and MPI_RANK from the environment; for every peer j != rank
// in ascending order it expects two consecutive descriptors starting at
// fd base: the read end of the pipe j->rank, then the write end of the
// pipe rank->j. This mirrors exactly the slot order the launcher built,
// since Go's ExtraFiles assignment is positional rather than a
// programmer-chosen absolute fd number.
func Bootstrap(enableDeadlockDetection bool) (*World, error) {
	base, err := envInt(envFDBase)
	if err != nil {
		return nil, err
	}
	size, err := envInt(envSize)
	if err != nil {
		return nil, err
	}
	rank, err := envInt(envRank)
	if err != nil {
		return nil, err
	}

	endpoints := make([]core.PeerEndpoint, size)
	position := 0
	for j := 0; j < size; j++ {
		if j == rank {
			continue
		}
		readFD := base + 2*position
		writeFD := base + 2*position + 1
		endpoints[j] = core.PeerEndpoint{
			Read:  os.NewFile(uintptr(readFD), fmt.Sprintf("mpi-read-%d", j)),
			Write: os.NewFile(uintptr(writeFD), fmt.Sprintf("mpi-write-%d", j)),
		}
		position++
	}

	sessionID := uuid.NewString()
	ctx, err := core.NewContext(core.ContextConfig{
		Rank:              rank,
		WorldSize:         size,
		DeadlockDetection: enableDeadlockDetection,
		ProtocolVersion:   core.DefaultProtocolVersion,
		Logger:            definition.NewDefaultLogger(rank, sessionID),
	}, endpoints)
	if err != nil {
		return nil, err
	}
	return NewWorld(ctx), nil
}

func envInt(name string) (int, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, fmt.Errorf("mpi: missing required environment variable %s (not launched via mpirun?)", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("mpi: invalid %s=%q: %w", name, raw, err)
	}
	return v, nil
}

// Command mpirun launches a world of W copies of a program, wiring a
// pre-ordered, per-pair unidirectional pipe between every two of them
// before any of them runs a line of user code.
package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"gopkg.in/alecthomas/kingpin.v2"
)

// fdBase is the first file descriptor a child sees its wired pipes at,
// thanks to exec.Cmd.ExtraFiles always starting at fd 3.
const fdBase = 3

var (
	app = kingpin.New("mpirun", "Launch a fixed-size world of cooperating processes over pre-wired pipes.")

	worldSize = app.Flag("world-size", "number of processes to start").Short('n').Required().Int()

	deadlock = app.Flag("deadlock-detection", "enable the cooperative deadlock detector in every child").
			Default("false").Bool()

	program = app.Arg("program", "the program to launch").Required().String()
	args    = app.Arg("args", "arguments passed to the program").Strings()
)

type pipePair struct {
	r, w *os.File
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	out := colorable.NewColorableStdout()
	status := color.New(color.FgCyan)

	if err := run(out, status); err != nil {
		color.New(color.FgRed).Fprintf(colorable.NewColorableStderr(), "mpirun: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, status *color.Color) error {
	size := *worldSize
	if size < 1 || size > 16 {
		return fmt.Errorf("world-size must be between 1 and 16, got %d", size)
	}

	pipes := make([][]pipePair, size)
	for s := 0; s < size; s++ {
		pipes[s] = make([]pipePair, size)
		for d := 0; d < size; d++ {
			if s == d {
				continue
			}
			r, w, err := os.Pipe()
			if err != nil {
				return fmt.Errorf("allocating pipe %d->%d: %w", s, d, err)
			}
			pipes[s][d] = pipePair{r: r, w: w}
		}
	}

	status.Fprintf(out, "mpirun: launching %d processes running %s\n", size, *program)

	cmds := make([]*exec.Cmd, size)
	for rank := 0; rank < size; rank++ {
		var extra []*os.File
		for peer := 0; peer < size; peer++ {
			if peer == rank {
				continue
			}
			// read end of peer->rank, then write end of rank->peer,
			// matching the order pkg/mpi.Bootstrap expects.
			extra = append(extra, pipes[peer][rank].r, pipes[rank][peer].w)
		}

		cmd := exec.Command(*program, *args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.ExtraFiles = extra
		cmd.Env = append(os.Environ(),
			fmt.Sprintf("MPI_FD_BASE=%d", fdBase),
			fmt.Sprintf("MPI_SIZE=%d", size),
			fmt.Sprintf("MPI_RANK=%d", rank),
			fmt.Sprintf("MPI_DEADLOCK_DETECTION=%t", *deadlock),
		)

		if err := cmd.Start(); err != nil {
			return fmt.Errorf("starting rank %d: %w", rank, err)
		}
		cmds[rank] = cmd
	}

	// The children now hold their own duplicated descriptors; the
	// parent's copies would otherwise keep every pipe's write end open
	// and readers would never observe EOF at Finalize.
	for s := 0; s < size; s++ {
		for d := 0; d < size; d++ {
			if s == d {
				continue
			}
			pipes[s][d].r.Close()
			pipes[s][d].w.Close()
		}
	}

	var firstErr error
	for rank, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			color.New(color.FgRed).Fprintf(out, "mpirun: rank %d exited: %v\n", rank, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		status.Fprintf(out, "mpirun: rank %d finished\n", rank)
	}
	return firstErr
}

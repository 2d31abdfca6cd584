package types

import "errors"

// Sentinel errors returned by the public operations. Callers compare
// with errors.Is; internal assert-style failures panic instead of
// returning one of these.
var (
	// ErrNoSuchRank is returned when a rank argument falls outside
	// [0, World size).
	ErrNoSuchRank = errors.New("mpi: no such rank")

	// ErrSelfOp is returned when a source/destination rank equals the
	// caller's own rank.
	ErrSelfOp = errors.New("mpi: attempted operation on own rank")

	// ErrRemoteFinished is returned when a peer involved in the
	// operation (directly, or transitively through a collective) has
	// already exited or called Finalize.
	ErrRemoteFinished = errors.New("mpi: remote peer finished")

	// ErrDeadlockDetected is returned only when deadlock detection is
	// enabled and a two-party mutual wait was proved.
	ErrDeadlockDetected = errors.New("mpi: deadlock detected")

	// ErrProtocolMismatch is returned by NewContext when two peers
	// disagree on the wire protocol version during the handshake.
	ErrProtocolMismatch = errors.New("mpi: protocol version mismatch")
)

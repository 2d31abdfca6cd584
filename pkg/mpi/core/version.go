package core

import (
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

// DefaultProtocolVersion is the wire protocol version Bootstrap hands to
// NewContext in every process launched by cmd/mpirun.
const DefaultProtocolVersion = "1.0.0"

// versionHandshakeTag is a frame tag reserved for the handshake below.
// It sits well outside the range any real Tag constant occupies, so it
// can never be confused with a reduce carrier or other sentinel once
// the reader goroutines start.
const versionHandshakeTag types.Tag = -1000

// handshake exchanges ProtocolVersion with every peer before any reader
// goroutine is spawned, so it can use blocking reads/writes directly on
// the endpoints without any risk of racing the dispatch loop. Skipped
// entirely when ProtocolVersion is empty.
func (c *Context) handshake() error {
	if c.cfg.ProtocolVersion == "" {
		return nil
	}
	want, err := version.NewVersion(c.cfg.ProtocolVersion)
	if err != nil {
		return fmt.Errorf("mpi: invalid protocol version %q: %w", c.cfg.ProtocolVersion, err)
	}

	payload := []byte(c.cfg.ProtocolVersion)
	for p := 0; p < c.cfg.WorldSize; p++ {
		if p == c.cfg.Rank {
			continue
		}
		if err := c.writeFrame(p, versionHandshakeTag, len(payload), payload); err != nil {
			return err
		}
	}

	for p := 0; p < c.cfg.WorldSize; p++ {
		if p == c.cfg.Rank {
			continue
		}
		count, tag, err := readHeader(c.endpoints[p].Read)
		if err != nil {
			return err
		}
		if tag != versionHandshakeTag {
			return types.ErrProtocolMismatch
		}
		buf, err := readExact(c.endpoints[p].Read, count)
		if err != nil {
			return err
		}
		got, err := version.NewVersion(string(buf))
		if err != nil {
			return types.ErrProtocolMismatch
		}
		if !got.Equal(want) {
			return types.ErrProtocolMismatch
		}
	}
	return nil
}

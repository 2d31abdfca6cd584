package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/go-mpi/pkg/mpi/definition"
	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

func wirePair(t *testing.T) (PeerEndpoint, PeerEndpoint) {
	t.Helper()
	r01, w01, err := os.Pipe()
	require.NoError(t, err)
	r10, w10, err := os.Pipe()
	require.NoError(t, err)
	return PeerEndpoint{Read: r10, Write: w01}, PeerEndpoint{Read: r01, Write: w10}
}

func TestHandshakeSucceedsOnMatchingVersions(t *testing.T) {
	a, b := wirePair(t)

	type outcome struct {
		ctx *Context
		err error
	}
	results := make(chan outcome, 2)
	go func() {
		ctx, err := NewContext(ContextConfig{
			Rank: 0, WorldSize: 2, ProtocolVersion: "1.0.0", Logger: definition.NoopLogger{},
		}, []PeerEndpoint{{}, a})
		results <- outcome{ctx, err}
	}()
	go func() {
		ctx, err := NewContext(ContextConfig{
			Rank: 1, WorldSize: 2, ProtocolVersion: "1.0.0", Logger: definition.NoopLogger{},
		}, []PeerEndpoint{b, {}})
		results <- outcome{ctx, err}
	}()

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	t.Cleanup(func() {
		done := make(chan struct{})
		go func() {
			_ = first.ctx.Finalize()
			close(done)
		}()
		_ = second.ctx.Finalize()
		<-done
	})
}

func TestHandshakeFailsOnMismatchedVersions(t *testing.T) {
	a, b := wirePair(t)

	results := make(chan error, 2)
	go func() {
		_, err := NewContext(ContextConfig{
			Rank: 0, WorldSize: 2, ProtocolVersion: "1.0.0", Logger: definition.NoopLogger{},
		}, []PeerEndpoint{{}, a})
		results <- err
	}()
	go func() {
		_, err := NewContext(ContextConfig{
			Rank: 1, WorldSize: 2, ProtocolVersion: "2.0.0", Logger: definition.NoopLogger{},
		}, []PeerEndpoint{b, {}})
		results <- err
	}()

	first := <-results
	second := <-results
	require.True(t, first == types.ErrProtocolMismatch || second == types.ErrProtocolMismatch)
}

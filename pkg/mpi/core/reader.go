package core

import "github.com/jabolina/go-mpi/pkg/mpi/types"

// runReader is the one goroutine per peer that drains that peer's
// inbound endpoint, decodes frames, and dispatches them. It owns no
// state of its own beyond the loop variables; everything it touches
// lives on Context and is guarded by c.mu.
func (c *Context) runReader(peer int) {
	defer c.log.Debugf("reader for peer %d stopped", peer)
	ep := c.endpoints[peer].Read

	for {
		count, tag, err := readHeader(ep)
		if err != nil {
			c.markPeerClosed(peer)
			break
		}

		var data []byte
		if tag.IsPayloadBearing() && count > 0 {
			data, err = readExact(ep, count)
			if err != nil {
				c.markPeerClosed(peer)
				break
			}
		}

		c.dispatch(peer, tag, count, data)
	}

	if err := ep.Close(); err != nil {
		c.log.Warnf("closing read endpoint for peer %d: %v", peer, err)
	}
}

// markPeerClosed records that peer's inbound endpoint reached EOF (or
// errored) and wakes a Recv parked waiting on that peer.
func (c *Context) markPeerClosed(peer int) {
	c.mu.Lock()
	c.peerClosed[peer] = true
	if c.waiting.active && c.waiting.filter.Source == peer {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

// dispatch routes one decoded frame from peer into Context state,
// signaling the condition variable whenever it changes something a
// parked Recv might be waiting on.
func (c *Context) dispatch(peer int, tag types.Tag, count int, data []byte) {
	switch tag {
	case types.Deadlock:
		c.mu.Lock()
		c.waiting.deadlock = true
		c.waiting.received = true
		c.cond.Broadcast()
		c.mu.Unlock()

	case types.Waiting:
		if c.sendNotAcked == nil {
			return
		}
		ack := decodeAckKey(data)
		c.mu.Lock()
		_, _, matched := c.sendNotAcked.FindFirstMatching(func(r sendRecord) bool {
			return r.Destination == peer && r.Tag == ack.Tag && r.Count == ack.Count
		})
		if !matched {
			c.othersWaiting[peer].PushBack(ack)
			if c.waiting.active && !c.waiting.received && c.waiting.filter.Source == peer {
				c.waiting.deadlock = true
				c.waiting.received = true
				c.cond.Broadcast()
			}
		}
		c.mu.Unlock()

	case types.Received:
		if c.sendNotAcked == nil {
			return
		}
		ack := decodeAckKey(data)
		c.mu.Lock()
		if _, idx, ok := c.sendNotAcked.FindFirstMatching(func(r sendRecord) bool {
			return r.Destination == peer && r.Tag == ack.Tag && r.Count == ack.Count
		}); ok {
			c.sendNotAcked.RemoveAt(idx)
		}
		c.mu.Unlock()

	default:
		msg := types.Message{Source: peer, Tag: tag, Count: count, Data: data}
		c.mu.Lock()
		c.receivedQueue[peer].PushBack(msg)
		if c.waiting.active && !c.waiting.received && c.waiting.filter.Matches(msg) {
			c.waiting.received = true
			c.cond.Broadcast()
		}
		c.mu.Unlock()
	}
}

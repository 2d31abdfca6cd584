package core

import "github.com/jabolina/go-mpi/pkg/mpi/types"

func (c *Context) checkRank(rank int) error {
	if rank < 0 || rank >= c.cfg.WorldSize {
		return types.ErrNoSuchRank
	}
	return nil
}

func (c *Context) checkSelf(rank int) error {
	if rank == c.cfg.Rank {
		return types.ErrSelfOp
	}
	return nil
}

// Send delivers data to destination tagged tag. tag must be a
// non-negative user tag chosen by the caller.
func (c *Context) Send(data []byte, destination, tag int) error {
	if err := c.checkRank(destination); err != nil {
		return err
	}
	if err := c.checkSelf(destination); err != nil {
		return err
	}
	return c.send(data, len(data), destination, types.Tag(tag))
}

// Recv blocks until a message from source matching tag (or AnyTag)
// arrives, copying its payload into buf. buf's length selects which
// outstanding message this call can match.
func (c *Context) Recv(buf []byte, source, tag int) error {
	if err := c.checkRank(source); err != nil {
		return err
	}
	if err := c.checkSelf(source); err != nil {
		return err
	}
	return c.recv(buf, len(buf), source, types.Tag(tag))
}

// send is the internal engine behind both the public Send and the
// collective engine's up/down phases. Deadlock bookkeeping only applies
// to user tags; collectives carry internal tags and skip it entirely.
func (c *Context) send(data []byte, count, destination int, tag types.Tag) error {
	if c.cfg.DeadlockDetection && tag.IsUserTag() {
		c.mu.Lock()
		if head, ok := c.othersWaiting[destination].Front(); ok && head.Count == count && head.Tag == tag {
			c.othersWaiting[destination].RemoveFront()
		}
		c.sendNotAcked.PushBack(sendRecord{Destination: destination, Tag: tag, Count: count})
		c.mu.Unlock()
	}
	return c.writeFrame(destination, tag, count, data)
}

// recv is the internal engine behind both the public Recv and the
// collective engine. The WAITING/RECEIVED/DEADLOCK metadata frames are
// written while c.mu is held: that ordering is what makes the deadlock
// protocol sound, since it guarantees a peer's reader can never observe
// our WAITING notification before we have recorded it is outstanding.
func (c *Context) recv(buf []byte, count, source int, tag types.Tag) error {
	filter := types.Filter{Source: source, Count: count, Tag: tag}

	c.mu.Lock()

	if msg, idx, ok := c.receivedQueue[source].FindFirstMatching(func(m types.Message) bool { return filter.Matches(m) }); ok {
		c.receivedQueue[source].RemoveAt(idx)
		c.ackReceiveLocked(source, tag, count)
		c.mu.Unlock()
		deliver(buf, tag, msg)
		return nil
	}

	c.waiting = waitSlot{active: true, filter: filter}

	if c.cfg.DeadlockDetection && tag.IsUserTag() {
		if head, ok := c.othersWaiting[source].Front(); ok && head.Tag.IsUserTag() {
			c.othersWaiting[source].RemoveFront()
			c.waiting = waitSlot{}
			_ = c.writeFrame(source, types.Deadlock, -1, nil)
			c.mu.Unlock()
			return types.ErrDeadlockDetected
		}

		ack := encodeAckKey(types.AckKey{Count: count, Tag: tag})
		if err := c.writeFrame(source, types.Waiting, len(ack), ack); err != nil {
			c.waiting = waitSlot{}
			c.mu.Unlock()
			return types.ErrRemoteFinished
		}
	}

	for !c.waiting.received && !c.peerClosed[source] {
		c.cond.Wait()
	}

	if c.waiting.deadlock {
		c.waiting = waitSlot{}
		c.othersWaiting[source].RemoveFront()
		c.mu.Unlock()
		return types.ErrDeadlockDetected
	}

	if !c.waiting.received {
		c.waiting = waitSlot{}
		c.mu.Unlock()
		return types.ErrRemoteFinished
	}

	msg, idx, ok := c.receivedQueue[source].FindFirstMatching(func(m types.Message) bool { return filter.Matches(m) })
	if !ok {
		c.mu.Unlock()
		panic("mpi: recv woke up with a match but found nothing queued")
	}
	c.receivedQueue[source].RemoveAt(idx)
	c.waiting = waitSlot{}
	c.ackReceiveLocked(source, tag, count)
	c.mu.Unlock()

	deliver(buf, tag, msg)
	return nil
}

// ackReceiveLocked emits the RECEIVED acknowledgment frame while c.mu
// is still held, matching the happens-before requirement above. Its
// failure is not itself reported: the Recv it belongs to has already
// succeeded, and the peer finding out their send went unacknowledged is
// their problem to discover on their own next Send.
func (c *Context) ackReceiveLocked(source int, tag types.Tag, count int) {
	if !c.cfg.DeadlockDetection || !tag.IsUserTag() {
		return
	}
	ack := encodeAckKey(types.AckKey{Count: count, Tag: tag})
	_ = c.writeFrame(source, types.Received, len(ack), ack)
}

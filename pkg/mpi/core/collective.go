package core

import "github.com/jabolina/go-mpi/pkg/mpi/types"

// lp returns the largest power of two dividing k, with lp(0) defined as
// 0. A fixed lookup table keyed by world size was considered instead,
// but it disagrees with k & -k for most odd and doubly-even ranks once
// world size exceeds 2, so the tree ends up with the wrong parent for
// those ranks; computing it directly avoids that.
func lp(k int) int {
	if k <= 0 {
		return 0
	}
	return k & (-k)
}

// mapRank swaps the roles of rank 0 and root so that the binomial tree,
// which is always built rooted at 0, can serve an arbitrary semantic
// root. The mapping is its own inverse.
func mapRank(rank, root int) int {
	switch rank {
	case root:
		return 0
	case 0:
		return root
	default:
		return rank
	}
}

// treeParent returns the binomial-tree parent of treeRank, rooted at 0.
func treeParent(treeRank int) int {
	return treeRank - lp(treeRank)
}

// treeChildren returns, in increasing tree-rank order, every rank whose
// treeParent is treeRank. It is computed by inverting treeParent over
// the (small, <= 16) rank domain rather than by direct enumeration of
// treeRank + lp(treeRank)*2^i, since that formula is degenerate at the
// root: lp(0) == 0 would make every "child" equal to the root itself.
func treeChildren(treeRank, worldSize int) []int {
	var children []int
	for j := 0; j < worldSize; j++ {
		if j == treeRank {
			continue
		}
		if treeParent(j) == treeRank {
			children = append(children, j)
		}
	}
	return children
}

// upPhase receives from every child (in tree order) and, unless this
// process is the tree root, forwards to its parent.
func (c *Context) upPhase(data []byte, count int, tag types.Tag, root int) error {
	treeRank := mapRank(c.cfg.Rank, root)
	for _, child := range treeChildren(treeRank, c.cfg.WorldSize) {
		if err := c.recv(data, count, mapRank(child, root), tag); err != nil {
			return err
		}
	}
	if treeRank != 0 {
		if err := c.send(data, count, mapRank(treeParent(treeRank), root), tag); err != nil {
			return err
		}
	}
	return nil
}

// downPhase receives from the parent (unless this process is the tree
// root) and forwards to every child in tree order.
func (c *Context) downPhase(data []byte, count int, tag types.Tag, root int) error {
	treeRank := mapRank(c.cfg.Rank, root)
	if treeRank != 0 {
		if err := c.recv(data, count, mapRank(treeParent(treeRank), root), tag); err != nil {
			return err
		}
	}
	for _, child := range treeChildren(treeRank, c.cfg.WorldSize) {
		if err := c.send(data, count, mapRank(child, root), tag); err != nil {
			return err
		}
	}
	return nil
}

// Barrier blocks until every process in the world has entered Barrier,
// via a metadata-only up-phase followed by a metadata-only down-phase
// rooted at rank 0.
func (c *Context) Barrier() error {
	if err := c.upPhase(nil, -1, types.NoMessage, 0); err != nil {
		return err
	}
	return c.downPhase(nil, -1, types.NoMessage, 0)
}

// Bcast distributes data from root to every other process. Non-root
// callers must pass a buffer of the same length as root's data; it is
// overwritten with the broadcast payload.
func (c *Context) Bcast(data []byte, root int) error {
	if err := c.checkRank(root); err != nil {
		return err
	}
	count := len(data)
	if err := c.upPhase(nil, -1, types.NoMessage, root); err != nil {
		return err
	}
	return c.downPhase(data, count, types.Broadcast, root)
}

// Reduce combines sendData from every process with op, byte lane by
// byte lane, leaving the result in recvData at root only. recvData is
// untouched on non-root callers.
func (c *Context) Reduce(sendData, recvData []byte, op types.Op, root int) error {
	if err := c.checkRank(root); err != nil {
		return err
	}
	count := len(sendData)
	scratch := make([]byte, count)
	copy(scratch, sendData)
	tag := op.CarrierTag()

	treeRank := mapRank(c.cfg.Rank, root)
	for _, child := range treeChildren(treeRank, c.cfg.WorldSize) {
		// recv folds the child's payload into scratch in place via
		// deliver's reduce-carrier branch.
		if err := c.recv(scratch, count, mapRank(child, root), tag); err != nil {
			return err
		}
	}
	if treeRank != 0 {
		if err := c.send(scratch, count, mapRank(treeParent(treeRank), root), tag); err != nil {
			return err
		}
	} else {
		copy(recvData, scratch)
	}

	return c.downPhase(nil, -1, types.NoMessage, root)
}

package core

import "github.com/jabolina/go-mpi/pkg/mpi/types"

// deliver copies a matched message's payload into the caller's buffer,
// or folds it into an in-place reduce accumulator, depending on tag.
func deliver(buf []byte, tag types.Tag, msg types.Message) {
	switch {
	case tag == types.NoMessage:
		return
	case tag.IsReduceCarrier():
		applyOp(types.ReduceOpFor(tag), buf, msg.Data)
	default:
		if buf != nil && msg.Data != nil {
			copy(buf, msg.Data)
		}
	}
}

// applyOp folds src into dst byte-by-byte. Every lane is an independent
// uint8; SUM and PROD wrap at 256 for free, since Go's byte arithmetic
// is already modular.
func applyOp(op types.Op, dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		switch op {
		case types.OpMax:
			if src[i] > dst[i] {
				dst[i] = src[i]
			}
		case types.OpMin:
			if src[i] < dst[i] {
				dst[i] = src[i]
			}
		case types.OpSum:
			dst[i] += src[i]
		case types.OpProd:
			dst[i] *= src[i]
		}
	}
}

package core

import (
	"encoding/binary"
	"io"

	"github.com/jabolina/go-mpi/pkg/mpi/types"
)

// headerSize is the fixed 8-byte frame header: a little-endian int32
// count followed by a little-endian int32 tag.
const headerSize = 8

// readExact reads exactly n bytes from r, looping over short reads the
// way a pipe or socket routinely produces them. A read error before n
// bytes accumulate is returned verbatim (io.EOF included) so callers can
// tell a clean peer shutdown from a broken one.
func readExact(r io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read := 0
	for read < n {
		k, err := r.Read(buf[read:])
		read += k
		if err != nil {
			if read == n {
				return buf, nil
			}
			return nil, err
		}
		if k == 0 {
			return nil, io.ErrClosedPipe
		}
	}
	return buf, nil
}

// writeExact writes every byte of buf, looping over short writes.
func writeExact(w io.Writer, buf []byte) error {
	written := 0
	for written < len(buf) {
		k, err := w.Write(buf[written:])
		written += k
		if err != nil {
			return err
		}
		if k == 0 {
			return io.ErrClosedPipe
		}
	}
	return nil
}

// readHeader decodes one frame header from r.
func readHeader(r io.Reader) (int, types.Tag, error) {
	buf, err := readExact(r, headerSize)
	if err != nil {
		return 0, 0, err
	}
	count := int(int32(binary.LittleEndian.Uint32(buf[0:4])))
	tag := types.Tag(int32(binary.LittleEndian.Uint32(buf[4:8])))
	return count, tag, nil
}

// writeFrame encodes and writes one frame to the peer at destination.
// Any I/O failure is reported uniformly as ErrRemoteFinished: from the
// sender's point of view a broken pipe and a peer that exited look the
// same.
func (c *Context) writeFrame(destination int, tag types.Tag, count int, data []byte) error {
	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(int32(count)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(int32(tag)))

	w := c.endpoints[destination].Write
	if err := writeExact(w, header); err != nil {
		return types.ErrRemoteFinished
	}
	if tag.IsPayloadBearing() && count > 0 {
		if err := writeExact(w, data); err != nil {
			return types.ErrRemoteFinished
		}
	}
	return nil
}

// encodeAckKey/decodeAckKey (de)serialize the 8-byte embedded payload
// carried by Waiting and Received frames.
func encodeAckKey(a types.AckKey) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(a.Count)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(a.Tag)))
	return buf
}

func decodeAckKey(buf []byte) types.AckKey {
	return types.AckKey{
		Count: int(int32(binary.LittleEndian.Uint32(buf[0:4]))),
		Tag:   types.Tag(int32(binary.LittleEndian.Uint32(buf[4:8]))),
	}
}

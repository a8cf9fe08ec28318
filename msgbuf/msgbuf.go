// Package msgbuf implements the Message Buffer: a view over a Backing
// Buffer that overlays application payload data with pre-/in-line/post
// appended per-packet headers, so the data path can hand bytes to the
// transport without copying.
package msgbuf

import (
	"fmt"
	"unsafe"

	"github.com/nexuscore/nexus/pkthdr"
)

// wordSize is the platform word size trailing headers are aligned to.
const wordSize = 8

func roundUpWord(x uint32) uint32 {
	return (x + wordSize - 1) &^ (wordSize - 1)
}

// MsgBuf is the fundamental unit of data exchanged with the transport.
//
// Layout, given a Backing Buffer of class size >= requiredSize(maxDataSize,
// maxNumPkts):
//
//	[ pkthdr_0 | payload[0..maxDataSize) | pad | pkthdr_1 | ... | pkthdr_{N-1} ]
//
// pkthdr_0 immediately precedes the payload so the first wire packet is a
// single contiguous range. pkthdr_n for n>=1 lives in the trailing array,
// offset from maxDataSize (never dataSize), so resizing never moves a
// header a caller may already hold a pointer to.
type MsgBuf struct {
	buf         unsafe.Pointer // first payload byte
	backing     BackingBuffer  // invalid for RX-borrowed buffers
	maxDataSize uint32
	dataSize    uint32
	maxNumPkts  uint16
	numPkts     uint16

	// progress is a single counter interpreted as either pktsQueued (TX use)
	// or pktsRcvd (RX use) -- mutually exclusive arms of the same field,
	// never observed concurrently for a given MsgBuf.
	progress uint16
}

// requiredSize returns the minimum Backing Buffer size needed to hold a
// Message Buffer with the given maxDataSize/maxNumPkts.
func requiredSize(maxDataSize uint32, maxNumPkts uint16) uint64 {
	return uint64(pkthdr.Size) +
		uint64(roundUpWord(maxDataSize)) +
		uint64(maxNumPkts-1)*uint64(pkthdr.Size)
}

// New constructs an owning Message Buffer over b, arranging space for
// maxNumPkts packet headers plus a maxDataSize payload region. Panics if b
// is invalid, maxNumPkts is zero, or b's class is too small -- callers
// allocate correctly or it is a programmer bug, not a runtime failure path.
func New(b BackingBuffer, maxDataSize uint32, maxNumPkts uint16) *MsgBuf {
	if !b.Valid() {
		panic("msgbuf: cannot construct from an invalid backing buffer")
	}
	if maxNumPkts < 1 {
		panic("msgbuf: max_num_pkts must be >= 1")
	}
	need := requiredSize(maxDataSize, maxNumPkts)
	if uint64(b.Class.Size.Bytes()) < need {
		panic(fmt.Sprintf(
			"msgbuf: backing buffer class %s too small for max_data_size=%d max_num_pkts=%d (need %d bytes)",
			b.Class, maxDataSize, maxNumPkts, need,
		))
	}

	m := &MsgBuf{
		buf:         unsafe.Add(b.Base, pkthdr.Size),
		backing:     b,
		maxDataSize: maxDataSize,
		dataSize:    maxDataSize,
		maxNumPkts:  maxNumPkts,
		numPkts:     1,
	}
	h0 := m.PktHdr0()
	*h0 = pkthdr.Hdr{}
	h0.Magic = pkthdr.Magic
	return m
}

// NewRX wraps a single received packet buffer as a non-owning Message
// Buffer: max_num_pkts=1, invalid backing buffer, data_size equal to the
// packet minus its header. raw must already contain pkthdr_0 at its front,
// written there by the transport.
func NewRX(raw []byte) *MsgBuf {
	if len(raw) < int(pkthdr.Size) {
		panic("msgbuf: rx packet shorter than a packet header")
	}
	base := unsafe.Pointer(&raw[0])
	dataSize := uint32(len(raw)) - uint32(pkthdr.Size)
	return &MsgBuf{
		buf:         unsafe.Add(base, pkthdr.Size),
		backing:     Invalid,
		maxDataSize: dataSize,
		dataSize:    dataSize,
		maxNumPkts:  1,
		numPkts:     1,
	}
}

// InvalidMsgBuf is the sentinel returned wherever a caller needs a
// not-yet-constructed Message Buffer value.
func InvalidMsgBuf() *MsgBuf {
	return &MsgBuf{}
}

// PktHdr0 returns the header immediately preceding the payload.
func (m *MsgBuf) PktHdr0() *pkthdr.Hdr {
	return (*pkthdr.Hdr)(unsafe.Add(m.buf, -int(pkthdr.Size)))
}

// PktHdrN returns the n-th trailing header, n must be in [1, maxNumPkts).
// Its offset is computed from maxDataSize, not dataSize, so resize never
// invalidates a pointer a caller already holds.
func (m *MsgBuf) PktHdrN(n int) *pkthdr.Hdr {
	if n < 1 || n >= int(m.maxNumPkts) {
		panic(fmt.Sprintf("msgbuf: pkthdr index %d out of range [1,%d)", n, m.maxNumPkts))
	}
	off := uintptr(roundUpWord(m.maxDataSize)) + uintptr(n-1)*pkthdr.Size
	return (*pkthdr.Hdr)(unsafe.Add(m.buf, off))
}

// Buf returns a byte slice view of the current logical payload.
func (m *MsgBuf) Buf() []byte {
	return unsafe.Slice((*byte)(m.buf), int(m.dataSize))
}

// DataSize returns the current logical payload size.
func (m *MsgBuf) DataSize() uint32 { return m.dataSize }

// MaxDataSize returns the allocation-time payload capacity.
func (m *MsgBuf) MaxDataSize() uint32 { return m.maxDataSize }

// NumPkts returns the current logical packet count.
func (m *MsgBuf) NumPkts() uint16 { return m.numPkts }

// MaxNumPkts returns the allocation-time packet capacity.
func (m *MsgBuf) MaxNumPkts() uint16 { return m.maxNumPkts }

// Backing returns the underlying Backing Buffer handle (Invalid for
// RX-borrowed Message Buffers).
func (m *MsgBuf) Backing() BackingBuffer { return m.backing }

// PktsQueued returns the TX-side progress counter.
func (m *MsgBuf) PktsQueued() uint16 { return m.progress }

// SetPktsQueued updates the TX-side progress counter.
func (m *MsgBuf) SetPktsQueued(n uint16) { m.progress = n }

// PktsRcvd returns the RX-side progress counter. Aliases the same field as
// PktsQueued; callers never use both arms on the same Message Buffer.
func (m *MsgBuf) PktsRcvd() uint16 { return m.progress }

// SetPktsRcvd updates the RX-side progress counter.
func (m *MsgBuf) SetPktsRcvd(n uint16) { m.progress = n }

// Resize shrinks the logical data_size/num_pkts. Never reallocates, never
// moves headers, and never grows past the allocation-time maximums. Panics
// on an out-of-range request -- a usage-contract violation, not a runtime
// failure path.
func (m *MsgBuf) Resize(newDataSize uint32, newNumPkts uint16) {
	if newDataSize > m.maxDataSize {
		panic(fmt.Sprintf("msgbuf: resize data_size %d exceeds max_data_size %d", newDataSize, m.maxDataSize))
	}
	if newNumPkts < 1 || newNumPkts > m.maxNumPkts {
		panic(fmt.Sprintf("msgbuf: resize num_pkts %d out of range [1,%d]", newNumPkts, m.maxNumPkts))
	}
	m.dataSize = newDataSize
	m.numPkts = newNumPkts
}

// Valid reports whether the Message Buffer was properly constructed: it has
// backing storage and pkthdr_0's magic is intact.
func (m *MsgBuf) Valid() bool {
	return m.buf != nil && m.PktHdr0().Magic == pkthdr.Magic
}

// Release returns the Message Buffer's Backing Buffer to alloc. A no-op for
// RX-borrowed Message Buffers, whose backing handle is already invalid.
func (m *MsgBuf) Release(alloc *SlabAllocator) {
	if m.backing.Valid() {
		alloc.Free(m.backing)
		m.backing = Invalid
	}
}

func (m *MsgBuf) String() string {
	if m == nil || m.buf == nil {
		return "msgbuf.MsgBuf{invalid}"
	}
	return fmt.Sprintf(
		"msgbuf.MsgBuf{valid=%t data_size=%d/%d num_pkts=%d/%d owning=%t}",
		m.Valid(), m.dataSize, m.maxDataSize, m.numPkts, m.maxNumPkts, m.backing.Valid(),
	)
}

package transport

import (
	"errors"
	"unsafe"

	"github.com/nexuscore/nexus/msgbuf"
	"github.com/nexuscore/nexus/pkthdr"
)

// ErrWireFull is returned by TxBurst when Loopback's internal wire channel
// has no room for the first frame of a burst. A burst that is cut short
// after at least one frame returns the count sent and no error.
var ErrWireFull = errors.New("transport: loopback wire buffer full")

// Loopback is an in-memory Transport that feeds everything it transmits
// back out its own RX side, through a buffered channel standing in for a
// NIC ring. It exists to exercise Message Buffer allocation/release and
// burst TX/RX end to end without real hardware.
type Loopback struct {
	alloc *msgbuf.SlabAllocator
	wire  chan []byte
}

// NewLoopback builds a Loopback transport backed by alloc, with wire
// capacity frames of headroom between a TxBurst and the matching RxBurst.
func NewLoopback(alloc *msgbuf.SlabAllocator, capacity int) *Loopback {
	if capacity < 1 {
		capacity = 1
	}
	return &Loopback{
		alloc: alloc,
		wire:  make(chan []byte, capacity),
	}
}

func (l *Loopback) Alloc(class msgbuf.SlabClass) (msgbuf.BackingBuffer, error) {
	return l.alloc.Alloc(int(class.Size.Bytes()))
}

func (l *Loopback) Free(b msgbuf.BackingBuffer) {
	l.alloc.Free(b)
}

// TxBurst serializes each Message Buffer's pkthdr_0 and logical payload
// into a flat frame and pushes it onto the wire. Stops at the first frame
// that would block, returning the count actually transmitted.
func (l *Loopback) TxBurst(bufs []*msgbuf.MsgBuf) (int, error) {
	sent := 0
	for _, m := range bufs {
		frame := make([]byte, int(pkthdr.Size)+int(m.DataSize()))
		h := (*pkthdr.Hdr)(unsafe.Pointer(&frame[0]))
		*h = *m.PktHdr0()
		copy(frame[pkthdr.Size:], m.Buf())

		select {
		case l.wire <- frame:
			sent++
		default:
			if sent == 0 {
				return 0, ErrWireFull
			}
			return sent, nil
		}
	}
	return sent, nil
}

// RxBurst drains whatever frames are currently queued on the wire,
// wrapping each as an RX-borrowed Message Buffer per the §3 RX lifecycle:
// max_num_pkts=1, invalid backing buffer.
func (l *Loopback) RxBurst() ([]*msgbuf.MsgBuf, error) {
	var out []*msgbuf.MsgBuf
	for {
		select {
		case frame := <-l.wire:
			out = append(out, msgbuf.NewRX(frame))
		default:
			return out, nil
		}
	}
}

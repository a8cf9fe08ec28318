// Package transport defines the data-plane boundary the Nexus core
// consumes: Backing Buffer allocation and burst TX/RX of Message Buffers.
// Production deployments implement it over real NIC/hugepage-backed
// hardware; Loopback below is the in-memory reference used by tests.
package transport

import "github.com/nexuscore/nexus/msgbuf"

// Transport is the data-plane I/O boundary consumed by endpoint threads.
// Implementations own the mapping from Backing Buffer slab classes to real
// (or simulated) registered memory.
type Transport interface {
	Alloc(class msgbuf.SlabClass) (msgbuf.BackingBuffer, error)
	Free(b msgbuf.BackingBuffer)
	TxBurst(bufs []*msgbuf.MsgBuf) (int, error)
	RxBurst() ([]*msgbuf.MsgBuf, error)
}

package ctrltransport

import (
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Peer is an opaque handle to one remote control-plane endpoint. Server-
// mode peers (inbound connections UDPHost has not yet been asked to
// Connect to) start with a nil Data slot; client-mode peers always have
// one allocated at Connect time. This is the discriminator downstream SM
// logic uses to tell the two apart without a separate boolean.
type Peer struct {
	mu sync.Mutex

	hostname string
	addr     *net.UDPAddr

	// Data is the application-settable opaque slot (§3, "control-transport
	// Peer"). UDPHost never interprets it.
	Data any

	connected bool
	nextSeq   uint32
	pending   map[uint32]*pendingFrame
}

type pendingFrame struct {
	payload  []byte
	attempts int
	nextAt   time.Time
	bo       *backoff.ExponentialBackOff
}

// RemoteHostname returns the hostname this peer was connected/observed
// through.
func (p *Peer) RemoteHostname() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hostname
}

// Connected reports whether the connection handshake has completed.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

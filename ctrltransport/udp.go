package ctrltransport

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// ErrRetryCeilingReached describes the condition under which Poll reports a
// synthetic EventDisconnect: a tracked frame has exhausted its
// retransmission budget without being acked. The event itself carries no
// error value; UDPHost does not return this error from any method.
var ErrRetryCeilingReached = errors.New("ctrltransport: retry ceiling reached without ack")

const maxRetransmitAttempts = 8

// UDPHost is the reference Host implementation: a single UDP socket
// carrying a small SYN/SYNACK/DATA/ACK/FIN framing protocol with
// exponential-backoff retransmission of unacked DATA frames.
type UDPHost struct {
	conn *net.UDPConn
	log  *zap.SugaredLogger

	mu    sync.Mutex
	peers map[string]*Peer // keyed by remote UDP address string
}

// NewHost binds a UDP socket on hostname:port and returns a Host ready to
// Connect out or receive inbound peers via Poll.
func NewHost(hostname string, port uint16, log *zap.SugaredLogger) (*UDPHost, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(hostname, strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("ctrltransport: resolve local address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("ctrltransport: bind udp socket: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UDPHost{
		conn:  conn,
		log:   log,
		peers: make(map[string]*Peer),
	}, nil
}

func (h *UDPHost) LocalAddr() string {
	return h.conn.LocalAddr().String()
}

// Connect allocates a client-mode Peer and fires off a SYN frame. It never
// blocks for the handshake to complete; the caller observes EventConnect
// from a later Poll once the peer transitions to connected.
func (h *UDPHost) Connect(hostname string, port uint16) (*Peer, error) {
	remote, err := net.ResolveUDPAddr("udp", net.JoinHostPort(hostname, strconv.Itoa(int(port))))
	if err != nil {
		return nil, fmt.Errorf("ctrltransport: resolve %s:%d: %w", hostname, port, err)
	}

	p := &Peer{
		hostname: hostname,
		addr:     remote,
		Data:     &struct{}{}, // client-mode peers always carry allocated opaque metadata
		pending:  make(map[uint32]*pendingFrame),
	}

	h.mu.Lock()
	h.peers[remote.String()] = p
	h.mu.Unlock()

	seq := p.nextSeq
	p.nextSeq++
	if _, err := h.conn.WriteToUDP(encodeFrame(frame{typ: frameSYN, seq: seq}), remote); err != nil {
		return nil, fmt.Errorf("ctrltransport: send syn to %s: %w", remote, err)
	}
	h.registerRetransmit(p, seq, nil)
	return p, nil
}

// Send transmits a DATA frame to p and tracks it for bounded
// exponential-backoff retransmission until acked.
func (h *UDPHost) Send(p *Peer, payload []byte) error {
	p.mu.Lock()
	seq := p.nextSeq
	p.nextSeq++
	addr := p.addr
	p.mu.Unlock()

	if _, err := h.conn.WriteToUDP(encodeFrame(frame{typ: frameDATA, seq: seq, payload: payload}), addr); err != nil {
		return fmt.Errorf("ctrltransport: send data to %s: %w", addr, err)
	}
	h.registerRetransmit(p, seq, payload)
	return nil
}

// Close sends a FIN and forgets the peer.
func (h *UDPHost) Close(p *Peer) error {
	p.mu.Lock()
	addr := p.addr
	p.mu.Unlock()

	_, err := h.conn.WriteToUDP(encodeFrame(frame{typ: frameFIN}), addr)
	h.mu.Lock()
	delete(h.peers, addr.String())
	h.mu.Unlock()
	return err
}

func (h *UDPHost) Shutdown() error {
	return h.conn.Close()
}

func (h *UDPHost) registerRetransmit(p *Peer, seq uint32, payload []byte) {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Second,
	}
	bo.Reset()

	p.mu.Lock()
	p.pending[seq] = &pendingFrame{
		payload: payload,
		nextAt:  time.Now().Add(bo.NextBackOff()),
		bo:      bo,
	}
	p.mu.Unlock()
}

// Poll services one batch of socket I/O, processing both inbound frames
// (up to timeout) and any due retransmissions across tracked peers.
func (h *UDPHost) Poll(timeout time.Duration) []Event {
	var events []Event
	events = append(events, h.retransmitDue()...)

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 65507)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return events
		}
		if err := h.conn.SetReadDeadline(time.Now().Add(remaining)); err != nil {
			return events
		}
		n, addr, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			return events
		}
		ev, ok := h.handleFrame(buf[:n], addr)
		if ok {
			events = append(events, ev)
		}
	}
}

func (h *UDPHost) handleFrame(raw []byte, addr *net.UDPAddr) (Event, bool) {
	f, err := decodeFrame(raw)
	if err != nil {
		h.log.Warnw("dropping malformed control frame", "remote", addr, "error", err)
		return Event{}, false
	}

	key := addr.String()
	h.mu.Lock()
	p, known := h.peers[key]
	if !known {
		p = &Peer{hostname: addr.IP.String(), addr: addr, pending: make(map[uint32]*pendingFrame)}
		h.peers[key] = p
	}
	h.mu.Unlock()

	switch f.typ {
	case frameSYN:
		_, _ = h.conn.WriteToUDP(encodeFrame(frame{typ: frameSYNACK, seq: f.seq}), addr)
		if !known {
			return Event{Kind: EventConnect, Peer: p}, true
		}
		return Event{}, false

	case frameSYNACK:
		p.mu.Lock()
		p.connected = true
		delete(p.pending, f.seq)
		p.mu.Unlock()
		return Event{Kind: EventConnect, Peer: p}, true

	case frameDATA:
		_, _ = h.conn.WriteToUDP(encodeFrame(frame{typ: frameACK, seq: f.seq}), addr)
		return Event{Kind: EventReceive, Peer: p, Payload: f.payload}, true

	case frameACK:
		p.mu.Lock()
		delete(p.pending, f.seq)
		p.mu.Unlock()
		return Event{}, false

	case frameFIN:
		h.mu.Lock()
		delete(h.peers, key)
		h.mu.Unlock()
		return Event{Kind: EventDisconnect, Peer: p}, true

	default:
		return Event{}, false
	}
}

func (h *UDPHost) retransmitDue() []Event {
	var events []Event
	now := time.Now()

	h.mu.Lock()
	peers := make([]*Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		p.mu.Lock()
		addr := p.addr
		for seq, pf := range p.pending {
			if now.Before(pf.nextAt) {
				continue
			}
			pf.attempts++
			if pf.attempts > maxRetransmitAttempts {
				delete(p.pending, seq)
				p.mu.Unlock()
				events = append(events, Event{Kind: EventDisconnect, Peer: p})
				p.mu.Lock()
				continue
			}
			typ := frameDATA
			if pf.payload == nil {
				typ = frameSYN
			}
			_, _ = h.conn.WriteToUDP(encodeFrame(frame{typ: typ, seq: seq, payload: pf.payload}), addr)
			pf.nextAt = now.Add(pf.bo.NextBackOff())
		}
		p.mu.Unlock()
	}
	return events
}

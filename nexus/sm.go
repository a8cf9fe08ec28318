package nexus

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/nexuscore/nexus/ctrltransport"
	"github.com/nexuscore/nexus/smpkt"
)

// smPeerMeta is the per-peer client-side bookkeeping the SM thread
// allocates the moment it initiates an outbound connect (§4.6): remote
// hostname, and a pending-TX queue for work items that arrive before the
// handshake completes. It is stored in the control-transport Peer's opaque
// Data slot -- exactly the discriminator §5 describes: server-mode
// (inbound) peers carry nil Data until promoted, client-mode peers always
// have it set at Connect time.
type smPeerMeta struct {
	hostname string
	pending  []smpkt.WorkItem
}

// runSM is the session-management control-plane event loop (§4.6): TX
// drain, then a bounded-wait RX poll, repeated until the kill switch
// fires. It is the sole owner of all control-plane I/O and of
// peersByHost -- no other goroutine touches either.
func (n *Nexus) runSM(ctx context.Context, pin int, pinned bool) {
	defer n.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if pinned {
		var mask unix.CPUSet
		mask.Set(pin)
		if err := unix.SchedSetaffinity(0, &mask); err != nil {
			n.log.Warnw("failed to pin sm thread to cpu", "cpu", pin, "error", err)
		}
	}

	log := n.log.With("thread", "sm")
	log.Debug("sm thread starting")
	defer log.Debug("sm thread stopped")

	peersByHost := make(map[string]*ctrltransport.Peer)

	for {
		if n.killSwitch.Load() {
			break
		}
		n.smTXDrain(log, peersByHost)
		n.smRXPoll(log, peersByHost)
	}

	// Fully drain and free any pending SM packets before exit (§4.6).
	n.smTxQueue.DrainAll()
}

func (n *Nexus) smTXDrain(log *zap.SugaredLogger, peersByHost map[string]*ctrltransport.Peer) {
	for _, wi := range n.smTxQueue.DrainAll() {
		host := wi.Pkt.ServerMeta.Hostname
		if host == "" {
			log.Warnw("sm work item has no destination hostname, dropping", "endpoint", wi.EndpointID)
			continue
		}

		port := n.cfg.MgmtUDPPort
		if wi.Pkt.ServerMeta.Port != 0 {
			port = wi.Pkt.ServerMeta.Port
		}

		peer, known := peersByHost[host]
		switch {
		case !known:
			p, err := n.ctrlHost.Connect(host, port)
			if err != nil {
				n.signalSMError(log, wi.EndpointID, ErrUnresolvableHost)
				continue
			}
			p.Data = &smPeerMeta{hostname: host, pending: []smpkt.WorkItem{wi}}
			peersByHost[host] = p

		case peer.Connected():
			if err := n.ctrlHost.Send(peer, smpkt.Marshal(wi.Pkt)); err != nil {
				log.Warnw("sm send failed", "host", host, "error", err)
			}

		default:
			meta, _ := peer.Data.(*smPeerMeta)
			if meta != nil {
				meta.pending = append(meta.pending, wi)
			}
		}
	}
}

func (n *Nexus) smRXPoll(log *zap.SugaredLogger, peersByHost map[string]*ctrltransport.Peer) {
	for _, ev := range n.ctrlHost.Poll(n.cfg.SMPollInterval) {
		switch ev.Kind {
		case ctrltransport.EventConnect:
			if ev.Peer.Data == nil {
				continue // server-mode: no action until first packet arrives
			}
			meta, ok := ev.Peer.Data.(*smPeerMeta)
			if !ok {
				continue
			}
			for _, wi := range meta.pending {
				if err := n.ctrlHost.Send(ev.Peer, smpkt.Marshal(wi.Pkt)); err != nil {
					log.Warnw("sm flush of pending tx failed", "host", meta.hostname, "error", err)
				}
			}
			meta.pending = nil

		case ctrltransport.EventReceive:
			pkt, err := smpkt.Unmarshal(ev.Payload)
			if err != nil {
				log.Warnw("dropping malformed sm packet", "error", err)
				continue
			}
			h := n.hookFor(pkt.ServerMeta.EndpointID)
			if h == nil {
				continue // no registered hook, peer may be shutting down
			}
			_ = h.SMRxQueue.Push(smpkt.WorkItem{
				EndpointID: pkt.ServerMeta.EndpointID,
				Pkt:        pkt,
				Peer:       ev.Peer,
			})

		case ctrltransport.EventDisconnect:
			if meta, ok := ev.Peer.Data.(*smPeerMeta); ok {
				delete(peersByHost, meta.hostname)
			}
			// server-mode disconnects have no client bookkeeping to release.
		}
	}
}

func (n *Nexus) signalSMError(log *zap.SugaredLogger, endpointID uint8, cause error) {
	h := n.hookFor(endpointID)
	if h == nil {
		log.Warnw("sm error with no registered hook to notify", "endpoint", endpointID, "error", cause)
		return
	}
	_ = h.SMRxQueue.Push(smpkt.WorkItem{
		EndpointID: endpointID,
		Pkt:        smpkt.Packet{Kind: smpkt.KindReset, ErrType: smpkt.ErrUnresolvableHost},
	})
}

package smpkt

import "github.com/nexuscore/nexus/ctrltransport"

// WorkItem is the unit pushed onto an SM TX/RX mailbox: the target/source
// endpoint, the control packet by value, and the control-transport peer
// handle it travels over (nil until the SM thread has resolved one).
type WorkItem struct {
	EndpointID uint8
	Pkt        Packet
	Peer       *ctrltransport.Peer
}

// Package smpkt defines the session-management control message exchanged
// between RPC endpoints over the control transport, and the work item that
// carries it between endpoint threads and the SM thread.
package smpkt

import "fmt"

// Kind discriminates the variant arms of a Packet.
type Kind uint8

const (
	KindConnectReq Kind = iota
	KindConnectResp
	KindDisconnectReq
	KindDisconnectResp
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindConnectReq:
		return "connect-req"
	case KindConnectResp:
		return "connect-resp"
	case KindDisconnectReq:
		return "disconnect-req"
	case KindDisconnectResp:
		return "disconnect-resp"
	case KindReset:
		return "reset"
	default:
		return fmt.Sprintf("smpkt.Kind(%d)", uint8(k))
	}
}

// ErrType reports why an SM operation failed. ErrNone means success.
type ErrType uint8

const (
	ErrNone ErrType = iota
	ErrUnresolvableHost
	ErrConnectFailed
	ErrPeerReset
	ErrHandlerMissing
)

func (e ErrType) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrUnresolvableHost:
		return "unresolvable-host"
	case ErrConnectFailed:
		return "connect-failed"
	case ErrPeerReset:
		return "peer-reset"
	case ErrHandlerMissing:
		return "handler-missing"
	default:
		return fmt.Sprintf("smpkt.ErrType(%d)", uint8(e))
	}
}

// EndpointMeta identifies one side of a session at the protocol level: the
// RPC-ID the packet targets/originates from, plus the hostname the sender
// resolved the peer through (empty on the server-mode/inbound side until
// resolved from the socket source address).
type EndpointMeta struct {
	EndpointID uint8
	Hostname   string
	// Port overrides the cluster-default management port for this
	// endpoint's host, when non-zero. Production deployments typically
	// run every node on the same configured management port; this exists
	// for the (e.g. single-host, multi-instance test) case where it
	// differs per peer.
	Port uint16
}

// Packet is the tagged record exchanged over the control transport. Kind
// selects which of ClientMeta/ServerMeta/session numbers/ErrType are
// meaningful; the core does not enforce which fields are populated for
// which Kind beyond what callers choose to set.
type Packet struct {
	Kind             Kind
	ClientMeta       EndpointMeta
	ServerMeta       EndpointMeta
	SessionNumClient uint16
	SessionNumServer uint16
	ErrType          ErrType
}

func (p Packet) String() string {
	return fmt.Sprintf(
		"smpkt.Packet{%s client=%+v server=%+v session=%d/%d err=%s}",
		p.Kind, p.ClientMeta, p.ServerMeta, p.SessionNumClient, p.SessionNumServer, p.ErrType,
	)
}

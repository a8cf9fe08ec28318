// Package pkthdr defines the fixed-size record prepended to every wire
// packet exchanged by the RPC runtime.
package pkthdr

import (
	"fmt"
	"unsafe"
)

// Magic is the compile-time constant every valid packet header carries.
// A Message Buffer is valid only if its first header's Magic matches this
// value (see msgbuf.MsgBuf.Valid).
const Magic uint32 = 0x5250434e // "RPCN"

// Type identifies the role a packet plays within a message.
type Type uint8

const (
	TypeReq Type = iota
	TypeResp
	TypeCreditReturn
)

// Hdr is the per-packet header overlaid directly onto registered memory so
// the data path can hand bytes to the transport without copying.
//
// Field order is chosen so the Go compiler packs the struct with no hidden
// padding: 24 bytes total, 8-byte aligned.
type Hdr struct {
	ReqNum           uint64
	Magic            uint32
	PktSize          uint32
	SeqNum           uint16
	SessionNumLocal  uint16
	SessionNumRemote uint16
	MsgType          Type
	_                [1]byte // reserved, keeps the struct word-sized
}

// Size is the wire size of a Hdr. Message Buffer layout math is expressed in
// terms of this constant.
const Size = unsafe.Sizeof(Hdr{})

// String implements fmt.Stringer for diagnostics.
func (h *Hdr) String() string {
	if h == nil {
		return "pkthdr.Hdr(nil)"
	}
	return fmt.Sprintf(
		"pkthdr.Hdr{valid=%t type=%d seq=%d size=%d session=%d/%d req=%d}",
		h.Magic == Magic, h.MsgType, h.SeqNum, h.PktSize,
		h.SessionNumLocal, h.SessionNumRemote, h.ReqNum,
	)
}

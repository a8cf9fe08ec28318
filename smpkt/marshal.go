package smpkt

import (
	"encoding/binary"
	"fmt"
)

// wire uses the host's native byte order: this is an intra-cluster
// protocol between peers of the same architecture family, not a
// portable interchange format.
var wire = binary.NativeEndian

// ErrShortPacket is returned by Unmarshal when data is too short to
// contain a complete Packet.
type ErrShortPacket struct {
	Have, Want int
}

func (e ErrShortPacket) Error() string {
	return fmt.Sprintf("smpkt: short packet: have %d bytes, want at least %d", e.Have, e.Want)
}

func marshalMeta(buf []byte, m EndpointMeta) []byte {
	buf = append(buf, m.EndpointID)
	var u16 [2]byte
	wire.PutUint16(u16[:], uint16(len(m.Hostname)))
	buf = append(buf, u16[:]...)
	buf = append(buf, m.Hostname...)
	wire.PutUint16(u16[:], m.Port)
	buf = append(buf, u16[:]...)
	return buf
}

func unmarshalMeta(data []byte) (EndpointMeta, []byte, error) {
	if len(data) < 3 {
		return EndpointMeta{}, nil, ErrShortPacket{Have: len(data), Want: 3}
	}
	m := EndpointMeta{EndpointID: data[0]}
	hostLen := int(wire.Uint16(data[1:3]))
	data = data[3:]
	if len(data) < hostLen+2 {
		return EndpointMeta{}, nil, ErrShortPacket{Have: len(data), Want: hostLen + 2}
	}
	if hostLen > 0 {
		m.Hostname = string(data[:hostLen])
	}
	data = data[hostLen:]
	m.Port = wire.Uint16(data[:2])
	return m, data[2:], nil
}

// Marshal encodes p as a flat byte slice in the wire's native byte order.
func Marshal(p Packet) []byte {
	buf := make([]byte, 0, 16+len(p.ClientMeta.Hostname)+len(p.ServerMeta.Hostname))
	buf = append(buf, byte(p.Kind))
	buf = marshalMeta(buf, p.ClientMeta)
	buf = marshalMeta(buf, p.ServerMeta)

	var u16 [2]byte
	wire.PutUint16(u16[:], p.SessionNumClient)
	buf = append(buf, u16[:]...)
	wire.PutUint16(u16[:], p.SessionNumServer)
	buf = append(buf, u16[:]...)
	buf = append(buf, byte(p.ErrType))
	return buf
}

// Unmarshal decodes a Packet previously produced by Marshal.
func Unmarshal(data []byte) (Packet, error) {
	if len(data) < 1 {
		return Packet{}, ErrShortPacket{Have: 0, Want: 1}
	}
	p := Packet{Kind: Kind(data[0])}
	rest := data[1:]

	clientMeta, rest, err := unmarshalMeta(rest)
	if err != nil {
		return Packet{}, err
	}
	p.ClientMeta = clientMeta

	serverMeta, rest, err := unmarshalMeta(rest)
	if err != nil {
		return Packet{}, err
	}
	p.ServerMeta = serverMeta

	if len(rest) < 5 {
		return Packet{}, ErrShortPacket{Have: len(rest), Want: 5}
	}
	p.SessionNumClient = wire.Uint16(rest[0:2])
	p.SessionNumServer = wire.Uint16(rest[2:4])
	p.ErrType = ErrType(rest[4])
	return p, nil
}

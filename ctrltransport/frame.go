package ctrltransport

import (
	"encoding/binary"
	"fmt"
)

// frameMagic distinguishes the reference control transport's private
// framing from pkthdr_t, which belongs to the data plane and is never
// carried over this connection.
const frameMagic uint16 = 0xE9C0

const frameHeaderSize = 9 // magic(2) + type(1) + seq(4) + length(2)

type frameType uint8

const (
	frameSYN frameType = iota
	frameSYNACK
	frameDATA
	frameACK
	frameFIN
)

type frame struct {
	typ     frameType
	seq     uint32
	payload []byte
}

func encodeFrame(f frame) []byte {
	buf := make([]byte, frameHeaderSize+len(f.payload))
	binary.BigEndian.PutUint16(buf[0:2], frameMagic)
	buf[2] = byte(f.typ)
	binary.BigEndian.PutUint32(buf[3:7], f.seq)
	binary.BigEndian.PutUint16(buf[7:9], uint16(len(f.payload)))
	copy(buf[frameHeaderSize:], f.payload)
	return buf
}

func decodeFrame(buf []byte) (frame, error) {
	if len(buf) < frameHeaderSize {
		return frame{}, fmt.Errorf("ctrltransport: short frame: %d bytes", len(buf))
	}
	if magic := binary.BigEndian.Uint16(buf[0:2]); magic != frameMagic {
		return frame{}, fmt.Errorf("ctrltransport: bad frame magic %#x", magic)
	}
	length := binary.BigEndian.Uint16(buf[7:9])
	if int(length) != len(buf)-frameHeaderSize {
		return frame{}, fmt.Errorf("ctrltransport: frame length mismatch: header says %d, have %d", length, len(buf)-frameHeaderSize)
	}
	f := frame{
		typ:     frameType(buf[2]),
		seq:     binary.BigEndian.Uint32(buf[3:7]),
		payload: append([]byte(nil), buf[frameHeaderSize:]...),
	}
	return f, nil
}

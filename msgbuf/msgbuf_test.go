package msgbuf_test

import (
	"testing"
	"unsafe"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/msgbuf"
	"github.com/nexuscore/nexus/pkthdr"
)

// payloadFromUDP builds a realistic RPC-sized payload by serializing an
// Ethernet/IPv4/UDP stack with gopacket, the same layer-construction idiom
// the teacher's dataplane tests use to produce non-trivial test fixtures.
func payloadFromUDP(t *testing.T, body []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       []byte{0x02, 0, 0, 0, 0, 1},
		DstMAC:       []byte{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    []byte{10, 0, 0, 1},
		DstIP:    []byte{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 50000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(body)))

	pkt := gopacket.NewPacket(buf.Bytes(), layers.LayerTypeEthernet, gopacket.Default)
	require.Empty(t, pkt.ErrorLayer())
	return pkt.Data()
}

func TestNewLaysOutHeaderImmediatelyBeforePayload(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab4KB.Size.Bytes()) + int(pkthdr.Size))
	require.NoError(t, err)

	m := msgbuf.New(b, 4096, 1)
	require.True(t, m.Valid())
	require.Equal(t, pkthdr.Magic, m.PktHdr0().Magic)
	require.Equal(t, uintptr(unsafe.Pointer(m.PktHdr0()))+pkthdr.Size, uintptr(unsafe.Pointer(&m.Buf()[0])))
	require.Equal(t, uint32(4096), m.DataSize())
	require.Equal(t, uint16(1), m.NumPkts())
}

// Invariant 1 (§8): construction derives header offsets from max_data_size,
// never data_size.
func TestPktHdrNDerivedFromMaxDataSizeNotDataSize(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab64KB.Size.Bytes()))
	require.NoError(t, err)

	// S3: max_data_size=4096, max_num_pkts=3.
	m := msgbuf.New(b, 4096, 3)

	h1 := m.PktHdrN(1)
	h2 := m.PktHdrN(2)

	base := m.Buf()
	require.Equal(t, uintptrDiff(t, &base[0], h1), uintptr(4096))

	h1Size := pkthdr.Size
	require.Equal(t, uintptrDiff(t, h1, h2), h1Size)

	// Shrinking data_size must not move pkthdr_1/pkthdr_2.
	m.Resize(128, 3)
	require.Same(t, h1, m.PktHdrN(1))
	require.Same(t, h2, m.PktHdrN(2))
}

func TestPktHdrNRejectsOutOfRangeIndex(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab4KB.Size.Bytes()))
	require.NoError(t, err)
	m := msgbuf.New(b, 256, 1)

	require.Panics(t, func() { m.PktHdrN(0) })
	require.Panics(t, func() { m.PktHdrN(1) })
}

// Invariant 2 (§8) / S4: an RX-borrowed Message Buffer is valid iff the
// embedded magic is present, and its backing handle is the invalid
// sentinel regardless.
func TestNewRXBorrowedValidity(t *testing.T) {
	payload := payloadFromUDP(t, []byte("hello-nexus"))
	raw := make([]byte, int(pkthdr.Size)+len(payload))
	copy(raw[pkthdr.Size:], payload)

	m := msgbuf.NewRX(raw)
	require.False(t, m.Valid(), "magic was never written, buffer must report invalid")
	require.False(t, m.Backing().Valid())

	m.PktHdr0().Magic = pkthdr.Magic
	require.True(t, m.Valid())
	require.False(t, m.Backing().Valid(), "rx-borrowed buffer never gains ownership")
}

func TestResizeRejectsGrowthPastMax(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab1KB.Size.Bytes()))
	require.NoError(t, err)
	m := msgbuf.New(b, 512, 2)

	require.Panics(t, func() { m.Resize(513, 2) })
	require.Panics(t, func() { m.Resize(512, 3) })
	require.Panics(t, func() { m.Resize(512, 0) })
	require.NotPanics(t, func() { m.Resize(10, 1) })
}

func TestReleaseReturnsBackingAndNoopsOnRXBorrowed(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab256B.Size.Bytes()))
	require.NoError(t, err)
	m := msgbuf.New(b, 64, 1)

	m.Release(alloc)
	require.False(t, m.Backing().Valid())

	rx := msgbuf.NewRX(make([]byte, int(pkthdr.Size)+16))
	require.NotPanics(t, func() { rx.Release(alloc) })
}

func TestProgressCountersShareUnderlyingField(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	b, err := alloc.Alloc(int(msgbuf.Slab256B.Size.Bytes()))
	require.NoError(t, err)
	m := msgbuf.New(b, 64, 1)

	m.SetPktsQueued(3)
	require.Equal(t, uint16(3), m.PktsRcvd())
}

func uintptrDiff(t *testing.T, base *byte, hdr *pkthdr.Hdr) uintptr {
	t.Helper()
	return uintptr(unsafe.Pointer(hdr)) - uintptr(unsafe.Pointer(base))
}

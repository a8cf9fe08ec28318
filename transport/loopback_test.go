package transport_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/msgbuf"
	"github.com/nexuscore/nexus/transport"
)

func TestLoopbackTxThenRxRoundTrips(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	lb := transport.NewLoopback(alloc, 4)

	b, err := lb.Alloc(msgbuf.Slab256B)
	require.NoError(t, err)
	m := msgbuf.New(b, 32, 1)
	copy(m.Buf(), []byte("ping-ping-ping-ping-ping-ping-p"))

	n, err := lb.TxBurst([]*msgbuf.MsgBuf{m})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rx, err := lb.RxBurst()
	require.NoError(t, err)
	require.Len(t, rx, 1)
	require.True(t, rx[0].Valid())
	require.Equal(t, m.Buf(), rx[0].Buf())
	require.False(t, rx[0].Backing().Valid())
}

func TestLoopbackRxBurstEmptyWhenIdle(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	lb := transport.NewLoopback(alloc, 4)

	rx, err := lb.RxBurst()
	require.NoError(t, err)
	require.Empty(t, rx)
}

func TestLoopbackTxBurstStopsAtFullWireWithPartialCount(t *testing.T) {
	alloc := msgbuf.NewSlabAllocator(msgbuf.DefaultClasses...)
	lb := transport.NewLoopback(alloc, 1)

	mk := func() *msgbuf.MsgBuf {
		b, err := lb.Alloc(msgbuf.Slab256B)
		require.NoError(t, err)
		return msgbuf.New(b, 16, 1)
	}

	n, err := lb.TxBurst([]*msgbuf.MsgBuf{mk(), mk()})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

package ctrltransport_test

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/ctrltransport"
)

func splitHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, uint16(port), nil
}

func mustHost(t *testing.T) *ctrltransport.UDPHost {
	t.Helper()
	h, err := ctrltransport.NewHost("127.0.0.1", 0, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Shutdown() })
	return h
}

func localPort(t *testing.T, h *ctrltransport.UDPHost) uint16 {
	t.Helper()
	_, portStr, err := splitHostPort(h.LocalAddr())
	require.NoError(t, err)
	return portStr
}

func TestConnectHandshakeReachesConnectedOnBothSides(t *testing.T) {
	a := mustHost(t)
	b := mustHost(t)

	bPort := localPort(t, b)
	_, err := a.Connect("127.0.0.1", bPort)
	require.NoError(t, err)

	var bPeer *ctrltransport.Peer
	require.Eventually(t, func() bool {
		for _, ev := range b.Poll(20 * time.Millisecond) {
			if ev.Kind == ctrltransport.EventConnect {
				bPeer = ev.Peer
			}
		}
		return bPeer != nil
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		for _, ev := range a.Poll(20 * time.Millisecond) {
			if ev.Kind == ctrltransport.EventConnect {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestSendDeliversPayload(t *testing.T) {
	a := mustHost(t)
	b := mustHost(t)

	bPort := localPort(t, b)
	aPeer, err := a.Connect("127.0.0.1", bPort)
	require.NoError(t, err)

	var bPeer *ctrltransport.Peer
	require.Eventually(t, func() bool {
		for _, ev := range b.Poll(20 * time.Millisecond) {
			if ev.Kind == ctrltransport.EventConnect {
				bPeer = ev.Peer
			}
		}
		return bPeer != nil
	}, time.Second, 10*time.Millisecond)
	a.Poll(20 * time.Millisecond)

	require.NoError(t, a.Send(aPeer, []byte("hello")))

	var received []byte
	require.Eventually(t, func() bool {
		for _, ev := range b.Poll(20 * time.Millisecond) {
			if ev.Kind == ctrltransport.EventReceive {
				received = ev.Payload
			}
		}
		return received != nil
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []byte("hello"), received)
}

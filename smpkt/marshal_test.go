package smpkt_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/smpkt"
)

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	p := smpkt.Packet{
		Kind:             smpkt.KindConnectReq,
		ClientMeta:       smpkt.EndpointMeta{EndpointID: 7, Hostname: "node-a", Port: 31850},
		ServerMeta:       smpkt.EndpointMeta{EndpointID: 9, Hostname: "node-b", Port: 31851},
		SessionNumClient: 100,
		SessionNumServer: 200,
		ErrType:          smpkt.ErrNone,
	}

	data := smpkt.Marshal(p)
	got, err := smpkt.Unmarshal(data)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalUnmarshalEmptyHostnames(t *testing.T) {
	p := smpkt.Packet{Kind: smpkt.KindReset, ErrType: smpkt.ErrPeerReset}
	data := smpkt.Marshal(p)
	got, err := smpkt.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestUnmarshalShortPacketReturnsError(t *testing.T) {
	_, err := smpkt.Unmarshal([]byte{0x01})
	require.Error(t, err)

	_, err = smpkt.Unmarshal(nil)
	require.Error(t, err)
}

package pkthdr_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/nexuscore/nexus/pkthdr"
)

func TestHdrIsWordSized(t *testing.T) {
	require.Equal(t, uintptr(24), pkthdr.Size)
	require.Zero(t, pkthdr.Size%8, "header size must be word-aligned for trailing array math")
}

func TestHdrStringReportsValidity(t *testing.T) {
	var h pkthdr.Hdr
	require.Contains(t, h.String(), "valid=false")

	h.Magic = pkthdr.Magic
	require.Contains(t, h.String(), "valid=true")
}

func TestHdrNilString(t *testing.T) {
	var h *pkthdr.Hdr
	require.Equal(t, "pkthdr.Hdr(nil)", h.String())
}

func TestHdrSizeMatchesUnsafeSizeof(t *testing.T) {
	require.Equal(t, unsafe.Sizeof(pkthdr.Hdr{}), pkthdr.Size)
}

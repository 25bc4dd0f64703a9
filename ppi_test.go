package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPPIBSRSetsSingleBit(t *testing.T) {
	ppi := &PPI{}
	ppi.WriteControl(0x09) // BSR, bit 4, set
	require.Equal(t, byte(0x10), ppi.PortC())

	ppi.WriteControl(0x08) // BSR, bit 4, reset
	require.Equal(t, byte(0x00), ppi.PortC())
}

func TestPPIWritePortCOnlyTouchesBit5(t *testing.T) {
	ppi := &PPI{}
	ppi.WriteControl(0x09)
	require.Equal(t, byte(0x10), ppi.PortC())

	ppi.WritePortC(0x20)
	require.Equal(t, byte(0x30), ppi.PortC(), "bit 5 set, bit 4 preserved")

	ppi.WritePortC(0x00)
	require.Equal(t, byte(0x10), ppi.PortC(), "bit 5 cleared, bit 4 still preserved")
}

func TestPPIControlWordIOModeSetsGroupBStrobe(t *testing.T) {
	ppi := &PPI{}
	ppi.WriteControl(0x82) // I/O mode, group B strobed
	require.True(t, ppi.groupBStrobe)
}

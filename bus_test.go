package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *MachineBus {
	t.Helper()
	video, err := NewVideo(make([]byte, 0x800))
	require.NoError(t, err)
	fdc := &FDC{}
	ppi := &PPI{}
	rtc := NewRTC()
	cart := NewCartridge([]byte{0x11, 0x22, 0x33})
	sub := NewSubCPU(&Keyboard{}, rtc)
	return NewMachineBus(video, fdc, ppi, rtc, cart, sub)
}

func TestIPLShadowsLowRAM(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.LoadIPL(append(make([]byte, 0xFFF), 0xAA)))

	bus.WriteByte(0x0FFF, 0x55) // underlying RAM write, masked by the IPL overlay
	require.Equal(t, byte(0xAA), bus.PeekByte(0x0FFF))

	bus.WriteByte(0x9000, 0x77) // above the shadow window, RAM is live either way
	require.Equal(t, byte(0x77), bus.PeekByte(0x9000))
}

func TestCartridgeLatchAddressesROM(t *testing.T) {
	bus := newTestBus(t)
	bus.WriteIO(0x0E00, 0x00, true)
	bus.WriteIO(0x0E01, 0x00, true)
	bus.WriteIO(0x0E02, 0x01, true) // address = 0x000001
	require.Equal(t, byte(0x22), bus.PeekIO(0x0E03, true))
}

func TestIOBankOneShotConsumesNextTransactionOnly(t *testing.T) {
	bus := newTestBus(t)
	bus.ioBank = true

	require.Equal(t, byte(0), bus.PeekIO(0x0E03, true))
	require.False(t, bus.ioBank, "io_bank should clear after being consulted once")

	bus.WriteIO(0x0E00, 0x00, true)
	bus.WriteIO(0x0E01, 0x00, true)
	bus.WriteIO(0x0E02, 0x00, true)
	require.Equal(t, byte(0x11), bus.PeekIO(0x0E03, true), "subsequent reads should hit the real dispatch table")
}

func TestPeekIODoesNotPanicOnUnmappedPort(t *testing.T) {
	bus := newTestBus(t)
	require.Equal(t, byte(0xFF), bus.PeekIO(0x0001, false))
}

func TestLastTransactionTracksMostRecentAccess(t *testing.T) {
	bus := newTestBus(t)
	bus.WriteByte(0x1234, 0x01)
	addr, isRead, isMem := bus.LastTransaction()
	require.Equal(t, uint16(0x1234), addr)
	require.False(t, isRead)
	require.True(t, isMem)

	bus.PeekIO(0x1A02, true)
	addr, isRead, isMem = bus.LastTransaction()
	require.Equal(t, uint16(0x1A02), addr)
	require.True(t, isRead)
	require.False(t, isMem)
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	font := make([]byte, 0x800)
	video, err := NewVideo(font)
	require.NoError(t, err)

	fdc := &FDC{}
	ppi := &PPI{}
	rtc := NewRTC()
	cart := NewCartridge([]byte{0xDE, 0xAD, 0xBE, 0xEF})
	keyboard := &Keyboard{}
	sub := NewSubCPU(keyboard, rtc)
	bus := NewMachineBus(video, fdc, ppi, rtc, cart, sub)
	cpu := NewCPU_Z80(bus)

	return &Machine{
		CPU:      cpu,
		Bus:      bus,
		Video:    video,
		FDC:      fdc,
		PPI:      ppi,
		RTC:      rtc,
		Cart:     cart,
		Keyboard: keyboard,
		Sub:      sub,
	}
}

// TestStateRoundTripIsByteIdentical exercises the save -> load -> save law:
// loading a saved machine into a fresh one and saving again must produce the
// exact same byte stream, regardless of what state was stored.
func TestStateRoundTripIsByteIdentical(t *testing.T) {
	m := newTestMachine(t)

	m.CPU.A = 0x42
	m.CPU.SetBC(0x1234)
	m.CPU.PC = 0xC000
	m.CPU.IFF1 = true
	m.CPU.Cycles = 123456789
	m.Bus.ram[0x8000] = 0x99
	m.RTC.Year = 0x26
	m.RTC.Month = 0x07
	m.Cart.WriteLatch(2, 0x02)

	var first bytes.Buffer
	require.NoError(t, m.SaveState(&first))

	m2 := newTestMachine(t)
	require.NoError(t, m2.LoadState(bytes.NewReader(first.Bytes())))

	require.Equal(t, m.CPU.A, m2.CPU.A)
	require.Equal(t, m.CPU.BC(), m2.CPU.BC())
	require.Equal(t, m.CPU.PC, m2.CPU.PC)
	require.Equal(t, m.CPU.IFF1, m2.CPU.IFF1)
	require.Equal(t, m.CPU.Cycles, m2.CPU.Cycles)
	require.Equal(t, m.Bus.ram[0x8000], m2.Bus.ram[0x8000])
	require.Equal(t, m.RTC.Year, m2.RTC.Year)
	require.Equal(t, m.RTC.Month, m2.RTC.Month)
	require.Equal(t, m.Cart.ReadROM(), m2.Cart.ReadROM())

	var second bytes.Buffer
	require.NoError(t, m2.SaveState(&second))

	require.True(t, bytes.Equal(first.Bytes(), second.Bytes()), "second save must be byte-identical to the first")
}

func TestLoadStateRejectsBadMagic(t *testing.T) {
	m := newTestMachine(t)
	err := m.LoadState(bytes.NewReader([]byte{0, 0, 0, 0, 1, 0}))
	require.Error(t, err)
}

func TestLoadStateRejectsUnsupportedVersion(t *testing.T) {
	m := newTestMachine(t)

	var buf bytes.Buffer
	require.NoError(t, m.SaveState(&buf))
	saved := buf.Bytes()

	// Corrupt the version field (bytes 4-5, right after the magic).
	corrupted := append([]byte(nil), saved...)
	corrupted[4] = 0xFF
	corrupted[5] = 0xFF

	err := m.LoadState(bytes.NewReader(corrupted))
	require.Error(t, err)
}

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubCPURTCDateCommand(t *testing.T) {
	rtc := NewRTC()
	rtc.Day, rtc.Month, rtc.Weekday, rtc.Year = 0x30, 0x07, 0x04, 0x26
	sub := NewSubCPU(&Keyboard{}, rtc)

	sub.Write(cmdRTCDate)

	require.Equal(t, byte(0x30), sub.Read(true))
	require.Equal(t, byte(0x07<<4|0x04), sub.Read(true))
	require.Equal(t, byte(0x26), sub.Read(true))
}

func TestSubCPUKeyIRQCursorWrapsAtTwo(t *testing.T) {
	rtc := NewRTC()
	sub := NewSubCPU(&Keyboard{}, rtc)

	sub.TriggerKeyIRQ(0x01, KeyA)
	require.Equal(t, byte(0x01), sub.Read(true))
	require.Equal(t, KeyA, sub.Read(true))
	// TriggerKeyIRQ leaves OBF clear, so the first two reads drain the
	// response through the command-response cursor. Once it is empty OBF is
	// set and further reads come from the key-IRQ cursor, which wraps after
	// two bytes instead of falling through to the command buffer.
	require.Equal(t, byte(0x01), sub.Read(true))
	require.Equal(t, KeyA, sub.Read(true))
	require.Equal(t, byte(0x01), sub.Read(true))
}

func TestSubCPUSetKeyIRQVectorTwoWriteSequence(t *testing.T) {
	kb := &Keyboard{}
	sub := NewSubCPU(kb, NewRTC())

	sub.Write(cmdSetKeyIRQVector)
	sub.Write(0x42)

	require.Equal(t, byte(0x42), kb.KeyIRQVector())
}

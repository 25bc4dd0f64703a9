// subcpu.go - the X1's sub-CPU command/response protocol, serviced entirely
// through I/O port 0x1900.
//
// A single command byte selects a canned response loaded into an 8-byte
// buffer, an output-buffer-full latch (sub_obf) signals whether a response
// is pending, and two independent read cursors service repeated key-IRQ
// reads versus in-order command-response reads. The RTC (0xED/0xEF) and
// 0xD0-family command responses are wired directly into this table; an RTC
// device exists independently of the command table it's read through.

package main

const (
	cmdSetKeyIRQVector = 0xe4
	cmdPollKeyboard    = 0xe6
	cmdTVControl       = 0xe7
	cmdEchoLastCmd     = 0xe8
	cmdCMT             = 0xe9
	cmdTapeStatus      = 0xeb
	cmdRTCDate         = 0xed
	cmdRTCTime         = 0xef
	cmdTVFamilyLo      = 0xd0
	cmdTVFamilyHi      = 0xdf
)

// SubCPU models the keyboard/RTC/TV sub-processor the main Z80 talks to
// through port 0x1900.
type SubCPU struct {
	cmd    byte
	vals   [8]byte
	cmdLen int
	obf    byte

	keyI      int
	valPtr    int

	keyboard *Keyboard
	rtc      *RTC
}

// NewSubCPU wires the keyboard and RTC devices the sub-CPU's command table
// serves responses from.
func NewSubCPU(keyboard *Keyboard, rtc *RTC) *SubCPU {
	return &SubCPU{keyboard: keyboard, rtc: rtc}
}

// OBF reports the output-buffer-full latch, consulted directly by the bus's
// 0x1A01 status read.
func (s *SubCPU) OBF() byte { return s.obf }

// TriggerKeyIRQ loads the two-byte key-press response the keyboard's IRQ
// path delivers: buffer[0] is the shift-state byte, buffer[1] the key byte.
func (s *SubCPU) TriggerKeyIRQ(shift, key byte) {
	s.vals[0] = shift
	s.vals[1] = key
	s.cmdLen = 2
	s.obf = 0x00
}

// Write dispatches a command byte written at 0x1900. If the previous
// command was 0xE4 ("set key-IRQ vector"), this write instead supplies the
// vector byte and is folded to 0x00 for the dispatch switch below, matching
// the original's two-write 0xE4 sequencing.
func (s *SubCPU) Write(value byte) {
	data := value
	if s.cmd == cmdSetKeyIRQVector {
		s.keyboard.SetKeyIRQVector(value)
		data = 0
	}

	switch {
	case data == cmdSetKeyIRQVector:
		// no-op placeholder; the vector arrives on the next write
	case data == cmdPollKeyboard:
		s.vals[0] = s.keyboard.CheckShift()
		s.vals[1] = s.keyboard.CheckPress()
		s.cmdLen = 2
	case data == cmdTVControl:
		// TV control: no readable state in this core
	case data == cmdEchoLastCmd:
		s.vals[0] = s.cmd
		s.cmdLen = 1
	case data == cmdCMT:
		// cassette transport: no-op, cassette I/O is out of scope
	case data == cmdTapeStatus:
		s.vals[0] = 5
		s.cmdLen = 1
	case data == cmdRTCDate:
		s.vals[0] = s.rtc.Day
		s.vals[1] = s.rtc.Month<<4 | s.rtc.Weekday
		s.vals[2] = s.rtc.Year
		s.cmdLen = 3
	case data == cmdRTCTime:
		s.vals[0] = s.rtc.Hour
		s.vals[1] = s.rtc.Minute
		s.vals[2] = s.rtc.Second
		s.cmdLen = 3
	case data >= cmdTVFamilyLo && data <= cmdTVFamilyHi:
		for i := range s.vals[:6] {
			s.vals[i] = 0
		}
		s.cmdLen = 6
	case data == 0x00, data == 0x04:
		// frigs that let the 0xE4/0xE7 sequencing above land cleanly
	default:
		// unrecognized command: store it and answer with an empty response
		s.cmdLen = 0
	}

	s.cmd = data
	if s.cmdLen == 0 {
		s.obf = 0x20
	} else {
		s.obf = 0x00
	}
}

// Read services a 0x1900 read. While OBF is set the repeating two-byte
// key-IRQ cursor is served; otherwise the command-response buffer is read
// in order, decrementing the remaining length. sideEffects=false previews
// the next byte without advancing either cursor, for the shadow CPU.
func (s *SubCPU) Read(sideEffects bool) byte {
	if s.obf != 0 {
		ret := s.vals[s.keyI]
		if sideEffects {
			s.keyI++
			if s.keyI >= 2 {
				s.keyI = 0
			}
		}
		return ret
	}

	if !sideEffects {
		return s.vals[s.valPtr]
	}

	s.cmdLen--
	if s.cmdLen <= 0 {
		s.obf = 0x20
	} else {
		s.obf = 0x00
	}
	ret := s.vals[s.valPtr]
	s.valPtr++
	if s.cmdLen <= 0 {
		s.valPtr = 0
	}
	return ret
}

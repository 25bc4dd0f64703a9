// keyboard.go - host-key to X1 key-code translator.
//
// A fixed scan table of host keys to X1 key codes, a shift-held flag, and
// the check_shift/check_press accessors the sub-CPU protocol reads through.
// The scan is driven by a host-supplied predicate rather than reading any
// particular windowing library's key state directly, so this file stays
// free of any windowing dependency.

package main

// X1 key codes.
const (
	KeyBackspace byte = 0x08
	KeyEnter     byte = 0x0d
	KeyRight     byte = 0x1c
	KeyLeft      byte = 0x1d
	KeyUp        byte = 0x1e
	KeyDown      byte = 0x1f
	KeySpace     byte = 0x20
	KeyQuotes    byte = 0x22
	KeyLParen    byte = 0x28
	KeyRParen    byte = 0x29
	KeyComma     byte = 0x2c
	Key0         byte = 0x30
	Key1         byte = 0x31
	Key2         byte = 0x32
	Key3         byte = 0x33
	Key4         byte = 0x34
	Key5         byte = 0x35
	Key6         byte = 0x36
	Key7         byte = 0x37
	Key8         byte = 0x38
	Key9         byte = 0x39
	KeyColon     byte = 0x3a
	KeyEquals    byte = 0x3d
	KeyA         byte = 0x41
	KeyB         byte = 0x42
	KeyD         byte = 0x44
	KeyE         byte = 0x45
	KeyF         byte = 0x46
	KeyH         byte = 0x48
	KeyI         byte = 0x49
	KeyK         byte = 0x4b
	KeyL         byte = 0x4c
	KeyM         byte = 0x4d
	KeyN         byte = 0x4e
	KeyO         byte = 0x4f
	KeyP         byte = 0x50
	KeyR         byte = 0x52
	KeyS         byte = 0x53
	KeyT         byte = 0x54
	KeyU         byte = 0x55
	KeyX         byte = 0x58
	KeyY         byte = 0x59

	modShift byte = 0x02
)

// unshiftedScan is the plain host-key -> X1 code table, scanned in the same
// order as set_btns_pressed; a later match overwrites an earlier one, so
// order matches the original exactly.
var unshiftedScan = []struct {
	name string
	code byte
}{
	{"Backspace", KeyBackspace},
	{"Return", KeyEnter},
	{"Right", KeyRight},
	{"Left", KeyLeft},
	{"Up", KeyUp},
	{"Down", KeyDown},
	{"Space", KeySpace},
	{"Comma", KeyComma},
	{"Numpad0", Key0}, {"Numpad1", Key1}, {"Numpad2", Key2}, {"Numpad3", Key3},
	{"Numpad4", Key4}, {"Numpad5", Key5}, {"Numpad6", Key6}, {"Numpad7", Key7},
	{"Numpad8", Key8}, {"Numpad9", Key9},
	{"Colon", KeyColon},
	{"Equals", KeyEquals},
}

// digitShiftScan holds the three digit keys whose shifted form is a symbol,
// checked regardless of whether shift is held (matching the original, which
// sets shift_held=true itself when these fire).
var digitShiftScan = []struct {
	name string
	code byte
}{
	{"Key2", KeyQuotes},
	{"Key9", KeyLParen},
	{"Key0", KeyRParen},
}

// letterShiftScan is scanned only while shift is held.
var letterShiftScan = []struct {
	name string
	code byte
}{
	{"A", KeyA}, {"B", KeyB}, {"D", KeyD}, {"E", KeyE}, {"F", KeyF},
	{"H", KeyH}, {"I", KeyI}, {"K", KeyK}, {"L", KeyL}, {"M", KeyM},
	{"N", KeyN}, {"O", KeyO}, {"P", KeyP}, {"R", KeyR}, {"S", KeyS},
	{"T", KeyT}, {"U", KeyU}, {"X", KeyX}, {"Y", KeyY},
}

// Keyboard translates host key state into the X1's single-key-pressed
// protocol, polled at frame boundary by the sub-CPU command engine.
type Keyboard struct {
	keyPressed byte
	lastPress  uint16
	shiftHeld  bool

	keyIRQVector byte
}

// SetKeyIRQVector records the vector byte the 0xE4 sub-CPU command supplies.
func (k *Keyboard) SetKeyIRQVector(v byte) { k.keyIRQVector = v }

// KeyIRQVector returns the currently latched key-IRQ vector.
func (k *Keyboard) KeyIRQVector() byte { return k.keyIRQVector }

// Poll rescans the host key state via pressed (a predicate keyed by the
// symbolic names used in the scan tables above) and held for the shift
// modifier. Only one key is reported pressed per poll, matching the
// original's last-match-wins scan.
func (k *Keyboard) Poll(pressed func(name string) bool, shiftHeldNow bool) {
	k.keyPressed = 0
	k.lastPress = 0
	k.shiftHeld = false

	for _, e := range unshiftedScan {
		if pressed(e.name) {
			k.keyPressed = e.code
		}
	}
	for _, e := range digitShiftScan {
		if pressed(e.name) {
			k.shiftHeld = true
			k.keyPressed = e.code
		}
	}
	if shiftHeldNow {
		k.shiftHeld = true
		for _, e := range letterShiftScan {
			if pressed(e.name) {
				k.keyPressed = e.code
			}
		}
	}
}

// CheckShift reports the active-low modifier byte read as the 0xE6 poll's
// first response byte.
func (k *Keyboard) CheckShift() byte {
	ret := byte(0xff)
	if k.shiftHeld {
		ret &^= modShift
	}
	if k.lastPress != 0 {
		ret &^= 0x40
	}
	if k.lastPress&0x100 != 0 {
		ret &^= 0x80
	}
	return ret
}

// CheckPress returns the currently pressed key byte and records it as the
// last-reported press for the next CheckShift call.
func (k *Keyboard) CheckPress() byte {
	k.lastPress = uint16(k.keyPressed)
	return k.keyPressed
}

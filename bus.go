// bus.go - the memory/I/O dispatch fabric between the Z80 core and on-board devices
//
// Grounded on memory_bus.go's address-range dispatch idiom (page-masked region
// table, RWMutex-guarded device map) generalized from 32-bit word access down
// to the X1's 16-bit byte-addressed bus.

package main

import (
	"fmt"
	"sync"
)

// MachineBus is the X1 Bus Fabric: it owns main RAM and the IPL shadow, and
// routes I/O-space transactions to the attached devices by address range.
type MachineBus struct {
	mu sync.Mutex

	ram [0x10000]byte
	ipl [0x1000]byte

	iplLoaded bool
	ioBank    bool // one-shot latch: next I/O transaction targets extended graphics RAM

	lastAddr   uint16
	lastIsRead bool
	lastIsMem  bool

	video *Video
	fdc   *FDC
	ppi   *PPI
	rtc   *RTC
	cart  *Cartridge
	sub   *SubCPU
}

// NewMachineBus wires a fresh bus to its devices. All devices must be
// constructed by the caller (see NewMachine in machine.go) since they have no
// dependency on the bus themselves.
func NewMachineBus(video *Video, fdc *FDC, ppi *PPI, rtc *RTC, cart *Cartridge, sub *SubCPU) *MachineBus {
	return &MachineBus{video: video, fdc: fdc, ppi: ppi, rtc: rtc, cart: cart, sub: sub}
}

// LoadIPL installs the 4096-byte initial-program-load ROM image.
func (b *MachineBus) LoadIPL(data []byte) error {
	if len(data) != len(b.ipl) {
		return &LoadError{Kind: "ipl", Err: fmt.Errorf("expected %d bytes, got %d", len(b.ipl), len(data))}
	}
	copy(b.ipl[:], data)
	b.iplLoaded = true
	return nil
}

// PeekByte implements Z80Bus's memory-space read. Memory space has no
// side_effects distinction (RAM reads never mutate device state), so the
// live CPU and a watchpoint-preview shadow CPU call it identically.
func (b *MachineBus) PeekByte(addr uint16) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAddr, b.lastIsRead, b.lastIsMem = addr, true, true
	return b.peekMemLocked(addr)
}

func (b *MachineBus) peekMemLocked(addr uint16) byte {
	if b.iplLoaded {
		switch {
		case addr <= 0x0FFF:
			return b.ipl[addr]
		case addr <= 0x7FFF:
			return 0
		}
	}
	return b.ram[addr]
}

// WriteByte always targets main RAM; the IPL bank is a read-only overlay.
func (b *MachineBus) WriteByte(addr uint16, value byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAddr, b.lastIsRead, b.lastIsMem = addr, false, true
	b.ram[addr] = value
}

// PeekIO dispatches an I/O-space read. sideEffects=true (the live CPU's only
// caller) commits device state changes (FDC sector-byte advance, sub-CPU
// cursor advance) and updates the last-transaction observables;
// sideEffects=false is the watchpoint-preview path a shadow CPU uses, which
// sees the same dispatch table but leaves devices untouched. The io_bank
// one-shot is consumed in both modes (see dispatchIn).
func (b *MachineBus) PeekIO(port uint16, sideEffects bool) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sideEffects {
		b.lastAddr, b.lastIsRead, b.lastIsMem = port, true, false
	}
	return b.dispatchIn(port, sideEffects)
}

// WriteIO dispatches an I/O-space write, threading side_effects the same way
// PeekIO does.
func (b *MachineBus) WriteIO(port uint16, value byte, sideEffects bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sideEffects {
		b.lastAddr, b.lastIsRead, b.lastIsMem = port, false, false
	}
	b.dispatchOut(port, value, sideEffects)
}

// Tick satisfies Z80Bus; the fabric itself has no per-cycle state to advance
// (video beam position is derived from the CPU's own cycle counter in Video).
func (b *MachineBus) Tick(cycles int) {}

// dispatchIn and dispatchOut implement the I/O address table. The io_bank
// latch is consulted (and cleared) even in side_effects=false preview mode,
// so a shadow CPU sees exactly the same bank state the committed CPU would.
func (b *MachineBus) dispatchIn(port uint16, sideEffects bool) byte {
	if b.ioBank {
		b.ioBank = false
		return 0
	}
	switch {
	case port == 0x0E03:
		return b.cart.ReadROM()
	case port >= 0x0FF8 && port <= 0x0FFC:
		if value, ok := b.fdcIn(port, sideEffects); ok {
			return value
		}
		if sideEffects {
			panic(&BusError{Operation: "read", Space: "io", Addr: port})
		}
		return 0xFF
	case port == 0x1800 || port == 0x1801:
		return b.video.CRTCRead(port)
	case port == 0x1900:
		return b.sub.Read(sideEffects)
	case port == 0x1A01:
		return b.videoStatus()
	case port == 0x1A02:
		return b.ppi.ReadPortC()
	case port >= 0x2000 && port <= 0x2FFF:
		return b.video.AVRAMRead(port)
	case port >= 0x3000 && port <= 0x3FFF:
		return b.video.TVRAMRead(port)
	case port >= 0x4000:
		return b.video.BitmapRead(port)
	default:
		if sideEffects {
			panic(&BusError{Operation: "read", Space: "io", Addr: port})
		}
		return 0xFF
	}
}

// fdcIn services the FDC read ports that the original source actually
// handles: 0x0FF8 (status, mutating unless previewed), 0x0FFA (hardcoded
// zero -- the sector-register read is commented out in the original), and
// 0x0FFB (the data byte status() last latched). 0x0FF9 and 0x0FFC have no
// read case in the original and fall through to the bus's default/unmapped
// handling, signaled here by ok=false.
func (b *MachineBus) fdcIn(port uint16, sideEffects bool) (value byte, ok bool) {
	switch port {
	case 0x0FF8:
		if sideEffects {
			return b.fdc.Status(), true
		}
		return b.fdc.PeekStatus(), true
	case 0x0FFA:
		return 0, true
	case 0x0FFB:
		return b.fdc.DataPort(), true
	default: // 0x0FF9, 0x0FFC
		return 0, false
	}
}

// videoStatus computes the 0x1A01 status byte: vblank/vsync flags derived
// from the CRTC beam position, OR'd with the sub-CPU's OBF flag. Grounded
// on main.rs's read dispatch for this port, which is a computed value, not
// an i8255 register.
func (b *MachineBus) videoStatus() byte {
	c := &b.video.CRTC
	tileHeight := uint16(c.maxRasAddr) + 1
	vblankLine := uint16(c.vertDisp) * tileHeight
	vsyncLine := uint16(c.vertSyncPos) * tileHeight
	vpos := b.video.vpos()

	status := b.sub.OBF()
	if vpos >= vsyncLine {
		status |= 4
	}
	if vpos < vblankLine {
		status |= 0x80
	}
	return status
}

func (b *MachineBus) dispatchOut(port uint16, val byte, sideEffects bool) {
	if b.ioBank {
		b.ioBank = false
		return
	}
	if !sideEffects {
		return
	}
	switch {
	case port >= 0x0E00 && port <= 0x0E02:
		b.cart.WriteLatch(port-0x0E00, val)
	case port == 0x0FF8:
		b.fdc.Cmd(val)
	case port == 0x0FF9:
		b.fdc.SetTrack(val)
	case port == 0x0FFA:
		b.fdc.SetSector(val)
	case port == 0x0FFB:
		b.fdc.SetData(val)
	case port == 0x0FFC:
		b.fdc.SetFloppy(val)
	case port >= 0x1000 && port <= 0x12FF:
		b.video.PaletteWrite(port, val)
	case port == 0x1300:
		b.video.SetPriority(val)
	case port >= 0x1400 && port <= 0x17FF:
		b.video.PCGWrite(port, val)
	case port == 0x1800 || port == 0x1801:
		b.video.CRTCWrite(port, val)
	case port == 0x1900:
		b.sub.Write(val)
	case port == 0x1A02:
		prevBit5 := b.ppi.PortC()&0x20 != 0
		b.ppi.WritePortC(val)
		if prevBit5 && b.ppi.PortC()&0x20 == 0 {
			b.ioBank = true
		}
	case port == 0x1A03:
		prevBit5 := b.ppi.PortC()&0x20 != 0
		b.ppi.WriteControl(val)
		if prevBit5 && b.ppi.PortC()&0x20 == 0 {
			b.ioBank = true
		}
	case port == 0x1B00 || port == 0x1C00:
		// PSG ports: sound emulation is out of scope, writes are swallowed
	case port >= 0x1D00 && port <= 0x1DFF:
		b.iplLoaded = true
	case port == 0x1E00:
		b.iplLoaded = false
	case port >= 0x2000 && port <= 0x2FFF:
		b.video.AVRAMWrite(port, val)
	case port >= 0x3000 && port <= 0x3FFF:
		b.video.TVRAMWrite(port, val)
	case port >= 0x4000:
		b.video.BitmapWrite(port, val)
	default:
		if sideEffects {
			panic(&BusError{Operation: "write", Space: "io", Addr: port})
		}
	}
}

// LastTransaction reports the most recent bus transaction (address, whether
// it was a read, whether it targeted memory space) for watchpoint gating.
func (b *MachineBus) LastTransaction() (addr uint16, isRead, isMem bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAddr, b.lastIsRead, b.lastIsMem
}

// IPLLoaded reports whether the IPL shadow overlay is currently mapped in.
func (b *MachineBus) IPLLoaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.iplLoaded
}

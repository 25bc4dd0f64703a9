// state.go - flat binary save-state serialization for the whole machine.
//
// The save-file must round-trip exactly; the wire format itself is a flat
// binary-framing convention (encoding/binary, fixed-width little-endian
// fields, no reflection-based codec). Grounded on cpu_ie64.go/
// coproc_worker_6502.go's binary.LittleEndian.Uint16/32/64 use for bus-word
// access, generalized here into a straight field-by-field stream in
// declaration order.

package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const stateMagic uint32 = 0x58315343 // "X1SC"
const stateVersion uint16 = 1

// SaveState serializes the complete machine: CPU registers, RAM, IPL-loaded
// flag, video registers and RAM, 8255 state, FDC state, cartridge latch,
// RTC fields, sub-CPU protocol state, and bus observables.
func (m *Machine) SaveState(w io.Writer) error {
	bw := bufio.NewWriter(w)
	enc := &stateEncoder{w: bw}

	enc.u32(stateMagic)
	enc.u16(stateVersion)

	m.CPU.encodeState(enc)
	m.Bus.encodeState(enc)
	m.Video.encodeState(enc)
	m.FDC.encodeState(enc)
	m.PPI.encodeState(enc)
	m.RTC.encodeState(enc)
	m.Cart.encodeState(enc)
	m.Sub.encodeState(enc)

	if enc.err != nil {
		return enc.err
	}
	return bw.Flush()
}

// LoadState restores a machine from a stream written by SaveState. The
// machine's devices must already be wired (NewMachine); LoadState overwrites
// their state in place rather than reconstructing the object graph.
func (m *Machine) LoadState(r io.Reader) error {
	dec := &stateDecoder{r: bufio.NewReader(r)}

	magic := dec.u32()
	if dec.err == nil && magic != stateMagic {
		return fmt.Errorf("load state: bad magic 0x%08X", magic)
	}
	version := dec.u16()
	if dec.err == nil && version != stateVersion {
		return fmt.Errorf("load state: unsupported version %d", version)
	}

	m.CPU.decodeState(dec)
	m.Bus.decodeState(dec)
	m.Video.decodeState(dec)
	m.FDC.decodeState(dec)
	m.PPI.decodeState(dec)
	m.RTC.decodeState(dec)
	m.Cart.decodeState(dec)
	m.Sub.decodeState(dec)

	return dec.err
}

// stateEncoder/stateDecoder carry a sticky error, the same pattern
// ay_z80_parser.go's Parser uses: the first error halts all further field
// writes/reads so callers just check once at the end.
type stateEncoder struct {
	w   io.Writer
	err error
}

func (e *stateEncoder) u8(v byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write([]byte{v})
}

func (e *stateEncoder) boolean(v bool) {
	if v {
		e.u8(1)
	} else {
		e.u8(0)
	}
}

func (e *stateEncoder) u16(v uint16) {
	if e.err != nil {
		return
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	_, e.err = e.w.Write(buf[:])
}

func (e *stateEncoder) u32(v uint32) {
	if e.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, e.err = e.w.Write(buf[:])
}

func (e *stateEncoder) u64(v uint64) {
	if e.err != nil {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, e.err = e.w.Write(buf[:])
}

func (e *stateEncoder) bytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

type stateDecoder struct {
	r   io.Reader
	err error
}

func (d *stateDecoder) u8() byte {
	if d.err != nil {
		return 0
	}
	var buf [1]byte
	_, d.err = io.ReadFull(d.r, buf[:])
	return buf[0]
}

func (d *stateDecoder) boolean() bool { return d.u8() != 0 }

func (d *stateDecoder) u16() uint16 {
	if d.err != nil {
		return 0
	}
	var buf [2]byte
	_, d.err = io.ReadFull(d.r, buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

func (d *stateDecoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	var buf [4]byte
	_, d.err = io.ReadFull(d.r, buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (d *stateDecoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	var buf [8]byte
	_, d.err = io.ReadFull(d.r, buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (d *stateDecoder) readBytes(b []byte) {
	if d.err != nil {
		return
	}
	_, d.err = io.ReadFull(d.r, b)
}

func (c *CPU_Z80) encodeState(e *stateEncoder) {
	e.u8(c.A)
	e.u8(c.F)
	e.u8(c.B)
	e.u8(c.C)
	e.u8(c.D)
	e.u8(c.E)
	e.u8(c.H)
	e.u8(c.L)
	e.u8(c.A2)
	e.u8(c.F2)
	e.u8(c.B2)
	e.u8(c.C2)
	e.u8(c.D2)
	e.u8(c.E2)
	e.u8(c.H2)
	e.u8(c.L2)
	e.u16(c.IX)
	e.u16(c.IY)
	e.u16(c.SP)
	e.u16(c.PC)
	e.u8(c.I)
	e.u8(c.R)
	e.u8(c.IM)
	e.u16(c.WZ)
	e.u8(c.Q)
	e.boolean(c.IFF1)
	e.boolean(c.IFF2)
	e.boolean(c.Halted)
	e.u64(c.Cycles)
	e.boolean(c.irqLine)
	e.boolean(c.nmiLine)
	e.boolean(c.nmiPending)
	e.boolean(c.nmiPrev)
	e.u32(uint32(c.iffDelay))
	e.u8(c.irqVector)
}

func (c *CPU_Z80) decodeState(d *stateDecoder) {
	c.A = d.u8()
	c.F = d.u8()
	c.B = d.u8()
	c.C = d.u8()
	c.D = d.u8()
	c.E = d.u8()
	c.H = d.u8()
	c.L = d.u8()
	c.A2 = d.u8()
	c.F2 = d.u8()
	c.B2 = d.u8()
	c.C2 = d.u8()
	c.D2 = d.u8()
	c.E2 = d.u8()
	c.H2 = d.u8()
	c.L2 = d.u8()
	c.IX = d.u16()
	c.IY = d.u16()
	c.SP = d.u16()
	c.PC = d.u16()
	c.I = d.u8()
	c.R = d.u8()
	c.IM = d.u8()
	c.WZ = d.u16()
	c.Q = d.u8()
	c.IFF1 = d.boolean()
	c.IFF2 = d.boolean()
	c.Halted = d.boolean()
	c.Cycles = d.u64()
	c.irqLine = d.boolean()
	c.nmiLine = d.boolean()
	c.nmiPending = d.boolean()
	c.nmiPrev = d.boolean()
	c.iffDelay = int(d.u32())
	c.irqVector = d.u8()
}

func (b *MachineBus) encodeState(e *stateEncoder) {
	e.bytes(b.ram[:])
	e.bytes(b.ipl[:])
	e.boolean(b.iplLoaded)
	e.boolean(b.ioBank)
	e.u16(b.lastAddr)
	e.boolean(b.lastIsRead)
	e.boolean(b.lastIsMem)
}

func (b *MachineBus) decodeState(d *stateDecoder) {
	d.readBytes(b.ram[:])
	d.readBytes(b.ipl[:])
	b.iplLoaded = d.boolean()
	b.ioBank = d.boolean()
	b.lastAddr = d.u16()
	b.lastIsRead = d.boolean()
	b.lastIsMem = d.boolean()
}

func (v *Video) encodeState(e *stateEncoder) {
	c := &v.CRTC
	e.u8(c.addr)
	e.u8(c.horizCharTotal)
	e.u8(c.horizDisp)
	e.u8(c.horizSyncPos)
	e.u8(c.syncWidth)
	e.u8(c.vertCharTotal)
	e.u8(c.vertTotalAdj)
	e.u8(c.vertDisp)
	e.u8(c.vertSyncPos)
	e.u8(c.modeControl)
	e.u8(c.maxRasAddr)
	e.u8(c.cursorStartRas)
	e.u8(c.cursorEndRas)
	e.u16(c.dispStartAddr)
	e.u16(c.cursorAddr)

	e.boolean(v.bitmapBank2)
	e.bytes(v.bitmap0[:])
	e.bytes(v.bitmap1[:])

	for _, p := range v.palettes {
		e.u32(p)
	}
	e.u8(v.redPal)
	e.u8(v.greenPal)
	e.u8(v.bluePal)
	e.u8(v.pri)

	e.bytes(v.avram[:])
	e.bytes(v.tvram[:])
	e.bytes(v.font[:])
	e.bytes(v.pcg[:])
	e.u32(v.cycles)
}

func (v *Video) decodeState(d *stateDecoder) {
	c := &v.CRTC
	c.addr = d.u8()
	c.horizCharTotal = d.u8()
	c.horizDisp = d.u8()
	c.horizSyncPos = d.u8()
	c.syncWidth = d.u8()
	c.vertCharTotal = d.u8()
	c.vertTotalAdj = d.u8()
	c.vertDisp = d.u8()
	c.vertSyncPos = d.u8()
	c.modeControl = d.u8()
	c.maxRasAddr = d.u8()
	c.cursorStartRas = d.u8()
	c.cursorEndRas = d.u8()
	c.dispStartAddr = d.u16()
	c.cursorAddr = d.u16()

	v.bitmapBank2 = d.boolean()
	d.readBytes(v.bitmap0[:])
	d.readBytes(v.bitmap1[:])

	for i := range v.palettes {
		v.palettes[i] = d.u32()
	}
	v.redPal = d.u8()
	v.greenPal = d.u8()
	v.bluePal = d.u8()
	v.pri = d.u8()

	d.readBytes(v.avram[:])
	d.readBytes(v.tvram[:])
	d.readBytes(v.font[:])
	d.readBytes(v.pcg[:])
	v.cycles = d.u32()
}

func (f *FDC) encodeState(e *stateEncoder) {
	e.boolean(f.loaded)
	e.u8(f.sector)
	e.boolean(f.side1)
	e.u8(f.floppyBaySelect)
	e.u16(f.offsInSector)
	e.u8(f.data)
	e.boolean(f.reading)
	e.bytes(f.disk[:])
	e.u8(f.track)
}

func (f *FDC) decodeState(d *stateDecoder) {
	f.loaded = d.boolean()
	f.sector = d.u8()
	f.side1 = d.boolean()
	f.floppyBaySelect = d.u8()
	f.offsInSector = d.u16()
	f.data = d.u8()
	f.reading = d.boolean()
	d.readBytes(f.disk[:])
	f.track = d.u8()
}

func (p *PPI) encodeState(e *stateEncoder) {
	e.u8(byte(p.opMode))
	e.boolean(p.groupBStrobe)
	e.u8(p.portC)
}

func (p *PPI) decodeState(d *stateDecoder) {
	p.opMode = ppiOpMode(d.u8())
	p.groupBStrobe = d.boolean()
	p.portC = d.u8()
}

func (r *RTC) encodeState(e *stateEncoder) {
	e.u8(r.Day)
	e.u8(r.Month)
	e.u8(r.Weekday)
	e.u8(r.Year)
	e.u8(r.Hour)
	e.u8(r.Minute)
	e.u8(r.Second)
}

func (r *RTC) decodeState(d *stateDecoder) {
	r.Day = d.u8()
	r.Month = d.u8()
	r.Weekday = d.u8()
	r.Year = d.u8()
	r.Hour = d.u8()
	r.Minute = d.u8()
	r.Second = d.u8()
}

func (c *Cartridge) encodeState(e *stateEncoder) {
	e.u32(c.address)
	e.u32(uint32(len(c.rom)))
	e.bytes(c.rom)
}

func (c *Cartridge) decodeState(d *stateDecoder) {
	c.address = d.u32()
	n := d.u32()
	c.rom = make([]byte, n)
	d.readBytes(c.rom)
}

func (s *SubCPU) encodeState(e *stateEncoder) {
	e.u8(s.cmd)
	e.bytes(s.vals[:])
	e.u32(uint32(s.cmdLen))
	e.u8(s.obf)
	e.u32(uint32(s.keyI))
	e.u32(uint32(s.valPtr))
}

func (s *SubCPU) decodeState(d *stateDecoder) {
	s.cmd = d.u8()
	d.readBytes(s.vals[:])
	s.cmdLen = int(d.u32())
	s.obf = d.u8()
	s.keyI = int(d.u32())
	s.valPtr = int(d.u32())
}

// video.go - HD6845S CRT controller, palette RAM, PCG, tile/attribute planes
// and bitmap banks, composited into an RGBA framebuffer.
//
// Register layout, palette construction, the double-pass priority-mixed
// bitmap/tile compositor, and the PCG write-addressing formula are ported
// from video.rs's exact logic (draw_pcg_tile, draw_gfxbitmap,
// draw_fgtilemap, pcg_w, hpos/vpos). Object shape and doc-comment density
// follow video_chip.go's struct-plus-methods layout.

package main

import "fmt"

const (
	cpuClockHz   = 4_000_000 // Sharp X1 Z80 clock; not present in the retrieved constants file, chosen to match real X1 hardware
	screenWidth  = 640
	screenHeight = 200
)

// CRTC is the HD6845S register file: 16 indirectly-addressed registers behind
// an address-select latch.
type CRTC struct {
	addr byte

	horizCharTotal byte
	horizDisp      byte
	horizSyncPos   byte
	syncWidth      byte
	vertCharTotal  byte
	vertTotalAdj   byte
	vertDisp       byte
	vertSyncPos    byte
	modeControl    byte
	maxRasAddr     byte
	cursorStartRas byte
	cursorEndRas   byte
	dispStartAddr  uint16
	cursorAddr     uint16
}

// SelectRegister latches which of the 16 registers SetRegister will target.
func (c *CRTC) SelectRegister(value byte) {
	c.addr = value & 0x1f
}

// SetRegister writes the currently-selected register, per the HD6845S's
// documented field widths.
func (c *CRTC) SetRegister(value byte) {
	switch c.addr {
	case 0x0:
		c.horizCharTotal = value
	case 0x1:
		c.horizDisp = value
	case 0x2:
		c.horizSyncPos = value
	case 0x3:
		c.syncWidth = value
	case 0x4:
		c.vertCharTotal = value & 0x7f
	case 0x5:
		c.vertTotalAdj = value & 0x1f
	case 0x6:
		c.vertDisp = value & 0x7f
	case 0x7:
		c.vertSyncPos = value & 0x7f
	case 0x8:
		c.modeControl = value
	case 0x9:
		c.maxRasAddr = value & 0x1f
	case 0xa:
		c.cursorStartRas = value & 0x7f
	case 0xb:
		c.cursorEndRas = value & 0x1f
	case 0xc:
		c.dispStartAddr = (uint16(value)&0x3f)<<8 | (c.dispStartAddr & 0xff)
	case 0xd:
		c.dispStartAddr = (c.dispStartAddr &^ 0xff) | uint16(value)
	case 0xe:
		c.cursorAddr = (uint16(value)&0x3f)<<8 | (c.cursorAddr & 0xff)
	case 0xf:
		c.cursorAddr = (c.cursorAddr &^ 0xff) | uint16(value)
	}
}

// Video owns the CRT controller, palette RAM, PCG planes, tile/attribute
// planes and the two bitmap banks, and renders them into an RGBA framebuffer.
type Video struct {
	CRTC CRTC

	bitmapBank2 bool
	bitmap0     [0xc000]byte
	bitmap1     [0xc000]byte

	palettes [16]uint32 // RGBA8888, R in bits 24-31 down to A in bits 0-7
	redPal   byte
	greenPal byte
	bluePal  byte
	pri      byte

	avram [0x800]byte
	tvram [0x800]byte

	font [0x1800]byte // 3 identical planes, copied from the 2KiB font ROM at boot
	pcg  [0x1800]byte // 3 programmable planes

	cycles uint32
}

// NewVideo constructs the video subsystem and copies the 8x8 font ROM into
// all three PCG/font planes, matching original_source's Video::new.
func NewVideo(font []byte) (*Video, error) {
	if len(font) != 0x800 {
		return nil, &LoadError{Kind: "font", Err: fmt.Errorf("expected 2048-byte font ROM, got %d", len(font))}
	}
	v := &Video{}
	for plane := 0; plane < 3; plane++ {
		copy(v.font[plane*0x800:], font)
	}
	for i := 0; i < 16; i++ {
		v.palettes[i] = digitalLift(byte(i))
	}
	return v, nil
}

// digitalLift computes the fixed 3-bit RGB lift used for palette indices
// 0-7 (and as the construction-time default for 8-15, before the first
// analog latch write recomputes them): bit1 -> R, bit2 -> G, bit0 -> B.
func digitalLift(i byte) uint32 {
	color := uint32(0xff) // alpha
	if i&2 != 0 {
		color += 0xff000000
	}
	if i&4 != 0 {
		color += 0x00ff0000
	}
	if i&1 != 0 {
		color += 0x0000ff00
	}
	return color
}

// recreateAnalogPalette recomputes palette entries 8-15 from the current
// R/G/B latches: entry 8|i takes bit i of each latch, lifted to full
// intensity per channel.
func (v *Video) recreateAnalogPalette() {
	for i := uint(0); i < 8; i++ {
		var color uint32 = 0xff
		if (v.redPal>>i)&1 != 0 {
			color += 0xff000000
		}
		if (v.greenPal>>i)&1 != 0 {
			color += 0x00ff0000
		}
		if (v.bluePal>>i)&1 != 0 {
			color += 0x0000ff00
		}
		v.palettes[8|i] = color
	}
}

// PaletteWrite dispatches a palette-latch write by port range: 0x1000-0x10FF
// is the blue latch, 0x1100-0x11FF red, 0x1200-0x12FF green (this exact
// assignment, not a generic R-G-B order, is fixed by the original source).
func (v *Video) PaletteWrite(port uint16, value byte) {
	switch port >> 8 {
	case 0x10:
		v.bluePal = value
	case 0x11:
		v.redPal = value
	case 0x12:
		v.greenPal = value
	}
	v.recreateAnalogPalette()
}

func (v *Video) SetPriority(value byte) { v.pri = value }

func (v *Video) AVRAMRead(port uint16) byte  { return v.avram[mirror2K(port, 0x2000)] }
func (v *Video) AVRAMWrite(port uint16, val byte) { v.avram[mirror2K(port, 0x2000)] = val }
func (v *Video) TVRAMRead(port uint16) byte  { return v.tvram[mirror2K(port, 0x3000)] }
func (v *Video) TVRAMWrite(port uint16, val byte) { v.tvram[mirror2K(port, 0x3000)] = val }

// mirror2K folds the two 0x800-wide windows each plane is exposed through
// (e.g. 0x2000-0x27ff and 0x2800-0x2fff) onto the same backing array.
func mirror2K(port uint16, base uint16) uint16 {
	return (port - base) & 0x7ff
}

func (v *Video) BitmapRead(port uint16) byte {
	addr := port - 0x4000
	if v.bitmapBank2 {
		return v.bitmap1[addr]
	}
	return v.bitmap0[addr]
}

func (v *Video) BitmapWrite(port uint16, val byte) {
	addr := port - 0x4000
	if v.bitmapBank2 {
		v.bitmap1[addr] = val
	} else {
		v.bitmap0[addr] = val
	}
}

// CRTCRead / CRTCWrite implement the 0x1800 (address-select) / 0x1801
// (register data) port pair.
func (v *Video) CRTCRead(port uint16) byte {
	if port == 0x1800 {
		return v.CRTC.addr
	}
	return 0
}

func (v *Video) CRTCWrite(port uint16, val byte) {
	if port == 0x1800 {
		v.CRTC.SelectRegister(val)
	} else {
		v.CRTC.SetRegister(val)
	}
}

// PCGWrite implements the sub-CPU-coordinated tile write at 0x1400-0x17FF:
// the target PCG plane is selected by bits 9-8 of the port, and the cell
// written is derived from the beam position the way original_source's pcg_w
// computes it (tile index sampled from TVRAM at the current beam cell,
// offset by the raster line within the character cell).
func (v *Video) PCGWrite(port uint16, value byte) {
	plane := (port >> 8) & 3
	if plane == 0 {
		return // writes to the ANK (fixed font) plane are not supported
	}
	yCharSize := v.CRTC.maxRasAddr + 1
	if yCharSize > 8 {
		yCharSize -= 8
	}
	if yCharSize == 0 {
		yCharSize = 1
	}
	offs := v.pcgAddr(v.CRTC.horizDisp, yCharSize)
	pcgOffset := uint16(v.tvram[offs]) * 8
	pcgOffset += v.vpos() & (uint16(yCharSize) - 1)
	pcgOffset += (plane - 1) * 0x800
	v.pcg[pcgOffset] = value
}

func (v *Video) pcgAddr(width, yCharSize byte) uint16 {
	hbeam := v.hpos() >> 3
	vbeam := v.vpos() / uint16(yCharSize)
	return (hbeam + vbeam*uint16(width) + v.CRTC.dispStartAddr&0x3f00) & 0x7ff
}

func (v *Video) cyclesPerLine() float64 {
	return float64(cpuClockHz) / 264.0 / 60.0
}

func (v *Video) hpos() uint16 {
	cycPerLine := v.cyclesPerLine()
	cycPerX := cycPerLine / float64(screenWidth)
	return uint16(float64(uint32(v.cycles)%uint32(cycPerLine)) / cycPerX)
}

func (v *Video) vpos() uint16 {
	return uint16(float64(v.cycles) / v.cyclesPerLine())
}

// AdvanceCycles is called by the machine's CPU-tick loop so beam position
// tracks the CPU clock.
func (v *Video) AdvanceCycles(n uint32) { v.cycles += n }

// priorityMixMask finds which bit of the priority register a given 3-bit
// color index participates in.
func priorityMixMask(color byte) byte {
	var i byte
	mask := byte(1)
	for i = 0; i < 7; i++ {
		if color&7 == i {
			break
		}
		mask <<= 1
	}
	return mask
}

// Display composites the current frame into an RGBA8888 buffer of
// horizDisp*8 x vertDisp*8 pixels: a back bitmap pass, the foreground tile
// pass, then a front bitmap pass, matching original_source's display().
func (v *Video) Display(buf []byte, stride int) {
	xsize := v.CRTC.horizDisp
	ysize := v.CRTC.vertDisp

	v.drawBitmap(buf, stride, xsize, ysize, v.pri)
	v.drawTiles(buf, stride, xsize, ysize)
	v.drawBitmap(buf, stride, xsize, ysize, v.pri^0xff)
}

func (v *Video) drawBitmap(buf []byte, stride int, xsize, ysize byte, pri byte) {
	for row := byte(0); row < ysize; row++ {
		for col := byte(0); col < xsize; col++ {
			for yi := uint16(0); yi < 8; yi++ {
				gfxBase := ((uint16(col) + uint16(row)*uint16(xsize)) + v.CRTC.dispStartAddr&0x3f00) & 0x7ff
				gfxOffset := gfxBase + yi*0x800
				for xi := uint16(0); xi < 8; xi++ {
					bank := &v.bitmap0
					if v.bitmapBank2 {
						bank = &v.bitmap1
					}
					penB := (bank[gfxOffset+0x0000] >> (7 - xi)) & 1
					penR := (bank[gfxOffset+0x4000] >> (7 - xi)) & 1
					penG := (bank[gfxOffset+0x8000] >> (7 - xi)) & 1
					color := penG<<2 | penR<<1 | penB

					if priorityMixMask(color)&pri != 0 {
						continue
					}

					plotCol := int(col)*8 + int(xi)
					plotRow := int(row)*8 + int(yi)
					writePixel(buf, stride, plotCol, plotRow, v.palettes[color|8])
				}
			}
		}
	}
}

func (v *Video) drawTiles(buf []byte, stride int, xsize, ysize byte) {
	for row := byte(0); row < ysize; row++ {
		for col := byte(0); col < xsize; col++ {
			tileOffs := int(row)*int(xsize) + int(col)
			tileIdx := v.tvram[tileOffs]
			attr := v.avram[tileOffs]

			doubleWidth := attr&0x80 != 0
			doubleHeight := attr&0x40 != 0
			pcgBank := attr&0x20 != 0
			invert := attr&0x08 != 0
			color := attr & 7

			plane := &v.font
			if pcgBank {
				plane = &v.pcg
			}
			v.drawTile(buf, stride, plane, tileIdx, row, col, color, doubleWidth, doubleHeight, invert)
		}
	}
}

func (v *Video) drawTile(buf []byte, stride int, plane *[0x1800]byte, tileIdx, row, col, penMask byte, doubleWidth, doubleHeight, invert bool) {
	for yi := byte(0); yi < 8; yi++ {
		for xi := byte(0); xi < 8; xi++ {
			bitToCheck := xi
			if doubleWidth {
				bitToCheck /= 2
				if col%2 == 1 {
					bitToCheck += 4
				}
			}
			yoffs := yi
			if doubleHeight {
				yoffs /= 2
				if row%2 == 1 {
					yoffs += 4
				}
			}

			tileOffset := int(tileIdx)*8 + int(yoffs)
			pen0 := (plane[tileOffset+0x0000] >> (7 - bitToCheck)) & (penMask & 1)
			pen1 := ((plane[tileOffset+0x0800] >> (7 - bitToCheck)) & (penMask & 2)) >> 1
			pen2 := ((plane[tileOffset+0x1000] >> (7 - bitToCheck)) & (penMask & 4)) >> 2
			penVal := pen0 | pen1<<1 | pen2<<2
			if invert {
				penVal ^= 7
			}
			if penVal == 0 {
				continue
			}
			plotCol := int(col)*8 + int(xi)
			plotRow := int(row)*8 + int(yi)
			writePixel(buf, stride, plotCol, plotRow, v.palettes[penVal])
		}
	}
}

func writePixel(buf []byte, stride, x, y int, color uint32) {
	offs := (y*stride + x) * 4
	if offs < 0 || offs+4 > len(buf) {
		return
	}
	buf[offs+0] = byte(color >> 24)
	buf[offs+1] = byte(color >> 16)
	buf[offs+2] = byte(color >> 8)
	buf[offs+3] = byte(color)
}

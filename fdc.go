// fdc.go - floppy-disk controller state machine
//
// Grounded directly on _examples/original_source/src/fdc.rs: status() itself
// advances the read cursor and recomputes the data byte as a side effect of
// being called, rather than being an independent peek; this coupling is
// carried over exactly via Status()/PeekStatus().

package main

import "fmt"

const floppyImageSize = 2 * 16 * 256 * 40 // sides * sectors * bytes * tracks

// FDC is the floppy-disk controller.
type FDC struct {
	loaded          bool
	sector          byte
	side1           bool
	floppyBaySelect byte
	offsInSector    uint16
	data            byte
	reading         bool
	disk            [floppyImageSize]byte
	track           byte
}

// LoadDisk installs a raw sector-sequential floppy image (2 sides x 16
// sectors x 256 bytes x 40 tracks).
func (f *FDC) LoadDisk(image []byte) error {
	if len(image) != floppyImageSize {
		return &LoadError{Kind: "floppy", Err: fmt.Errorf("expected %d bytes, got %d", floppyImageSize, len(image))}
	}
	copy(f.disk[:], image)
	f.loaded = true
	return nil
}

// Status returns the controller status bitfield and, if a read is in
// progress, advances to the next byte: bit 1 clear means "seeking to byte"
// (always reported idle here), bit 0 clear once the sector read completes.
func (f *FDC) Status() byte {
	ret := byte(2)
	if f.reading {
		if f.offsInSector == 0x100 {
			f.reading = false
			f.offsInSector = 0
		} else {
			idx := uint32(f.sector)
			if f.side1 {
				idx += 0x10
			}
			idx += uint32(f.track) * 0x20
			f.data = f.disk[idx*0x100+uint32(f.offsInSector)-0x100]
			f.offsInSector++
			ret |= 1
		}
	}
	return ret
}

// PeekStatus previews the status bitfield without advancing the read
// cursor, for the shadow-CPU's side_effects=false path.
func (f *FDC) PeekStatus() byte {
	ret := byte(2)
	if f.reading && f.offsInSector != 0x100 {
		ret |= 1
	}
	return ret
}

// Cmd decodes a command write: 0x00 restore, 0x10 seek to Track, 0x80 begin
// a sector read.
func (f *FDC) Cmd(val byte) {
	switch val & 0xf0 {
	case 0x00:
		f.offsInSector = 0
	case 0x10:
		f.track = f.data
	case 0x80:
		f.reading = true
	}
}

func (f *FDC) Track() byte      { return f.track }
func (f *FDC) SetTrack(v byte)  { f.track = v }
func (f *FDC) DataPort() byte   { return f.data }
func (f *FDC) SetData(v byte)   { f.data = v }
func (f *FDC) SetSector(v byte) { f.sector = v }

// GetSector returns the currently loaded sector number, or 0 if no disk is
// loaded.
func (f *FDC) GetSector() byte {
	if f.loaded {
		return f.sector
	}
	return 0
}

// SetFloppy decodes the floppy-select/motor/side byte: bit 4 selects side 1,
// bits 0-1 select the floppy bay.
func (f *FDC) SetFloppy(val byte) {
	f.side1 = val&0x10 != 0
	f.floppyBaySelect = val & 3
}


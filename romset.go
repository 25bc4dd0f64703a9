// romset.go - host-side loaders for the boot-time images the machine needs:
// IPL ROM, font ROM, floppy image, and cartridge ROM.
//
// Grounded on file_io.go, which wrapped host file errors the same way
// (fmt.Errorf with %w) before being generalized into this core's own
// LoadError type (see errors.go); the size invariants enforced here are
// each device's own (NewVideo, FDC.LoadDisk, MachineBus.LoadIPL).

package main

import (
	"fmt"
	"os"
)

// LoadIPLFile reads an IPL ROM image from disk and installs it on the bus.
func LoadIPLFile(bus *MachineBus, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Kind: "ipl", Path: path, Err: err}
	}
	return bus.LoadIPL(data)
}

// LoadFontFile reads the 8x8 font ROM image used to seed the video
// subsystem's three font/PCG planes.
func LoadFontFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: "font", Path: path, Err: err}
	}
	return data, nil
}

// LoadFloppyFile reads a raw sector-sequential floppy image and installs it
// into the FDC.
func LoadFloppyFile(fdc *FDC, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Kind: "floppy", Path: path, Err: err}
	}
	return fdc.LoadDisk(data)
}

// LoadCartFile reads a variable-length cartridge ROM image. A missing path
// is not an error: an empty cartridge bay is a valid machine configuration.
func LoadCartFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: "cart", Path: path, Err: fmt.Errorf("%w", err)}
	}
	return data, nil
}

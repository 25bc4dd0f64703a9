// machine.go - owns the X1's object graph: one of each device, one bus, one
// CPU, constructed together and never reached through global state.
//
// Grounded on cpu_z80_runner.go's construction pattern: build a CPU plus its
// bus and hand them to each other directly, with no package-level
// singletons anywhere in the object graph.

package main

// MachineConfig names the boot-time images a Machine is built from. An
// empty path for Floppy or Cart leaves that device present but unloaded.
type MachineConfig struct {
	IPLPath    string
	FontPath   string
	FloppyPath string
	CartPath   string
}

// Machine is the complete, self-contained X1 system: CPU, bus fabric, and
// every attached device.
type Machine struct {
	CPU      *CPU_Z80
	Bus      *MachineBus
	Video    *Video
	FDC      *FDC
	PPI      *PPI
	RTC      *RTC
	Cart     *Cartridge
	Keyboard *Keyboard
	Sub      *SubCPU

	lastCycles uint64
	lastKey    byte
}

// NewMachine loads the configured ROM/disk images and wires a complete,
// ready-to-run machine.
func NewMachine(cfg MachineConfig) (*Machine, error) {
	font, err := LoadFontFile(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	video, err := NewVideo(font)
	if err != nil {
		return nil, err
	}

	fdc := &FDC{}
	if cfg.FloppyPath != "" {
		if err := LoadFloppyFile(fdc, cfg.FloppyPath); err != nil {
			return nil, err
		}
	}

	cartROM, err := LoadCartFile(cfg.CartPath)
	if err != nil {
		return nil, err
	}

	ppi := &PPI{}
	rtc := NewRTC()
	cart := NewCartridge(cartROM)
	keyboard := &Keyboard{}
	sub := NewSubCPU(keyboard, rtc)

	bus := NewMachineBus(video, fdc, ppi, rtc, cart, sub)
	if err := LoadIPLFile(bus, cfg.IPLPath); err != nil {
		return nil, err
	}

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
	}, nil
}

// RunFrame advances the CPU until at least cycleBudget T-states have been
// consumed since the last call, advancing the video beam counter by the
// same delta, and returns the number of T-states actually consumed (always
// >= cycleBudget, since Step executes a whole instruction at a time).
func (m *Machine) RunFrame(cycleBudget uint64) uint64 {
	start := m.CPU.Cycles
	target := start + cycleBudget
	for m.CPU.Cycles < target {
		before := m.CPU.Cycles
		m.CPU.Step()
		delta := m.CPU.Cycles - before
		m.Video.AdvanceCycles(uint32(delta))
	}
	return m.CPU.Cycles - start
}

// PollKeyboard rescans host key state and, if the pressed key changed and a
// key-IRQ vector has been registered, asserts the IRQ and loads the sub-CPU
// response buffer.
func (m *Machine) PollKeyboard(pressed func(name string) bool, shiftHeld bool) {
	m.Keyboard.Poll(pressed, shiftHeld)
	key := m.Keyboard.CheckPress()
	if key != m.lastKey && m.Keyboard.KeyIRQVector() != 0 {
		m.Sub.TriggerKeyIRQ(m.Keyboard.CheckShift(), key)
		m.CPU.AssertIRQ(m.Keyboard.KeyIRQVector())
	}
	m.lastKey = key
}

// Display renders the current frame into buf (width*height*4 RGBA8 bytes,
// stride in pixels).
func (m *Machine) Display(buf []byte, stride int) {
	m.Video.Display(buf, stride)
}

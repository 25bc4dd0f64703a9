// main.go - demo host binary wiring the X1 core to a window and a keyboard.
//
// The core (everything else in this module) never imports a rendering or
// input library; this file is the one place that boundary is crossed.
// Grounded directly on video_backend_ebiten.go's ebiten.Game Update/Draw/
// Layout shape and key-polling idiom, and on terminal_host.go's -headless
// raw-terminal path (term.MakeRaw/term.Restore pairing).

package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
	"golang.org/x/term"
)

const cyclesPerFrame = cpuClockHz / 60

// hostKeyNames maps ebiten keys to the symbolic names keyboard.go's scan
// tables key off, so Keyboard.Poll stays ebiten-free.
var hostKeyNames = map[ebiten.Key]string{
	ebiten.KeyBackspace: "Backspace",
	ebiten.KeyEnter:     "Return",
	ebiten.KeyArrowRight: "Right",
	ebiten.KeyArrowLeft:  "Left",
	ebiten.KeyArrowUp:    "Up",
	ebiten.KeyArrowDown:  "Down",
	ebiten.KeySpace:      "Space",
	ebiten.KeyComma:      "Comma",
	ebiten.Key0: "Numpad0", ebiten.Key1: "Numpad1", ebiten.Key2: "Numpad2",
	ebiten.Key3: "Numpad3", ebiten.Key4: "Numpad4", ebiten.Key5: "Numpad5",
	ebiten.Key6: "Numpad6", ebiten.Key7: "Numpad7", ebiten.Key8: "Numpad8",
	ebiten.Key9: "Numpad9",
	ebiten.KeySemicolon: "Colon",
	ebiten.KeyEqual:     "Equals",
	ebiten.KeyA: "A", ebiten.KeyB: "B", ebiten.KeyD: "D", ebiten.KeyE: "E",
	ebiten.KeyF: "F", ebiten.KeyH: "H", ebiten.KeyI: "I", ebiten.KeyK: "K",
	ebiten.KeyL: "L", ebiten.KeyM: "M", ebiten.KeyN: "N", ebiten.KeyO: "O",
	ebiten.KeyP: "P", ebiten.KeyR: "R", ebiten.KeyS: "S", ebiten.KeyT: "T",
	ebiten.KeyU: "U", ebiten.KeyX: "X", ebiten.KeyY: "Y",
}

// x1Game is the ebiten.Game adapter: Update drives exactly one frame's worth
// of CPU cycles and rescans the keyboard; Draw blits and HiDPI-scales the
// core's native framebuffer.
type x1Game struct {
	machine *Machine
	native  []byte // native-resolution RGBA8 scratch buffer
	scale   int
}

func newX1Game(m *Machine, scale int) *x1Game {
	return &x1Game{
		machine: m,
		native:  make([]byte, screenWidth*screenHeight*4),
		scale:   ClampScale(scale),
	}
}

func (g *x1Game) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	g.machine.RunFrame(cyclesPerFrame)

	shiftHeld := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	g.machine.PollKeyboard(func(name string) bool {
		for key, n := range hostKeyNames {
			if n == name && ebiten.IsKeyPressed(key) {
				return true
			}
		}
		return false
	}, shiftHeld)
	return nil
}

func (g *x1Game) Draw(screen *ebiten.Image) {
	for i := range g.native {
		g.native[i] = 0
	}
	g.machine.Display(g.native, screenWidth)

	src := &image.RGBA{Pix: g.native, Stride: screenWidth * 4, Rect: image.Rect(0, 0, screenWidth, screenHeight)}
	dstW, dstH := screenWidth*g.scale, screenHeight*g.scale
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	img := ebiten.NewImageFromImage(dst)
	screen.DrawImage(img, nil)
}

func (g *x1Game) Layout(_, _ int) (int, int) {
	return screenWidth * g.scale, screenHeight * g.scale
}

// runHeadless drives the machine from a raw-mode terminal with no window:
// every keypress byte read from stdin is folded into the single-key-pressed
// model the keyboard translator expects, and RunFrame is called on a fixed
// cadence until stdin closes or Ctrl+C arrives.
func runHeadless(m *Machine) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("headless: %w", err)
	}
	defer term.Restore(fd, oldState)

	buf := make([]byte, 1)
	var pressedName string
	for {
		m.RunFrame(cyclesPerFrame)
		m.PollKeyboard(func(name string) bool { return name == pressedName }, len(pressedName) == 1)

		n, err := os.Stdin.Read(buf)
		if n > 0 {
			switch b := buf[0]; {
			case b == 3: // Ctrl+C
				return nil
			case b >= 'A' && b <= 'Y':
				pressedName = string(b)
			case b >= '0' && b <= '9':
				pressedName = "Numpad" + string(b)
			default:
				pressedName = ""
			}
		}
		if err != nil {
			return nil
		}
	}
}

func main() {
	iplPath := flag.String("ipl", "", "IPL ROM image (4096 bytes)")
	fontPath := flag.String("font", "", "8x8 font ROM image (2048 bytes)")
	floppyPath := flag.String("floppy", "", "floppy disk image (327680 bytes)")
	cartPath := flag.String("cart", "", "cartridge ROM image")
	scale := flag.Int("scale", 2, "integer display scale (headless mode ignores this)")
	headless := flag.Bool("headless", false, "run without a window, driven from a raw terminal")
	flag.Parse()

	m, err := NewMachine(MachineConfig{
		IPLPath:    *iplPath,
		FontPath:   *fontPath,
		FloppyPath: *floppyPath,
		CartPath:   *cartPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "x1emu: %v\n", err)
		os.Exit(1)
	}

	if *headless {
		if err := runHeadless(m); err != nil {
			fmt.Fprintf(os.Stderr, "x1emu: %v\n", err)
			os.Exit(1)
		}
		return
	}

	game := newX1Game(m, *scale)
	ebiten.SetWindowSize(screenWidth*game.scale, screenHeight*game.scale)
	ebiten.SetWindowTitle("X1 Core")
	if err := ebiten.RunGame(game); err != nil {
		fmt.Fprintf(os.Stderr, "x1emu: %v\n", err)
		os.Exit(1)
	}
}

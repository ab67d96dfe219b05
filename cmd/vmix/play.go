package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"
	"github.com/yohamta/donburi"

	"github.com/phanxgames/vmix"
	"github.com/phanxgames/vmix/config"
	"github.com/phanxgames/vmix/ecs"
)

var viewKeys = map[ebiten.Key]vmix.ViewMode{
	ebiten.Key1: vmix.ViewMixing,
	ebiten.Key2: vmix.ViewGeometry,
	ebiten.Key3: vmix.ViewLayer,
	ebiten.Key4: vmix.ViewTexture,
}

// noticeTTL is how long a notification stays on screen.
const noticeTTL = 4 * time.Second

// notices receives mixer notifications through a Donburi world and keeps
// the latest one for the overlay.
type notices struct {
	world donburi.World
	last  vmix.Notification
}

func newNotices() *notices {
	n := &notices{world: donburi.NewWorld()}
	ecs.NotificationEventType.Subscribe(n.world, func(_ donburi.World, note vmix.Notification) {
		n.last = note
		vmix.Logger().Info("notification", "level", note.Level.String(), "message", note.Message)
	})
	return n
}

func (n *notices) notifier() vmix.Notifier { return ecs.NewDonburiNotifier(n.world) }

func (n *notices) process() { ecs.NotificationEventType.ProcessEvents(n.world) }

// current returns the message to show at now, or "".
func (n *notices) current(now time.Time) string {
	if n.last.Message == "" || now.Sub(n.last.Time) > noticeTTL {
		return ""
	}
	return n.last.Message
}

// game drives a Mixer from the ebiten loop and shows its output.
type game struct {
	mixer  *vmix.Mixer
	script *vmix.Script
	// started is set once the script is handed to the mixer, after the
	// session has loaded.
	started bool
	// exit ends the loop once the script is done and no job is running.
	exit    bool
	saveKey string
	saved   bool

	fade    time.Duration
	reloads chan *config.Config
	dragged bool

	shots   string
	showFPS bool
	notices *notices
}

func newGame(m *vmix.Mixer, n *notices, c *config.Config) *game {
	return &game{
		mixer:   m,
		notices: n,
		fade:    time.Duration(c.Mixing.FadingSeconds * float64(time.Second)),
		reloads: make(chan *config.Config, 1),
	}
}

func (g *game) Update() error {
	select {
	case c := <-g.reloads:
		g.fade = time.Duration(c.Mixing.FadingSeconds * float64(time.Second))
	default:
	}

	if g.script == nil {
		g.handleInput()
	}
	g.mixer.Update(1 / float64(ebiten.TPS()))
	g.notices.process()

	if g.script != nil && !g.started && !g.mixer.Busy() {
		g.mixer.SetScript(g.script)
		g.started = true
		return nil
	}
	if g.exit && g.started && g.script.Done() {
		if g.saveKey != "" && !g.saved {
			if err := g.mixer.Save(g.saveKey); err != nil {
				return err
			}
			g.saved = true
			return nil
		}
		if !g.mixer.Busy() {
			return ebiten.Termination
		}
	}
	return nil
}

func (g *game) handleInput() {
	m := g.mixer
	for key, mode := range viewKeys {
		if inpututil.IsKeyJustPressed(key) {
			m.SetView(mode)
		}
	}
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab) && shift:
		m.SetCurrentPrevious()
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		m.SetCurrentNext()
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if src := m.Current(); src != nil {
			src.Play(!src.Playing())
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		target := 1.0
		if m.Session().Fading() > 0.5 {
			target = 0
		}
		m.Fade(target, g.fade)
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ) && shift,
		ctrl && inpututil.IsKeyJustPressed(ebiten.KeyY):
		_ = m.Redo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyZ):
		_ = m.Undo()
	case ctrl && inpututil.IsKeyJustPressed(ebiten.KeyS):
		if err := m.Save(""); err != nil {
			vmix.Logger().Warn("save", "error", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyDelete):
		if src := m.Current(); src != nil {
			m.Remove(src)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		label := m.Session().Filename()
		if err := m.Screenshot(g.shots, label); err != nil {
			vmix.Logger().Warn("screenshot", "error", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF3):
		g.showFPS = !g.showFPS
	}

	x, y := ebiten.CursorPosition()
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.dragged = m.BeginGrab(float64(x), float64(y))
	case g.dragged && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		m.Grab(float64(x), float64(y))
	case g.dragged:
		m.EndGrab()
		g.dragged = false
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.mixer.Session().Output().Image(), nil)
	if g.showFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nsources: %d",
			ebiten.ActualFPS(), ebiten.ActualTPS(), g.mixer.Session().Len()))
	}
	if msg := g.notices.current(time.Now()); msg != "" {
		ebitenutil.DebugPrintAt(screen, msg, 4, screen.Bounds().Dy()-20)
	}
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.mixer.Session().Resolution()
}

// openMixer creates a mixer on the configured store and queues key for
// loading on the first frames.
func openMixer(key string, n vmix.Notifier) (*vmix.Mixer, error) {
	opts := mixerOptions(cfg, docStore)
	opts.Notifier = n
	m := vmix.NewMixer(opts)
	if key == "" {
		return m, nil
	}
	if err := m.Open(key); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func runGame(g *game, title string) error {
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(cfg.Output.Width, cfg.Output.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(int(cfg.Output.FPS))
	defer g.mixer.Close()
	return ebiten.RunGame(g)
}

func runPlay(cmd *cobra.Command, args []string) error {
	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	n := newNotices()
	m, err := openMixer(key, n.notifier())
	if err != nil {
		return err
	}
	g := newGame(m, n, cfg)
	g.shots, _ = cmd.Flags().GetString("screenshots")
	g.showFPS, _ = cmd.Flags().GetBool("fps")

	if watch, _ := cmd.Flags().GetBool("watch"); watch && configPath != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			err := config.Watch(ctx, configPath, vmix.Logger(), func(c *config.Config) {
				logLevel.Set(parseLevel(c.Log.Level))
				select {
				case g.reloads <- c:
				default:
				}
			})
			if err != nil {
				vmix.Logger().Warn("config watch", "error", err)
			}
		}()
	}

	title := "vmix"
	if key != "" {
		title = fmt.Sprintf("vmix - %s", key)
	}
	return runGame(g, title)
}

func runScript(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	script, err := vmix.LoadScript(data)
	if err != nil {
		return err
	}
	n := newNotices()
	m, err := openMixer(args[0], n.notifier())
	if err != nil {
		return err
	}
	g := newGame(m, n, cfg)
	g.script = script
	g.exit = true
	g.saveKey, _ = cmd.Flags().GetString("save")

	if hidden, _ := cmd.Flags().GetBool("hidden"); hidden {
		ebiten.SetRunnableOnUnfocused(true)
		ebiten.SetWindowDecorated(false)
		ebiten.SetWindowPosition(-cfg.Output.Width*2, 0)
	}
	if err := runGame(g, "vmix - "+args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ran %s against %s in %d frames\n", args[1], args[0], m.Frame())
	return nil
}

package vmix

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/hajimehoshi/ebiten/v2"
)

// PatternType selects a generated test pattern.
type PatternType int

const (
	PatternBlack PatternType = iota
	PatternWhite
	PatternColorBars
	PatternGradient
	PatternChecker
	PatternCircles
	PatternHueCycle   // animated
	PatternMovingBars // animated
	numPatterns
)

var patternNames = [numPatterns]string{
	"black", "white", "color bars", "gradient", "checker", "circles", "hue cycle", "moving bars",
}

func (p PatternType) String() string {
	if p >= 0 && p < numPatterns {
		return patternNames[p]
	}
	return "unknown"
}

// ParsePattern returns the pattern named name, as printed by String.
func ParsePattern(name string) (PatternType, bool) {
	for i, n := range patternNames {
		if n == name {
			return PatternType(i), true
		}
	}
	return PatternBlack, false
}

// Animated reports whether the pattern changes over time.
func (p PatternType) Animated() bool {
	return p == PatternHueCycle || p == PatternMovingBars
}

// PatternProducer generates a test pattern with the gg rasterizer. Static
// patterns are drawn once; animated patterns are redrawn while playing.
type PatternProducer struct {
	playClock
	pattern PatternType
	w, h    int
	dc      *gg.Context
	frame   *ebiten.Image
	drawn   bool
}

// NewPatternProducer creates a pattern producer. Non-positive sizes default
// to 1280x720.
func NewPatternProducer(pattern PatternType, w, h int) *PatternProducer {
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	if pattern < 0 || pattern >= numPatterns {
		pattern = PatternBlack
	}
	return &PatternProducer{pattern: pattern, w: w, h: h, playClock: playClock{playing: true}}
}

func (p *PatternProducer) Kind() Kind             { return KindPattern }
func (p *PatternProducer) Ready() bool            { return p.drawn }
func (p *PatternProducer) Failed() bool           { return false }
func (p *PatternProducer) Frame() *ebiten.Image   { return p.frame }
func (p *PatternProducer) Resolution() (int, int) { return p.w, p.h }
func (p *PatternProducer) Pattern() PatternType   { return p.pattern }

func (p *PatternProducer) State() ProducerState {
	return ProducerState{Kind: KindPattern, Pattern: p.pattern, Width: p.w, Height: p.h, Playing: p.playing}
}

// Update draws the first frame, then redraws animated patterns while playing.
func (p *PatternProducer) Update(dt float64) {
	before := p.position
	p.advance(dt)
	if p.drawn && (!p.pattern.Animated() || p.position == before) {
		return
	}
	if p.dc == nil {
		p.dc = gg.NewContext(p.w, p.h)
	}
	drawPattern(p.dc, p.pattern, p.position.Seconds())
	img := p.dc.Image()
	if p.frame == nil {
		p.frame = ebiten.NewImageFromImage(img)
	} else {
		p.frame.WritePixels(rgbaPixels(img))
	}
	p.drawn = true
}

// Close releases the frame and the raster context.
func (p *PatternProducer) Close() error {
	if p.frame != nil {
		p.frame.Deallocate()
		p.frame = nil
	}
	if p.dc != nil {
		err := p.dc.Close()
		p.dc = nil
		return err
	}
	return nil
}

// drawPattern renders pattern at time t (seconds) into dc.
func drawPattern(dc *gg.Context, pattern PatternType, t float64) {
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.ClearWithColor(gg.RGB(0, 0, 0))
	switch pattern {
	case PatternBlack:
		return
	case PatternWhite:
		dc.ClearWithColor(gg.RGB(1, 1, 1))
		return
	case PatternColorBars:
		bars := []gg.RGBA{
			gg.RGB(0.75, 0.75, 0.75), gg.RGB(0.75, 0.75, 0), gg.RGB(0, 0.75, 0.75), gg.RGB(0, 0.75, 0),
			gg.RGB(0.75, 0, 0.75), gg.RGB(0.75, 0, 0), gg.RGB(0, 0, 0.75),
		}
		bw := w / float64(len(bars))
		for i, c := range bars {
			dc.SetRGBA(c.R, c.G, c.B, 1)
			dc.DrawRectangle(float64(i)*bw, 0, bw+1, h)
			fillLogged(dc)
		}
	case PatternGradient:
		brush := gg.NewLinearGradientBrush(0, 0, w, 0).
			AddColorStop(0, gg.RGB(0, 0, 0)).
			AddColorStop(1, gg.RGB(1, 1, 1))
		dc.SetFillBrush(brush)
		dc.DrawRectangle(0, 0, w, h)
		fillLogged(dc)
	case PatternChecker:
		size := h / 8
		dc.SetRGB(1, 1, 1)
		for y := 0; float64(y)*size < h; y++ {
			for x := 0; float64(x)*size < w; x++ {
				if (x+y)%2 == 0 {
					dc.DrawRectangle(float64(x)*size, float64(y)*size, size, size)
				}
			}
		}
		fillLogged(dc)
	case PatternCircles:
		dc.SetRGB(1, 1, 1)
		dc.SetLineWidth(math.Max(h/100, 1))
		for r := h / 10; r < math.Hypot(w, h)/2; r += h / 10 {
			dc.DrawCircle(w/2, h/2, r)
			if err := dc.Stroke(); err != nil {
				Logger().Warn("pattern stroke failed", "error", err)
			}
		}
	case PatternHueCycle:
		c := gg.HSL(math.Mod(t*60, 360), 1, 0.5)
		dc.ClearWithColor(c)
	case PatternMovingBars:
		bw := w / 8
		offset := math.Mod(t*w/4, 2*bw)
		dc.SetRGB(1, 1, 1)
		for x := -2*bw + offset; x < w; x += 2 * bw {
			dc.DrawRectangle(x, 0, bw, h)
		}
		fillLogged(dc)
	}
}

func fillLogged(dc *gg.Context) {
	if err := dc.Fill(); err != nil {
		Logger().Warn("pattern fill failed", "error", err)
	}
}

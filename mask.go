package vmix

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/gogpu/gg"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// MaskMode selects how a source's mask buffer is produced.
type MaskMode uint8

const (
	MaskNone  MaskMode = iota // no mask, the whole frame is visible
	MaskShape                 // generated shape with a soft edge
	MaskPaint                 // accumulated brush strokes
	MaskImage                 // still image, filled once
)

var maskModeNames = [...]string{"none", "shape", "paint", "image"}

func (m MaskMode) String() string {
	if int(m) < len(maskModeNames) {
		return maskModeNames[m]
	}
	return "unknown"
}

// MaskShapeKind is the generated shape of a MaskShape mask.
type MaskShapeKind uint8

const (
	ShapeEllipse MaskShapeKind = iota
	ShapeOblong
	ShapeRectangle
	ShapeHorizontal // horizontal band
	ShapeVertical   // vertical band
)

// PaintStroke is one brush dab in UV coordinates.
type PaintStroke struct {
	Pos Vec2 `json:"pos"`
	// Radius is a fraction of the frame height.
	Radius float64 `json:"radius"`
	Erase  bool    `json:"erase,omitempty"`
}

// Mask describes a source mask. Only the fields of the active mode matter.
type Mask struct {
	Mode  MaskMode      `json:"mode"`
	Shape MaskShapeKind `json:"shape"`
	// Size is the shape extent as a fraction of the frame, per axis.
	Size Vec2 `json:"size"`
	// Smooth is the edge blur as a fraction of the frame height.
	Smooth  float64       `json:"smooth"`
	Image   []byte        `json:"image,omitempty"`
	Strokes []PaintStroke `json:"strokes,omitempty"`
}

// DefaultMask returns a disabled mask with a centered ellipse preset.
func DefaultMask() Mask {
	return Mask{Mode: MaskNone, Shape: ShapeEllipse, Size: Vec2{1, 1}}
}

// maskBuffer holds the rendered mask of a source. Paint masks ping-pong
// between two buffers: every frame with new strokes composites the previous
// mask into the other buffer before adding them.
type maskBuffer struct {
	buf     [2]*FrameBuffer
	front   int
	ready   bool
	applied int
	vs      []ebiten.Vertex
	is      []uint16
}

func newMaskBuffer(w, h int) *maskBuffer {
	return &maskBuffer{buf: [2]*FrameBuffer{NewFrameBuffer(w, h), NewFrameBuffer(w, h)}}
}

func (m *maskBuffer) image() *ebiten.Image { return m.buf[m.front].Image() }

// invalidate forces the next update to rebuild the mask from scratch.
func (m *maskBuffer) invalidate() {
	m.ready = false
	m.applied = 0
}

func (m *maskBuffer) dispose() {
	m.buf[0].Dispose()
	m.buf[1].Dispose()
}

// update renders mask into the front buffer. Shape and image masks are
// rendered once per invalidation; paint masks add pending strokes.
func (m *maskBuffer) update(mask *Mask) error {
	front := m.buf[m.front]
	switch mask.Mode {
	case MaskShape:
		if m.ready {
			return nil
		}
		img := renderShapeMask(mask.Shape, mask.Size, mask.Smooth, front.w, front.h)
		tex := ebiten.NewImageFromImage(img)
		front.Clear()
		front.DrawImage(tex, BlendNone)
		tex.Deallocate()
		m.ready = true

	case MaskImage:
		if m.ready {
			return nil
		}
		m.ready = true
		front.Fill(ColorWhite)
		if len(mask.Image) == 0 {
			return nil
		}
		img, _, err := image.Decode(bytes.NewReader(mask.Image))
		if err != nil {
			return fmt.Errorf("vmix: decode mask image: %w", err)
		}
		tex := ebiten.NewImageFromImage(img)
		front.DrawImage(tex, BlendNone)
		tex.Deallocate()

	case MaskPaint:
		if !m.ready || len(mask.Strokes) < m.applied {
			front.Fill(ColorWhite)
			m.applied = 0
			m.ready = true
		}
		if m.applied == len(mask.Strokes) {
			return nil
		}
		back := m.buf[1-m.front]
		back.Clear()
		back.DrawImage(front.Image(), BlendNone)
		for _, s := range mask.Strokes[m.applied:] {
			m.dab(back, s)
		}
		m.applied = len(mask.Strokes)
		m.front = 1 - m.front
	}
	return nil
}

// dab draws one stroke. Painting restores visibility, erasing hides.
func (m *maskBuffer) dab(fb *FrameBuffer, s PaintStroke) {
	var p vector.Path
	cx := float32(s.Pos.X * float64(fb.w))
	cy := float32(s.Pos.Y * float64(fb.h))
	r := float32(math.Max(s.Radius*float64(fb.h), 0.5))
	p.Arc(cx, cy, r, 0, 2*math.Pi, vector.Clockwise)
	p.Close()

	m.vs, m.is = p.AppendVerticesAndIndicesForFilling(m.vs[:0], m.is[:0])
	for i := range m.vs {
		m.vs[i].SrcX, m.vs[i].SrcY = 0.5, 0.5
		m.vs[i].ColorR, m.vs[i].ColorG, m.vs[i].ColorB, m.vs[i].ColorA = 1, 1, 1, 1
	}
	blend := ebiten.BlendSourceOver
	if s.Erase {
		blend = ebiten.BlendDestinationOut
	}
	fb.image.DrawTriangles(m.vs, m.is, ensureWhitePixel(), &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
		Blend:     blend,
	})
}

// apply multiplies dst by the mask alpha.
func (m *maskBuffer) apply(dst *FrameBuffer) {
	dst.DrawImage(m.image(), BlendMask)
}

// renderShapeMask rasterizes a white shape on transparent black, blurred by
// smooth (fraction of the height).
func renderShapeMask(shape MaskShapeKind, size Vec2, smooth float64, w, h int) image.Image {
	dc := gg.NewContext(w, h)
	defer func() { _ = dc.Close() }()
	dc.Clear()
	dc.SetRGBA(1, 1, 1, 1)

	fw, fh := float64(w), float64(h)
	sw := clamp01(math.Abs(size.X)) * fw
	sh := clamp01(math.Abs(size.Y)) * fh
	x, y := (fw-sw)/2, (fh-sh)/2
	switch shape {
	case ShapeEllipse:
		dc.DrawEllipse(fw/2, fh/2, sw/2, sh/2)
	case ShapeOblong:
		dc.DrawRoundedRectangle(x, y, sw, sh, math.Min(sw, sh)/4)
	case ShapeRectangle:
		dc.DrawRectangle(x, y, sw, sh)
	case ShapeHorizontal:
		dc.DrawRectangle(0, y, fw, sh)
	case ShapeVertical:
		dc.DrawRectangle(x, 0, sw, fh)
	}
	if err := dc.Fill(); err != nil {
		Logger().Warn("mask fill failed", "error", err)
	}
	img := dc.Image()
	if radius := smooth * fh; radius >= 1 {
		return blur.Gaussian(img, radius)
	}
	return img
}

var whitePixelImage *ebiten.Image

func ensureWhitePixel() *ebiten.Image {
	if whitePixelImage == nil {
		whitePixelImage = ebiten.NewImage(1, 1)
		whitePixelImage.Fill(color.White)
	}
	return whitePixelImage
}

package vmix

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// FrameBuffer is a persistent offscreen image owned by a source or a
// session. The projection area is the visible fraction of the buffer on
// each axis, as set by the Geometry crop.
type FrameBuffer struct {
	image      *ebiten.Image
	w, h       int
	projection Vec2
}

// NewFrameBuffer creates a cleared frame buffer. Sizes below one pixel are
// raised to one.
func NewFrameBuffer(w, h int) *FrameBuffer {
	w, h = max(w, 1), max(h, 1)
	return &FrameBuffer{
		image:      ebiten.NewImage(w, h),
		w:          w,
		h:          h,
		projection: Vec2{1, 1},
	}
}

// Image returns the underlying texture.
func (fb *FrameBuffer) Image() *ebiten.Image { return fb.image }

// Width returns the width in pixels.
func (fb *FrameBuffer) Width() int { return fb.w }

// Height returns the height in pixels.
func (fb *FrameBuffer) Height() int { return fb.h }

// Resolution returns width and height in pixels.
func (fb *FrameBuffer) Resolution() (int, int) { return fb.w, fb.h }

// AspectRatio returns width / height.
func (fb *FrameBuffer) AspectRatio() float64 {
	return float64(fb.w) / float64(fb.h)
}

// SetProjectionArea sets the visible fraction of the buffer. Each component
// is clamped to [MinScale, 1].
func (fb *FrameBuffer) SetProjectionArea(v Vec2) {
	fb.projection = Vec2{clamp(math.Abs(v.X), MinScale, 1), clamp(math.Abs(v.Y), MinScale, 1)}
}

// ProjectionArea returns the visible fraction of the buffer.
func (fb *FrameBuffer) ProjectionArea() Vec2 { return fb.projection }

// Clear fills the buffer with transparent black.
func (fb *FrameBuffer) Clear() { fb.image.Clear() }

// Fill fills the buffer with c.
func (fb *FrameBuffer) Fill(c Color) { fb.image.Fill(c.toRGBA()) }

// Blit copies the buffer into dst, scaling to dst's resolution.
func (fb *FrameBuffer) Blit(dst *FrameBuffer) {
	if dst == nil || dst == fb {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(float64(dst.w)/float64(fb.w), float64(dst.h)/float64(fb.h))
	op.Filter = ebiten.FilterLinear
	op.Blend = ebiten.BlendCopy
	dst.image.DrawImage(fb.image, &op)
}

// DrawImage draws src scaled to fill the buffer with the given blend mode.
func (fb *FrameBuffer) DrawImage(src *ebiten.Image, blend BlendMode) {
	if src == nil {
		return
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(float64(fb.w)/float64(b.Dx()), float64(fb.h)/float64(b.Dy()))
	op.Filter = ebiten.FilterLinear
	op.Blend = blend.EbitenBlend()
	fb.image.DrawImage(src, &op)
}

// Resize reallocates the buffer. No-op when the size is unchanged.
func (fb *FrameBuffer) Resize(w, h int) {
	w, h = max(w, 1), max(h, 1)
	if w == fb.w && h == fb.h && fb.image != nil {
		return
	}
	if fb.image != nil {
		fb.image.Deallocate()
	}
	fb.image = ebiten.NewImage(w, h)
	fb.w, fb.h = w, h
}

// Dispose deallocates the image. The buffer must not be used afterwards.
func (fb *FrameBuffer) Dispose() {
	if fb.image != nil {
		fb.image.Deallocate()
		fb.image = nil
	}
}

// framePool recycles scratch images keyed by power-of-two dimensions.
// It is used from the update goroutine only.
type framePool struct {
	buckets map[uint64][]*ebiten.Image
}

// scratchFrames holds the resize buffers of the image processing pass.
var scratchFrames framePool

func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a cleared image with at least (w, h) pixels.
func (p *framePool) Acquire(w, h int) *ebiten.Image {
	pw, ph := nextPowerOfTwo(w), nextPowerOfTwo(h)
	key := poolKey(pw, ph)
	if stack := p.buckets[key]; len(stack) > 0 {
		img := stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		img.Clear()
		return img
	}
	return ebiten.NewImageWithOptions(image.Rect(0, 0, pw, ph), &ebiten.NewImageOptions{Unmanaged: true})
}

// Release returns img to the pool. It is cleared on the next Acquire.
func (p *framePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	key := poolKey(b.Dx(), b.Dy())
	p.buckets[key] = append(p.buckets[key], img)
}

// Drain deallocates every pooled image.
func (p *framePool) Drain() {
	for key, stack := range p.buckets {
		for _, img := range stack {
			img.Deallocate()
		}
		delete(p.buckets, key)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}

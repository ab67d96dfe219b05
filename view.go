package vmix

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	MinViewZoom = 0.1
	MaxViewZoom = 10.0
)

// scrollAnim holds active scroll-to tweens for the pan X and Y.
type scrollAnim struct {
	tweenX *gween.Tween
	tweenY *gween.Tween
	doneX  bool
	doneY  bool
}

// View is the interactive window onto one compositing space. Pan and zoom
// live in the session's view node so they travel with the session: the
// node translation is the scene point at the viewport center and the node
// scale X is the zoom.
type View struct {
	mode ViewMode
	node *TransformNode

	// Viewport is the screen rectangle the view is drawn into.
	Viewport Rect

	scroll *scrollAnim
}

func newView(mode ViewMode, viewport Rect) *View {
	return &View{mode: mode, node: NewTransformNode(), Viewport: viewport}
}

// Mode returns the compositing space of the view.
func (v *View) Mode() ViewMode { return v.mode }

// bind attaches the view to a session's view node.
func (v *View) bind(n *TransformNode) {
	v.node = n
	v.scroll = nil
	if n.Scale.X <= 0 {
		n.SetScale(Vec3{1, 1, 1})
	}
}

// Pan returns the scene point at the center of the viewport.
func (v *View) Pan() Vec2 { return v.node.Translation.XY() }

// SetPan centers the viewport on p.
func (v *View) SetPan(p Vec2) {
	v.node.SetTranslation(p.Vec3(v.node.Translation.Z))
}

// Zoom returns the zoom factor; 1 shows two scene units across the
// viewport height.
func (v *View) Zoom() float64 { return v.node.Scale.X }

// SetZoom sets the zoom, clamped to [MinViewZoom, MaxViewZoom].
func (v *View) SetZoom(z float64) {
	z = clamp(z, MinViewZoom, MaxViewZoom)
	v.node.SetScale(Vec3{z, z, 1})
}

// ZoomAt multiplies the zoom by factor keeping the scene point under the
// screen point (sx, sy) fixed.
func (v *View) ZoomAt(factor, sx, sy float64) {
	before := v.ScreenToScene(sx, sy)
	v.SetZoom(v.Zoom() * factor)
	after := v.ScreenToScene(sx, sy)
	v.SetPan(v.Pan().Add(before.Sub(after)))
}

// ScrollTo animates the pan to p over duration seconds.
func (v *View) ScrollTo(p Vec2, duration float32, easeFn ease.TweenFunc) {
	if easeFn == nil {
		easeFn = ease.OutCubic
	}
	pan := v.Pan()
	v.scroll = &scrollAnim{
		tweenX: gween.New(float32(pan.X), float32(p.X), duration, easeFn),
		tweenY: gween.New(float32(pan.Y), float32(p.Y), duration, easeFn),
	}
}

// Scrolling reports whether a ScrollTo animation is running.
func (v *View) Scrolling() bool { return v.scroll != nil }

// update advances the scroll animation.
func (v *View) update(dt float32) {
	if v.scroll == nil {
		return
	}
	pan := v.Pan()
	if !v.scroll.doneX {
		val, done := v.scroll.tweenX.Update(dt)
		pan.X = float64(val)
		v.scroll.doneX = done
	}
	if !v.scroll.doneY {
		val, done := v.scroll.tweenY.Update(dt)
		pan.Y = float64(val)
		v.scroll.doneY = done
	}
	v.SetPan(pan)
	if v.scroll.doneX && v.scroll.doneY {
		v.scroll = nil
	}
}

// pixelsPerUnit is the number of screen pixels per scene unit.
func (v *View) pixelsPerUnit() float64 {
	h := v.Viewport.Height
	if h <= 0 {
		h = 2
	}
	return v.Zoom() * h / 2
}

// ScreenToScene converts screen coordinates (y down) to scene coordinates
// (y up).
func (v *View) ScreenToScene(sx, sy float64) Vec2 {
	ppu := v.pixelsPerUnit()
	cx := v.Viewport.X + v.Viewport.Width/2
	cy := v.Viewport.Y + v.Viewport.Height/2
	pan := v.Pan()
	return Vec2{(sx-cx)/ppu + pan.X, -(sy-cy)/ppu + pan.Y}
}

// SceneToScreen converts scene coordinates to screen coordinates.
func (v *View) SceneToScreen(p Vec2) (sx, sy float64) {
	ppu := v.pixelsPerUnit()
	cx := v.Viewport.X + v.Viewport.Width/2
	cy := v.Viewport.Y + v.Viewport.Height/2
	pan := v.Pan()
	return cx + (p.X-pan.X)*ppu, cy - (p.Y-pan.Y)*ppu
}

// VisibleBounds returns the scene rectangle covered by the viewport.
func (v *View) VisibleBounds() Rect {
	x0, y0 := v.Viewport.X, v.Viewport.Y
	a := v.ScreenToScene(x0, y0)
	b := v.ScreenToScene(x0+v.Viewport.Width, y0+v.Viewport.Height)
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// CanSelect reports whether src can be picked in this view. Rendering and
// Transition views pick nothing; Geometry picks active sources; Texture
// picks sources that own their pixels.
func (v *View) CanSelect(src *Source) bool {
	if src == nil {
		return false
	}
	switch v.mode {
	case ViewMixing, ViewLayer:
		return true
	case ViewGeometry:
		return src.Active()
	case ViewTexture:
		k := src.Kind()
		return k != KindClone && k != KindRender
	}
	return false
}

// grabTarget returns the node a grab in this view moves.
func (v *View) grabTarget(src *Source) *TransformNode {
	switch v.mode {
	case ViewMixing, ViewGeometry, ViewLayer, ViewTexture:
		return src.Node(v.mode)
	}
	return nil
}

// applyGrab moves src by delta scene units from its stored start state.
// In the Layer view only the horizontal motion matters: moving left goes
// deeper.
func (v *View) applyGrab(src *Source, delta Vec2) {
	n := v.grabTarget(src)
	if n == nil || src.locked {
		return
	}
	start := src.StoredStatus()
	switch v.mode {
	case ViewLayer:
		src.SetDepth(start.Translation.Z - delta.X)
	default:
		n.SetTranslation(start.Translation.Add(delta.Vec3(0)))
	}
	src.touch()
}

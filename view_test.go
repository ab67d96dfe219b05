package vmix

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func newTestView(mode ViewMode) *View {
	v := newView(mode, Rect{Width: 800, Height: 600})
	v.bind(NewTransformNode())
	return v
}

func TestViewDefaults(t *testing.T) {
	v := newTestView(ViewMixing)
	if v.Zoom() != 1 {
		t.Errorf("zoom = %f", v.Zoom())
	}
	if v.Pan() != (Vec2{}) {
		t.Errorf("pan = %v", v.Pan())
	}
	if v.Mode() != ViewMixing {
		t.Error("mode")
	}
}

func TestViewScreenToScene(t *testing.T) {
	v := newTestView(ViewMixing)
	p := v.ScreenToScene(400, 300)
	if !approxEqual(p.X, 0, 1e-9) || !approxEqual(p.Y, 0, 1e-9) {
		t.Errorf("center = %v", p)
	}
	// 300 px per unit; screen y grows downward.
	p = v.ScreenToScene(700, 0)
	if !approxEqual(p.X, 1, 1e-9) || !approxEqual(p.Y, 1, 1e-9) {
		t.Errorf("corner = %v", p)
	}

	v.SetPan(Vec2{2, -1})
	v.SetZoom(2)
	sx, sy := v.SceneToScreen(Vec2{2.5, -1.25})
	back := v.ScreenToScene(sx, sy)
	if !approxEqual(back.X, 2.5, 1e-9) || !approxEqual(back.Y, -1.25, 1e-9) {
		t.Errorf("round trip = %v", back)
	}
}

func TestViewZoomClamp(t *testing.T) {
	v := newTestView(ViewMixing)
	v.SetZoom(100)
	if v.Zoom() != MaxViewZoom {
		t.Errorf("zoom = %f", v.Zoom())
	}
	v.SetZoom(0)
	if v.Zoom() != MinViewZoom {
		t.Errorf("zoom = %f", v.Zoom())
	}
}

func TestViewZoomAtKeepsPoint(t *testing.T) {
	v := newTestView(ViewMixing)
	before := v.ScreenToScene(100, 500)
	v.ZoomAt(2.5, 100, 500)
	after := v.ScreenToScene(100, 500)
	if !approxEqual(before.X, after.X, 1e-9) || !approxEqual(before.Y, after.Y, 1e-9) {
		t.Errorf("anchor moved from %v to %v", before, after)
	}
	if !approxEqual(v.Zoom(), 2.5, 1e-9) {
		t.Errorf("zoom = %f", v.Zoom())
	}
}

func TestViewVisibleBounds(t *testing.T) {
	v := newTestView(ViewMixing)
	b := v.VisibleBounds()
	want := Rect{X: -4.0 / 3, Y: -1, Width: 8.0 / 3, Height: 2}
	if !approxEqual(b.X, want.X, 1e-9) || !approxEqual(b.Y, want.Y, 1e-9) ||
		!approxEqual(b.Width, want.Width, 1e-9) || !approxEqual(b.Height, want.Height, 1e-9) {
		t.Errorf("bounds = %+v, want %+v", b, want)
	}
}

func TestViewScrollTo(t *testing.T) {
	v := newTestView(ViewMixing)
	v.ScrollTo(Vec2{1, -2}, 1.0, ease.Linear)
	if !v.Scrolling() {
		t.Fatal("scrolling")
	}
	v.update(0.5)
	p := v.Pan()
	if !approxEqual(p.X, 0.5, 1e-5) || !approxEqual(p.Y, -1, 1e-5) {
		t.Errorf("halfway = %v", p)
	}
	v.update(0.6)
	if v.Scrolling() {
		t.Error("finished")
	}
	p = v.Pan()
	if !approxEqual(p.X, 1, 1e-5) || !approxEqual(p.Y, -2, 1e-5) {
		t.Errorf("end = %v", p)
	}
}

func TestViewBindTravelsWithSession(t *testing.T) {
	node := NewTransformNode()
	node.SetTranslation(Vec3{3, 4, 0})
	node.SetScale(Vec3{2, 2, 1})

	v := newView(ViewGeometry, Rect{Width: 100, Height: 100})
	v.ScrollTo(Vec2{}, 1, nil)
	v.bind(node)
	if v.Scrolling() {
		t.Error("binding stops scrolling")
	}
	if v.Pan() != (Vec2{3, 4}) || v.Zoom() != 2 {
		t.Errorf("pan %v zoom %f", v.Pan(), v.Zoom())
	}
	v.SetPan(Vec2{1, 1})
	if node.Translation.X != 1 {
		t.Error("the view writes through to the session node")
	}

	zero := NewTransformNode()
	zero.SetScale(Vec3{})
	v.bind(zero)
	if v.Zoom() != 1 {
		t.Error("a zero scale node is reset")
	}
}

func TestViewCanSelect(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "a")
	c := s.Clone(a)
	r := s.Add(NewSource("out", NewRenderProducer(ProvenanceLoopback)))

	cases := []struct {
		mode ViewMode
		src  *Source
		want bool
	}{
		{ViewMixing, c, true},
		{ViewLayer, r, true},
		{ViewTexture, a, true},
		{ViewTexture, c, false},
		{ViewTexture, r, false},
		{ViewRendering, a, false},
	}
	for _, tc := range cases {
		if got := newTestView(tc.mode).CanSelect(tc.src); got != tc.want {
			t.Errorf("%v CanSelect(%s) = %v", tc.mode, tc.src.Name(), got)
		}
	}

	c.SetActive(false)
	a.SetActive(false)
	if newTestView(ViewGeometry).CanSelect(a) {
		t.Error("Geometry picks active sources only")
	}
	if newTestView(ViewMixing).CanSelect(nil) {
		t.Error("nil")
	}
}

func TestViewLayerGrabChangesDepth(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "a")
	a.SetDepth(6)
	v := newTestView(ViewLayer)
	a.StoreStatus(ViewLayer)
	v.applyGrab(a, Vec2{-1.5, 3})
	assertNear(t, "depth", a.Depth(), 7.5)

	a.SetLocked(true)
	v.applyGrab(a, Vec2{1, 0})
	assertNear(t, "locked depth", a.Depth(), 7.5)
}

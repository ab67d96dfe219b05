package vmix

import (
	"math"
	"testing"
)

func placeMixing(src *Source, x, y float64) {
	src.Node(ViewMixing).SetTranslation(Vec3{x, y, 0})
}

func TestMixingGroupDetachAndPrune(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "A")
	b := addPattern(s, "B")
	c := addPattern(s, "C")

	g := s.Link(a, b, c)
	g.Detach(b)
	if g.Size() != 2 || !g.Contains(a) || !g.Contains(c) || g.Contains(b) {
		t.Fatalf("members after detaching B = %v", g.IDs())
	}
	if b.Group() != nil {
		t.Error("detached source keeps its group")
	}
	s.Update(0)
	if !g.Valid() || len(s.Groups()) != 1 {
		t.Fatal("a group of two must survive the update")
	}

	g.Detach(c)
	if g.Size() != 1 || g.Valid() {
		t.Errorf("size = %d, valid = %v", g.Size(), g.Valid())
	}
	s.Update(0)
	if len(s.Groups()) != 0 {
		t.Error("a group of one is pruned on the next update")
	}
	if a.Group() != nil {
		t.Error("pruned group releases its last member")
	}
}

func TestMixingGroupClockwiseOrder(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	right := addPattern(s, "right")
	top := addPattern(s, "top")
	left := addPattern(s, "left")
	bottom := addPattern(s, "bottom")
	placeMixing(right, 0.5, 0)
	placeMixing(top, 0, 0.5)
	placeMixing(left, -0.5, 0)
	placeMixing(bottom, 0, -0.5)

	g := s.Link(bottom, right, left, top)
	want := []*Source{left, top, right, bottom}
	got := g.Members()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member %d = %s, want %s", i, got[i].Name(), want[i].Name())
		}
	}

	poly := g.Polyline()
	if len(poly) != 5 || poly[0] != poly[4] {
		t.Errorf("polyline should be closed, got %v", poly)
	}
	if c := g.Center(); !approxEqual(c.X, 0, 1e-12) || !approxEqual(c.Y, 0, 1e-12) {
		t.Errorf("center = %v", c)
	}
}

func TestMixingGroupGrabAllSkipsLocked(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "a")
	b := addPattern(s, "b")
	placeMixing(a, 0.1, 0)
	placeMixing(b, -0.1, 0)
	b.SetLocked(true)

	g := s.Link(a, b)
	g.GrabAll(Vec2{0, 0.2})
	assertVec3(t, "a", a.Node(ViewMixing).Translation, Vec3{0.1, 0.2, 0})
	assertVec3(t, "locked b", b.Node(ViewMixing).Translation, Vec3{-0.1, 0, 0})
	assertNear(t, "center y", g.Center().Y, 0.1)
}

func TestMixingGroupRotateAll(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := addPattern(s, "a")
	b := addPattern(s, "b")
	placeMixing(a, 0.3, 0.1)
	placeMixing(b, 0.1, 0.1)

	g := s.Link(a, b)
	g.RotateAll(math.Pi / 2)
	assertVec3(t, "a", a.Node(ViewMixing).Translation, Vec3{0.2, 0.2, 0})
	assertVec3(t, "b", b.Node(ViewMixing).Translation, Vec3{0.2, 0, 0})
	assertNear(t, "center x", g.Center().X, 0.2)
	assertNear(t, "center y", g.Center().Y, 0.1)
}

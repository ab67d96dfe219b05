package vmix

import (
	"errors"
	"testing"
)

func TestSnapshotRestoreLeavesTimeline(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "a")
	src.SetDepth(3)
	a.Store("one")
	id := a.Snapshot("look")
	if id == 0 {
		t.Fatal("snapshot id should not be 0")
	}

	src.SetDepth(7)
	a.Store("two")

	if err := a.RestoreSnapshot(id); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "depth", src.Depth(), 3)
	if a.Current() != 2 || a.Max() != 2 {
		t.Errorf("timeline changed: current %d max %d", a.Current(), a.Max())
	}
}

func TestSnapshotIsIndependentOfLiveState(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "a")
	src.SetMask(Mask{Mode: MaskPaint})
	src.Paint(PaintStroke{Pos: Vec2{0.1, 0.1}, Radius: 0.1})
	id := a.Snapshot("one stroke")

	src.Paint(PaintStroke{Pos: Vec2{0.2, 0.2}, Radius: 0.1})
	st, ok := a.snapshotState(id)
	if !ok {
		t.Fatal("snapshot missing")
	}
	rec, _ := st.Source(src.ID())
	if len(rec.Blending.Mask.Strokes) != 1 {
		t.Errorf("snapshot strokes = %d, want 1", len(rec.Blending.Mask.Strokes))
	}

	st.Sources[0].Name = "changed"
	again, _ := a.snapshotState(id)
	if again.Sources[0].Name != "a" {
		t.Error("snapshotState must return a copy")
	}

	if err := a.RestoreSnapshot(id); err != nil {
		t.Fatal(err)
	}
	if n := len(src.Mask().Strokes); n != 1 {
		t.Errorf("strokes after restore = %d, want 1", n)
	}
}

func TestSnapshotManagement(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()
	addPattern(s, "a")

	if a.Snapshot("") != 0 {
		t.Error("empty labels are rejected")
	}
	first := a.Snapshot("first")
	second := a.Snapshot("second")

	list := a.Snapshots()
	if len(list) != 2 || list[0].ID != first || list[1].ID != second {
		t.Fatalf("snapshots = %v", list)
	}
	if !a.SetSnapshotLabel(first, "renamed") || a.SnapshotLabel(first) != "renamed" {
		t.Error("rename failed")
	}
	if a.SetSnapshotLabel(first, "") || a.SetSnapshotLabel(12345, "x") {
		t.Error("invalid renames should fail")
	}

	if !a.RemoveSnapshot(first) || a.RemoveSnapshot(first) {
		t.Error("remove should succeed once")
	}
	if len(a.Snapshots()) != 1 {
		t.Error("one snapshot left")
	}
	if err := a.RestoreSnapshot(first); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := a.Interpolate(0.5, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotInterpolate(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "a")
	other := addPattern(s, "other")
	src.Node(ViewGeometry).SetTranslation(Vec3{0.4, 0, 0})
	src.SetDepth(4)
	id := a.Snapshot("target")
	a.Store("base")

	src.Node(ViewGeometry).SetTranslation(Vec3{0, 0, 0})
	src.SetDepth(8)
	s.Remove(other)
	other.Close()

	if err := a.Interpolate(0.5, id); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "halfway x", src.Node(ViewGeometry).Translation.X, 0.2)
	assertNear(t, "halfway depth", src.Depth(), 6)

	// The start state is captured on the first call only.
	if err := a.Interpolate(1, id); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "x at 1", src.Node(ViewGeometry).Translation.X, 0.4)
	assertNear(t, "depth at 1", src.Depth(), 4)
	if err := a.Interpolate(0, id); err != nil {
		t.Fatal(err)
	}
	assertNear(t, "x back at 0", src.Node(ViewGeometry).Translation.X, 0)

	if s.Len() != 1 {
		t.Error("interpolation does not add or remove sources")
	}
	if a.Max() != 1 {
		t.Error("interpolation does not store history")
	}
}

func TestSnapshotInterpolateProcessing(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "a")
	p := NeutralProcessing()
	p.Contrast = 0.8
	src.SetProcessingEnabled(true)
	src.SetProcessing(p)
	id := a.Snapshot("contrast")

	src.SetProcessingEnabled(false)
	src.SetProcessing(NeutralProcessing())
	_ = a.Interpolate(0.25, id)
	if !src.ProcessingEnabled() {
		t.Fatal("interpolating toward enabled processing enables it")
	}
	assertNear(t, "contrast", src.Processing().Contrast, 0.2)
}

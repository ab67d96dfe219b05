package vmix

import (
	"errors"
	"testing"
)

func TestHistoryUndoMove(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "Video")
	a.Store("add")
	if a.Current() != 1 {
		t.Fatalf("current = %d, want 1", a.Current())
	}
	before := src.Node(ViewGeometry).Translation

	src.Node(ViewGeometry).SetTranslation(Vec3{0.4, -0.2, 0})
	a.Store("move")
	if a.Current() != 2 {
		t.Fatalf("current = %d, want 2", a.Current())
	}

	if err := a.Undo(); err != nil {
		t.Fatal(err)
	}
	if a.Current() != 1 {
		t.Errorf("current = %d, want 1", a.Current())
	}
	if s.Find(src.ID()) != src {
		t.Fatal("undo must keep the source instance")
	}
	assertVec3(t, "geometry after undo", src.Node(ViewGeometry).Translation, before)

	if err := a.Redo(); err != nil {
		t.Fatal(err)
	}
	assertVec3(t, "geometry after redo", src.Node(ViewGeometry).Translation, Vec3{0.4, -0.2, 0})
}

func TestHistoryStoreTruncatesRedo(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	src := addPattern(s, "a")
	a.Store("one")
	src.SetDepth(3)
	a.Store("two")
	src.SetDepth(4)
	a.Store("three")

	_ = a.Undo()
	_ = a.Undo()
	src.SetDepth(8)
	a.Store("branch")
	if a.Max() != 2 || a.Current() != 2 {
		t.Errorf("max = %d current = %d, want 2 and 2", a.Max(), a.Current())
	}
	if a.Label(2) != "branch" || a.Label(3) != "" || a.Label(0) != "" {
		t.Errorf("labels = %q %q", a.Label(2), a.Label(3))
	}
	if a.StepTime(1).IsZero() || !a.StepTime(9).IsZero() {
		t.Error("step times")
	}
}

func TestHistoryBounds(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	if err := a.Undo(); err != nil {
		t.Error(err)
	}
	if err := a.Redo(); err != nil {
		t.Error(err)
	}
	if err := a.StepTo(5); err != nil {
		t.Error(err)
	}

	src := addPattern(s, "a")
	a.Store("one")
	if err := a.Undo(); err != nil || a.Current() != 1 {
		t.Errorf("undo at the first step is a no-op, current = %d", a.Current())
	}
	src.SetDepth(2)
	a.Store("two")
	src.SetDepth(3)
	a.Store("three")

	if err := a.StepTo(-4); err != nil {
		t.Fatal(err)
	}
	if a.Current() != 1 {
		t.Errorf("StepTo clamps low, current = %d", a.Current())
	}
	if err := a.StepTo(40); err != nil {
		t.Fatal(err)
	}
	if a.Current() != 3 {
		t.Errorf("StepTo clamps high, current = %d", a.Current())
	}
	assertNear(t, "depth", src.Depth(), 3)
}

func TestHistoryEmptyLabelIgnored(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	addPattern(s, "a")
	s.Actions().Store("")
	if s.Actions().Max() != 0 {
		t.Error("empty labels are not stored")
	}
}

func TestHistoryRestoresRemovedSourceWithSameID(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	keep := addPattern(s, "keep")
	gone := addPattern(s, "gone")
	gone.SetDepth(9)
	id := gone.ID()
	a.Store("both")

	s.Remove(gone)
	gone.Close()
	a.Store("removed")

	if err := a.Undo(); err != nil {
		t.Fatal(err)
	}
	back := s.Find(id)
	if back == nil {
		t.Fatal("undo should recreate the removed source")
	}
	if back.Name() != "gone" || back.Kind() != KindPattern {
		t.Errorf("recreated %q of kind %v", back.Name(), back.Kind())
	}
	assertNear(t, "depth", back.Depth(), 9)
	if s.Index(keep) != 0 || s.Index(back) != 1 {
		t.Error("undo restores the recorded order")
	}

	if err := a.Redo(); err != nil {
		t.Fatal(err)
	}
	if s.Find(id) != nil || s.Len() != 1 {
		t.Error("redo should remove it again")
	}
	if s.Find(keep.ID()) != keep {
		t.Error("untouched sources keep their identity")
	}
}

func TestHistoryRemovesAddedSource(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	addPattern(s, "a")
	a.Store("a")
	b := addPattern(s, "b")
	a.Store("b")

	_ = a.Undo()
	if s.Len() != 1 || s.Find(b.ID()) != nil {
		t.Errorf("len = %d, undo should remove b", s.Len())
	}
	if b.Session() != nil {
		t.Error("removed sources are detached from the session")
	}
}

func TestHistoryRestoresClonesAfterOrigins(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	origin := addPattern(s, "origin")
	c := s.Clone(origin)
	s.Move(c, 0)
	a.Store("clone first")
	originID, cloneID := origin.ID(), c.ID()

	s.Remove(c)
	c.Close()
	s.Remove(origin)
	origin.Close()
	a.Store("empty")

	_ = a.Undo()
	o, cl := s.Find(originID), s.Find(cloneID)
	if o == nil || cl == nil {
		t.Fatal("both sources should be restored")
	}
	if cl.Origin() != originID || len(o.Clones()) != 1 {
		t.Error("clone link should be restored")
	}
	if s.Index(cl) != 0 {
		t.Error("recorded order wins over creation order")
	}
}

func TestHistoryRestoresGroupsAndSession(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	x := addPattern(s, "x")
	y := addPattern(s, "y")
	s.Link(x, y)
	s.SetFading(0.5, 0)
	note := s.AddNote("cue", Vec2{0.1, 0.1})
	s.SetPlayGroup("intro", x)
	a.Store("grouped")

	s.Unlink(x)
	s.Update(0)
	s.SetFading(0, 0)
	s.RemoveNote(note)
	s.RemovePlayGroup("intro")
	a.Store("ungrouped")

	_ = a.Undo()
	if x.Group() == nil || x.Group() != y.Group() {
		t.Error("group should be rebuilt")
	}
	assertNear(t, "fading", s.Fading(), 0.5)
	if len(s.Notes()) != 1 || s.Notes()[0].ID != note {
		t.Errorf("notes = %v", s.Notes())
	}
	if pg := s.PlayGroups(); len(pg) != 1 || pg[0].Members[0] != x.ID() {
		t.Errorf("play groups = %v", pg)
	}
}

func TestHistoryLockedDuringRestore(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	addPattern(s, "a")
	a.Store("one")
	addPattern(s, "b")
	a.Store("two")

	var sawLock bool
	a.OnViewChange(func(ViewMode) {
		sawLock = a.Locked()
		a.Store("from callback")
		if a.Snapshot("from callback") != 0 {
			t.Error("snapshots are ignored during a restore")
		}
	})
	_ = a.Undo()
	if !sawLock {
		t.Error("restore should hold the lock")
	}
	if a.Locked() {
		t.Error("lock must be released")
	}
	if a.Max() != 2 {
		t.Errorf("max = %d, stores during restore are ignored", a.Max())
	}
}

func TestHistoryRestoreView(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()

	var views []ViewMode
	a.OnViewChange(func(m ViewMode) { views = append(views, m) })

	addPattern(s, "a")
	a.SetView(ViewGeometry)
	a.Store("geometry")
	addPattern(s, "b")
	a.SetView(ViewLayer)
	a.Store("layer")

	_ = a.Undo()
	if len(views) != 1 || views[0] != ViewGeometry {
		t.Errorf("views = %v, want [geometry]", views)
	}

	a.SetRestoreView(false)
	_ = a.Redo()
	if len(views) != 1 {
		t.Error("view restore disabled")
	}
}

func TestHistoryClear(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()
	addPattern(s, "a")
	a.Store("one")
	id := a.Snapshot("snap")

	a.Clear()
	if a.Max() != 0 || a.Current() != 0 {
		t.Error("timeline should be empty")
	}
	if a.SnapshotLabel(id) != "snap" {
		t.Error("snapshots survive Clear")
	}
}

func TestHistoryRestoreReportsBadRecords(t *testing.T) {
	s := newTestSession()
	defer s.Close()
	a := s.Actions()
	addPattern(s, "a")
	a.Store("one")

	a.steps[0].state.Sources = append(a.steps[0].state.Sources, SourceState{
		ID: NewID(), Name: "bogus", Producer: ProducerState{Kind: "hologram"},
	})
	addPattern(s, "b")
	a.Store("two")

	err := a.Undo()
	if !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, valid records are still restored", s.Len())
	}
}

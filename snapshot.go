package vmix

import (
	"fmt"
	"slices"
	"time"
)

type snapshotEntry struct {
	label string
	time  time.Time
	state SessionState
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID    uint64
	Label string
	Time  time.Time
}

type interpolation struct {
	id   uint64
	from SessionState
}

// Snapshot records the session under a new id and returns it. It returns
// 0 while locked or with an empty label.
func (a *ActionManager) Snapshot(label string) uint64 {
	if a.locked || label == "" {
		return 0
	}
	st := a.session.State()
	id := NewID()
	a.addSnapshot(id, label, time.Now(), st.Clone())
	historyActions.WithLabelValues("snapshot").Inc()
	return id
}

func (a *ActionManager) addSnapshot(id uint64, label string, t time.Time, st SessionState) {
	if _, ok := a.snapshots[id]; !ok {
		a.snapshotOrder = append(a.snapshotOrder, id)
	}
	a.snapshots[id] = &snapshotEntry{label: label, time: t, state: st}
}

// RestoreSnapshot merges snapshot id into the session. The timeline is not
// changed.
func (a *ActionManager) RestoreSnapshot(id uint64) error {
	e, ok := a.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	historyActions.WithLabelValues("restore").Inc()
	return a.restore(&e.state, a.view, false)
}

// RemoveSnapshot deletes snapshot id.
func (a *ActionManager) RemoveSnapshot(id uint64) bool {
	if _, ok := a.snapshots[id]; !ok {
		return false
	}
	delete(a.snapshots, id)
	a.snapshotOrder = slices.DeleteFunc(a.snapshotOrder, func(v uint64) bool { return v == id })
	if a.interp != nil && a.interp.id == id {
		a.interp = nil
	}
	return true
}

// SetSnapshotLabel renames snapshot id. Empty labels are ignored.
func (a *ActionManager) SetSnapshotLabel(id uint64, label string) bool {
	e, ok := a.snapshots[id]
	if !ok || label == "" {
		return false
	}
	e.label = label
	return true
}

// SnapshotLabel returns the label of snapshot id, or "".
func (a *ActionManager) SnapshotLabel(id uint64) string {
	if e, ok := a.snapshots[id]; ok {
		return e.label
	}
	return ""
}

// Snapshots lists the snapshots in creation order.
func (a *ActionManager) Snapshots() []SnapshotInfo {
	out := make([]SnapshotInfo, 0, len(a.snapshotOrder))
	for _, id := range a.snapshotOrder {
		e := a.snapshots[id]
		out = append(out, SnapshotInfo{ID: id, Label: e.label, Time: e.time})
	}
	return out
}

// snapshotState returns a copy of the state of snapshot id.
func (a *ActionManager) snapshotState(id uint64) (SessionState, bool) {
	e, ok := a.snapshots[id]
	if !ok {
		return SessionState{}, false
	}
	return e.state.Clone(), true
}

// Interpolate previews snapshot id at t in [0, 1]: every source present
// both live and in the snapshot gets its transforms and image processing
// blended between the live state at the first call and the snapshot. The
// result is not stored; call RestoreSnapshot or Store to commit.
func (a *ActionManager) Interpolate(t float64, id uint64) error {
	e, ok := a.snapshots[id]
	if !ok {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if a.interp == nil || a.interp.id != id {
		a.interp = &interpolation{id: id, from: a.session.State()}
	}
	t = clamp01(t)
	for _, src := range a.session.sources {
		from, ok := a.interp.from.Source(src.id)
		if !ok {
			continue
		}
		to, ok := e.state.Source(src.id)
		if !ok {
			continue
		}
		from.Mixing.Lerp(to.Mixing, t).applyTo(src.Node(ViewMixing))
		from.Geometry.Lerp(to.Geometry, t).applyTo(src.Node(ViewGeometry))
		from.Layer.Lerp(to.Layer, t).applyTo(src.Node(ViewLayer))
		from.Texture.Lerp(to.Texture, t).applyTo(src.Node(ViewTexture))
		if from.ProcessingEnabled || to.ProcessingEnabled {
			src.SetProcessingEnabled(true)
			src.SetProcessing(from.Processing.Lerp(to.Processing, t))
		}
		src.touch()
	}
	return nil
}

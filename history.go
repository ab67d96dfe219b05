package vmix

import (
	"time"
)

// historyStep is one entry of the undo timeline.
type historyStep struct {
	label string
	view  ViewMode
	time  time.Time
	state SessionState
}

// ActionManager records the undo timeline and the named snapshots of a
// session. Restoring merges a recorded state into the live session so
// that sources present on both sides keep their identity.
type ActionManager struct {
	session *Session

	// locked is set while a restore runs; Store and Snapshot are ignored
	// meanwhile.
	locked bool

	current int
	steps   []historyStep // steps[i] is step i+1

	snapshots     map[uint64]*snapshotEntry
	snapshotOrder []uint64
	interp        *interpolation

	view        ViewMode
	restoreView bool
	onView      func(ViewMode)
}

func newActionManager(s *Session) *ActionManager {
	return &ActionManager{
		session:     s,
		snapshots:   make(map[uint64]*snapshotEntry),
		view:        ViewMixing,
		restoreView: true,
	}
}

// Locked reports whether a restore is running.
func (a *ActionManager) Locked() bool { return a.locked }

// Current returns the current step, 0 before the first Store.
func (a *ActionManager) Current() int { return a.current }

// Max returns the last step of the timeline.
func (a *ActionManager) Max() int { return len(a.steps) }

// Label returns the label of step, or "" when out of range.
func (a *ActionManager) Label(step int) string {
	if step < 1 || step > len(a.steps) {
		return ""
	}
	return a.steps[step-1].label
}

// StepTime returns when step was stored.
func (a *ActionManager) StepTime(step int) time.Time {
	if step < 1 || step > len(a.steps) {
		return time.Time{}
	}
	return a.steps[step-1].time
}

// SetView records the view active when the next step is stored.
func (a *ActionManager) SetView(m ViewMode) { a.view = m }

// SetRestoreView chooses whether restoring a step switches to the view it
// was stored in.
func (a *ActionManager) SetRestoreView(on bool) { a.restoreView = on }

// OnViewChange registers fn, called with the recorded view when a restore
// switches views.
func (a *ActionManager) OnViewChange(fn func(ViewMode)) { a.onView = fn }

// Store records the whole session as a new step after the current one.
// Steps after the current one are discarded. Ignored while locked or with
// an empty label.
func (a *ActionManager) Store(label string) {
	if a.locked || label == "" {
		return
	}
	st := a.session.State()
	a.steps = append(a.steps[:a.current], historyStep{
		label: label,
		view:  a.view,
		time:  time.Now(),
		state: st.Clone(),
	})
	a.current = len(a.steps)
	a.interp = nil
	historyActions.WithLabelValues("store").Inc()
	Logger().Debug("history stored", "step", a.current, "label", label)
}

// Undo restores the previous step. No-op at the first step.
func (a *ActionManager) Undo() error {
	if a.current <= 1 {
		return nil
	}
	historyActions.WithLabelValues("undo").Inc()
	return a.restoreStep(a.current - 1)
}

// Redo restores the next step. No-op at the last step.
func (a *ActionManager) Redo() error {
	if a.current >= len(a.steps) {
		return nil
	}
	historyActions.WithLabelValues("redo").Inc()
	return a.restoreStep(a.current + 1)
}

// StepTo restores step, clamped to the timeline.
func (a *ActionManager) StepTo(step int) error {
	if len(a.steps) == 0 {
		return nil
	}
	step = max(1, min(step, len(a.steps)))
	if step == a.current {
		return nil
	}
	historyActions.WithLabelValues("step").Inc()
	return a.restoreStep(step)
}

// Clear drops the timeline. Snapshots are kept.
func (a *ActionManager) Clear() {
	a.steps = nil
	a.current = 0
	a.interp = nil
}

func (a *ActionManager) restoreStep(step int) error {
	h := a.steps[step-1]
	a.current = step
	return a.restore(&h.state, h.view, true)
}

// restore merges st into the session under the lock. withView switches to
// view when the preference allows it.
func (a *ActionManager) restore(st *SessionState, view ViewMode, withView bool) error {
	a.locked = true
	defer func() { a.locked = false }()

	a.interp = nil
	if withView && a.restoreView && a.onView != nil {
		a.view = view
		a.onView(view)
	}
	work := st.Clone()
	return a.session.applyState(&work)
}

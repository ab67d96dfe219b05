package vmix

import (
	"encoding/json"
	"fmt"
	"time"
)

// scriptStep is a single action of a Script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	Source string  `json:"source,omitempty"`
	Alpha  float64 `json:"alpha,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Frames int     `json:"frames,omitempty"`
	Key    string  `json:"key,omitempty"`
	Dir    string  `json:"dir,omitempty"`
}

// scriptFile is the top-level JSON structure of a script.
type scriptFile struct {
	Steps []scriptStep `json:"steps"`
}

// Script replays mixer actions from JSON, one step per frame. Actions:
// store, undo, redo, snapshot, restore (by snapshot label), alpha, move
// (Geometry translation), fade, wait, save and screenshot.
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	snapshots map[string]uint64
}

// LoadScript parses a JSON script.
func LoadScript(data []byte) (*Script, error) {
	var f scriptFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	return &Script{steps: f.Steps, snapshots: make(map[string]uint64)}, nil
}

// Done reports whether every step has run.
func (r *Script) Done() bool { return r.done }

// step runs the next action. Called from Mixer.Update.
func (r *Script) step(m *Mixer) {
	if r.done {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	s := m.Session()
	a := s.Actions()
	target := m.Current()
	if st.Source != "" {
		target = s.FindByName(st.Source)
	}

	switch st.Action {
	case "store":
		a.Store(st.Label)
	case "undo":
		_ = m.Undo()
	case "redo":
		_ = m.Redo()
	case "snapshot":
		if id := a.Snapshot(st.Label); id != 0 {
			r.snapshots[st.Label] = id
		}
	case "restore":
		if id, ok := r.snapshots[st.Label]; ok {
			if err := a.RestoreSnapshot(id); err != nil {
				Logger().Warn("script restore failed", "label", st.Label, "error", err)
			}
		}
	case "alpha":
		if target != nil {
			target.SetAlpha(st.Alpha)
		}
	case "move":
		if target != nil {
			n := target.Node(ViewGeometry)
			n.SetTranslation(Vec3{st.X, st.Y, n.Translation.Z})
			target.Touch()
		}
	case "fade":
		m.Fade(st.Alpha, time.Duration(st.Frames)*time.Second/60)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	case "save":
		if err := m.Save(st.Key); err != nil {
			Logger().Warn("script save failed", "key", st.Key, "error", err)
		}
	case "screenshot":
		dir := st.Dir
		if dir == "" {
			dir = "screenshots"
		}
		if err := m.Screenshot(dir, st.Label); err != nil {
			Logger().Warn("script screenshot failed", "label", st.Label, "error", err)
		}
	default:
		Logger().Warn("unknown script action", "action", st.Action)
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 {
		r.done = true
	}
}

package vmix

import (
	"image"
	"path/filepath"
	"strconv"
	"testing"
)

func runScript(m *Mixer, sc *Script, maxFrames int) int {
	m.SetScript(sc)
	for i := 0; i < maxFrames; i++ {
		if sc.Done() {
			return i
		}
		m.Update(1.0 / 60)
	}
	return maxFrames
}

func TestLoadScriptErrors(t *testing.T) {
	if _, err := LoadScript([]byte("nope")); err == nil {
		t.Error("malformed JSON")
	}
	if _, err := LoadScript([]byte(`{"steps":[]}`)); err == nil {
		t.Error("empty script")
	}
}

func TestScriptMoveAndRestore(t *testing.T) {
	m := newTestMixer(nil, nil)
	defer m.Close()
	a := m.Add(newPatternSource("a"))

	sc, err := LoadScript([]byte(`{"steps":[
		{"action":"move","source":"a","x":0.5,"y":0.25},
		{"action":"snapshot","label":"cue"},
		{"action":"move","source":"a","x":-1,"y":0},
		{"action":"store","label":"moved twice"},
		{"action":"restore","label":"cue"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	frames := runScript(m, sc, 20)
	if !sc.Done() {
		t.Fatal("script did not finish")
	}
	if frames != 5 {
		t.Errorf("frames = %d, one step per frame", frames)
	}
	p := a.Node(ViewGeometry).Translation
	assertNear(t, "x", p.X, 0.5)
	assertNear(t, "y", p.Y, 0.25)
	if m.Session().Actions().Label(m.Session().Actions().Current()) != "moved twice" {
		t.Error("restoring a snapshot leaves the timeline alone")
	}
}

func TestScriptUndoRedo(t *testing.T) {
	m := newTestMixer(nil, nil)
	defer m.Close()
	a := m.Add(newPatternSource("a"))

	sc, err := LoadScript([]byte(`{"steps":[
		{"action":"move","x":0.3},
		{"action":"store","label":"move"},
		{"action":"undo"},
		{"action":"redo"},
		{"action":"undo"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	runScript(m, sc, 20)
	assertNear(t, "x after undo", a.Node(ViewGeometry).Translation.X, 0)
	if m.Session().Actions().Current() != 1 {
		t.Errorf("current = %d", m.Session().Actions().Current())
	}
}

func TestScriptWaitAndFade(t *testing.T) {
	m := newTestMixer(nil, nil)
	defer m.Close()

	sc, err := LoadScript([]byte(`{"steps":[
		{"action":"fade","alpha":1,"frames":0},
		{"action":"wait","frames":4},
		{"action":"bogus"}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	frames := runScript(m, sc, 20)
	if frames != 6 {
		t.Errorf("frames = %d", frames)
	}
	assertNear(t, "fading", m.Session().Fading(), 1)
}

func TestScriptAlphaWithoutTarget(t *testing.T) {
	m := newTestMixer(nil, nil)
	defer m.Close()
	sc, err := LoadScript([]byte(`{"steps":[{"action":"alpha","source":"ghost","alpha":0.5}]}`))
	if err != nil {
		t.Fatal(err)
	}
	runScript(m, sc, 5)
	if !sc.Done() {
		t.Error("missing targets are skipped")
	}
}

func TestScriptScreenshot(t *testing.T) {
	m := newTestMixer(nil, nil)
	defer m.Close()
	m.Session().capture = func(fb *FrameBuffer) (image.Image, error) {
		w, h := fb.Resolution()
		return image.NewRGBA(image.Rect(0, 0, w, h)), nil
	}
	dir := t.TempDir()
	sc, err := LoadScript([]byte(`{"steps":[{"action":"screenshot","label":"end","dir":` + strconv.Quote(dir) + `}]}`))
	if err != nil {
		t.Fatal(err)
	}
	runScript(m, sc, 5)
	settle(t, m)
	if files, _ := filepath.Glob(filepath.Join(dir, "*_end.png")); len(files) != 1 {
		t.Errorf("files = %v", files)
	}
}

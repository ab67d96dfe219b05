package vmix

import "testing"

func TestSourceCoreDefaults(t *testing.T) {
	c := newSourceCore()
	for m := ViewRendering; m < numViews; m++ {
		n := c.Node(m)
		if n == nil {
			t.Fatalf("node %v is nil", m)
		}
		assertVec3(t, m.String()+" scale", n.Scale, Vec3{1, 1, 1})
	}
	if c.Blending().Color != ColorWhite || c.BlendMode() != BlendNormal {
		t.Errorf("blending = %+v", c.Blending())
	}
	if c.ProcessingEnabled() || !c.Processing().IsNeutral() {
		t.Error("processing should start disabled and neutral")
	}
}

func TestSourceCoreNodesAreIndependent(t *testing.T) {
	c := newSourceCore()
	c.Node(ViewGeometry).SetTranslation(Vec3{1, 2, 0})
	assertVec3(t, "mixing", c.Node(ViewMixing).Translation, Vec3{})
	assertVec3(t, "geometry", c.Node(ViewGeometry).Translation, Vec3{1, 2, 0})
}

func TestSourceCoreNodeInvalidModePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	c := newSourceCore()
	c.Node(numViews)
}

func TestSourceCoreStoreStatusIsCopy(t *testing.T) {
	c := newSourceCore()
	c.Node(ViewMixing).SetTranslation(Vec3{0.5, 0.5, 0})
	c.StoreStatus(ViewMixing)
	c.Node(ViewMixing).SetTranslation(Vec3{0.9, 0, 0})
	assertVec3(t, "stored", c.StoredStatus().Translation, Vec3{0.5, 0.5, 0})
}

func TestSourceCoreProcessingSwapPreservesInactive(t *testing.T) {
	c := newSourceCore()
	p := NeutralProcessing()
	p.Brightness = 0.4

	c.SetProcessing(p)
	if !c.Processing().IsNeutral() {
		t.Fatal("configured set must stay inactive while disabled")
	}
	if c.ConfiguredProcessing() != p {
		t.Fatal("configured set lost")
	}

	c.SetProcessingEnabled(true)
	if c.Processing() != p {
		t.Errorf("enabled processing = %+v, want %+v", c.Processing(), p)
	}

	c.SetProcessingEnabled(false)
	if !c.Processing().IsNeutral() {
		t.Error("disabled processing should be neutral")
	}
	c.SetProcessingEnabled(false)
	c.SetProcessingEnabled(true)
	if c.Processing() != p {
		t.Error("re-enable lost the configured set")
	}
}

func TestSourceCoreCopyFromIsDeep(t *testing.T) {
	a := newSourceCore()
	a.Node(ViewGeometry).SetScale(Vec3{2, 2, 1})
	a.blending.Mask.Strokes = []PaintStroke{{Radius: 0.1}}
	a.SetProcessingEnabled(true)

	b := newSourceCore()
	b.copyCoreFrom(&a)
	assertVec3(t, "scale", b.Node(ViewGeometry).Scale, Vec3{2, 2, 1})
	if !b.ProcessingEnabled() {
		t.Error("processing flag not copied")
	}
	b.blending.Mask.Strokes[0].Radius = 0.5
	if a.blending.Mask.Strokes[0].Radius != 0.1 {
		t.Error("strokes share backing storage")
	}
	b.Node(ViewGeometry).SetScale(Vec3{3, 3, 1})
	assertVec3(t, "source untouched", a.Node(ViewGeometry).Scale, Vec3{2, 2, 1})
}

package vmix

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

func TestCallbackZeroDurationAppliesOnFirstUpdate(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.AddCallback(SetDepthCallback(4, 0))
	src.AddCallback(SetAlphaCallback(0.5, 0))
	src.Update(0)

	if src.PendingCallbacks() != 0 {
		t.Errorf("pending = %d, want 0", src.PendingCallbacks())
	}
	assertNear(t, "depth", src.Depth(), 4)
	assertNearTol(t, "alpha", src.Alpha(), 0.5, 2*alphaEpsilon)
}

func TestCallbackTweensOverDuration(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	start := src.Depth()
	src.AddCallback(SetDepthCallback(start+2, 1))
	src.Update(0.5)
	if src.PendingCallbacks() != 1 {
		t.Fatalf("pending = %d, want 1 halfway", src.PendingCallbacks())
	}
	assertNearTol(t, "depth halfway", src.Depth(), start+1, 1e-5)

	src.Update(0.5)
	if src.PendingCallbacks() != 0 {
		t.Errorf("pending = %d, want 0", src.PendingCallbacks())
	}
	assertNear(t, "depth", src.Depth(), start+2)
}

func TestCallbackEase(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	start := src.Depth()
	src.AddCallback(SetDepthCallback(start+2, 1).WithEase(ease.InQuad))
	src.Update(0.5)
	assertNearTol(t, "eased depth", src.Depth(), start+0.5, 1e-5)
}

func TestCallbacksRunInOrder(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.AddCallback(SetDepthCallback(3, 0))
	src.AddCallback(SetDepthCallback(7, 0))
	src.Update(0)
	assertNear(t, "last callback wins", src.Depth(), 7)
}

func TestCallbackLockedSourceSkipsTransforms(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()
	src.SetLocked(true)

	depth := src.Depth()
	src.AddCallback(SetDepthCallback(depth+3, 1))
	src.AddCallback(GrabCallback(Vec2{1, 0}, 0))
	src.AddCallback(PlayCallback(false))
	src.Update(0.1)

	if src.PendingCallbacks() != 0 {
		t.Errorf("pending = %d, transforms on a locked source finish at once", src.PendingCallbacks())
	}
	assertNear(t, "depth", src.Depth(), depth)
	assertNear(t, "translation", src.Node(ViewGeometry).Translation.X, 0)
	if src.Playing() {
		t.Error("play callbacks still apply to locked sources")
	}
}

func TestCallbackLockUnlock(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.AddCallback(LockCallback(true))
	src.Update(0)
	if !src.Locked() {
		t.Fatal("lock callback should lock")
	}
	src.AddCallback(LockCallback(false))
	src.AddCallback(GrabCallback(Vec2{0.5, 0}, 0))
	src.Update(0)
	if src.Locked() {
		t.Error("unlock callback should unlock")
	}
	assertNear(t, "grab after unlock", src.Node(ViewGeometry).Translation.X, 0.5)
}

func TestCallbackGeometry(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.AddCallback(GrabCallback(Vec2{0.2, -0.1}, 0))
	src.AddCallback(ResizeCallback(Vec2{1, 0.5}, 0))
	src.AddCallback(TurnCallback(math.Pi/2, 0))
	src.Update(0)

	n := src.Node(ViewGeometry)
	assertVec3(t, "translation", n.Translation, Vec3{0.2, -0.1, 0})
	assertNear(t, "scale x", n.Scale.X, 2)
	assertNear(t, "scale y", n.Scale.Y, 1.5)
	assertNear(t, "rotation", n.Rotation.Z, math.Pi/2)

	target := NewTransformNode()
	target.SetTranslation(Vec3{-0.5, 0.5, 0})
	target.SetCrop(Vec3{0.5, 0.5, 1})
	src.AddCallback(SetGeometryCallback(target, 1))
	src.Update(0.5)
	assertNearTol(t, "halfway x", n.Translation.X, -0.15, 1e-5)
	src.Update(0.5)
	assertVec3(t, "target translation", n.Translation, target.Translation)
	assertVec3(t, "target scale", n.Scale, target.Scale)
	assertVec3(t, "target crop", n.Crop, target.Crop)
}

func TestCallbackLoomMovesOutward(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()
	src.Node(ViewMixing).SetTranslation(Vec3{0.3, 0, 0})

	src.AddCallback(LoomCallback(0.2, 1))
	src.Update(1)
	assertNearTol(t, "loom x", src.Node(ViewMixing).Translation.X, 0.5, 1e-6)
	assertNear(t, "loom y", src.Node(ViewMixing).Translation.Y, 0)

	src.AddCallback(LoomCallback(-0.4, 1))
	src.Update(1)
	assertNearTol(t, "loom back", src.Node(ViewMixing).Translation.X, 0.1, 1e-6)
}

func TestCallbackReplay(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.Update(1)
	src.AddCallback(ReplayCallback())
	src.Update(0)
	if src.Position() != 0 {
		t.Errorf("position = %v, want 0 after replay", src.Position())
	}
}

func TestClearCallbacks(t *testing.T) {
	src := newPatternSource("a")
	defer src.Close()

	src.AddCallback(SetDepthCallback(1, 10))
	src.AddCallback(nil)
	if src.PendingCallbacks() != 1 {
		t.Fatalf("pending = %d, nil callbacks are ignored", src.PendingCallbacks())
	}
	src.ClearCallbacks()
	if src.PendingCallbacks() != 0 {
		t.Error("ClearCallbacks should drop everything")
	}
}

func TestCallbackKindString(t *testing.T) {
	if CallbackSetGeometry.String() != "set-geometry" || CallbackKind(99).String() != "unknown" {
		t.Error("unexpected callback names")
	}
	if !CallbackTurn.transforms() || CallbackPlay.transforms() {
		t.Error("transforms classification")
	}
}

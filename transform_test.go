package vmix

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertNearTol(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

func assertVec3(t *testing.T, name string, got, want Vec3) {
	t.Helper()
	if math.Abs(got.X-want.X) > epsilon || math.Abs(got.Y-want.Y) > epsilon || math.Abs(got.Z-want.Z) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertMatrix(t *testing.T, name string, got, want Mat4) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v vs %v)", name, i, got[i], want[i], got, want)
		}
	}
}

// --- Mat4 ---

func TestMat4MulIdentity(t *testing.T) {
	m := Translate4(Vec3{3, 4, 5}).Mul(Scale4(Vec3{2, 2, 2}))
	assertMatrix(t, "I*m", Identity4().Mul(m), m)
	assertMatrix(t, "m*I", m.Mul(Identity4()), m)
}

func TestMat4TransformPoint(t *testing.T) {
	m := Translate4(Vec3{10, 20, 0}).Mul(Scale4(Vec3{2, 3, 1}))
	got := m.TransformPoint(Vec3{1, 1, 0})
	assertVec3(t, "point", got, Vec3{12, 23, 0})
}

func TestMat4RotateZ90(t *testing.T) {
	got := RotateZ4(math.Pi / 2).TransformPoint(Vec3{1, 0, 0})
	assertVec3(t, "rotated", got, Vec3{0, 1, 0})
}

func TestMat4RotateXY(t *testing.T) {
	assertVec3(t, "rotX", RotateX4(math.Pi/2).TransformPoint(Vec3{0, 1, 0}), Vec3{0, 0, 1})
	assertVec3(t, "rotY", RotateY4(math.Pi/2).TransformPoint(Vec3{0, 0, 1}), Vec3{1, 0, 0})
}

func TestMat4Inverse(t *testing.T) {
	m := Translate4(Vec3{5, -3, 2}).
		Mul(RotateZ4(0.7)).
		Mul(Scale4(Vec3{2, 0.5, 1}))
	inv := m.Inverse()
	assertMatrix(t, "m*inv", m.Mul(inv), Identity4())

	p := Vec3{1.5, -2, 0.25}
	back := inv.TransformPoint(m.TransformPoint(p))
	assertVec3(t, "round trip", back, p)
}

func TestMat4InverseSingular(t *testing.T) {
	m := Scale4(Vec3{0, 1, 1})
	assertMatrix(t, "singular", m.Inverse(), Identity4())
}

// --- TransformNode ---

func TestTransformNodeDefaults(t *testing.T) {
	n := NewTransformNode()
	assertVec3(t, "scale", n.Scale, Vec3{1, 1, 1})
	assertVec3(t, "crop", n.Crop, Vec3{1, 1, 0})
	assertMatrix(t, "transform", n.Transform(), Identity4())
	if n.Dirty() {
		t.Error("new node should not be dirty")
	}
}

func TestTransformNodeStaleUntilUpdate(t *testing.T) {
	n := NewTransformNode()
	n.SetTranslation(Vec3{4, 5, 0})
	if !n.Dirty() {
		t.Fatal("expected dirty after SetTranslation")
	}
	assertMatrix(t, "stale", n.Transform(), Identity4())

	n.Update()
	if n.Dirty() {
		t.Error("expected clean after Update")
	}
	assertMatrix(t, "updated", n.Transform(), Translate4(Vec3{4, 5, 0}))
}

func TestTransformNodeComposeOrder(t *testing.T) {
	n := NewTransformNode()
	n.SetTranslation(Vec3{10, 0, 0})
	n.SetRotation(Vec3{0, 0, math.Pi / 2})
	n.SetScale(Vec3{2, 2, 1})
	m := n.Compose()

	// Scale first, then rotate, then translate.
	got := m.TransformPoint(Vec3{1, 0, 0})
	assertVec3(t, "composed", got, Vec3{10, 2, 0})
}

func TestTransformNodeCopyFrom(t *testing.T) {
	a := NewTransformNode()
	a.SetTranslation(Vec3{1, 2, 3})
	a.SetCrop(Vec3{0.5, 0.25, 0})
	a.Update()

	b := NewTransformNode()
	b.CopyFrom(a)
	if !b.Equal(a) {
		t.Fatalf("copy differs: %+v vs %+v", b, a)
	}
	assertMatrix(t, "copied transform", b.Transform(), a.Transform())

	// Deep copy: mutating the source leaves the copy alone.
	a.SetTranslation(Vec3{9, 9, 9})
	assertVec3(t, "copy translation", b.Translation, Vec3{1, 2, 3})
}

func TestTransformNodeReset(t *testing.T) {
	n := NewTransformNode()
	n.SetScale(Vec3{3, 3, 3})
	n.SetRotation(Vec3{0, 0, 1})
	n.Reset()
	if !n.Equal(NewTransformNode()) {
		t.Errorf("reset node = %+v", n)
	}
}

package vmix

import "testing"

func TestRenderShapeMaskEllipse(t *testing.T) {
	img := renderShapeMask(ShapeEllipse, Vec2{1, 1}, 0, 64, 32)
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 32 {
		t.Fatalf("bounds = %v", b)
	}
	if _, _, _, a := img.At(32, 16).RGBA(); a>>8 != 255 {
		t.Errorf("center alpha = %d, want 255", a>>8)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("corner alpha = %d, want 0", a>>8)
	}
}

func TestRenderShapeMaskBands(t *testing.T) {
	h := renderShapeMask(ShapeHorizontal, Vec2{1, 0.5}, 0, 40, 40)
	if _, _, _, a := h.At(1, 20).RGBA(); a>>8 != 255 {
		t.Errorf("horizontal band left edge alpha = %d", a>>8)
	}
	if _, _, _, a := h.At(20, 2).RGBA(); a != 0 {
		t.Errorf("horizontal band top alpha = %d", a>>8)
	}

	v := renderShapeMask(ShapeVertical, Vec2{0.5, 1}, 0, 40, 40)
	if _, _, _, a := v.At(20, 1).RGBA(); a>>8 != 255 {
		t.Errorf("vertical band top alpha = %d", a>>8)
	}
	if _, _, _, a := v.At(2, 20).RGBA(); a != 0 {
		t.Errorf("vertical band left alpha = %d", a>>8)
	}
}

func TestRenderShapeMaskSmoothSoftensEdge(t *testing.T) {
	hard := renderShapeMask(ShapeRectangle, Vec2{0.5, 0.5}, 0, 64, 64)
	soft := renderShapeMask(ShapeRectangle, Vec2{0.5, 0.5}, 0.1, 64, 64)

	// Just outside the rectangle edge.
	if _, _, _, a := hard.At(14, 32).RGBA(); a != 0 {
		t.Errorf("hard edge outside alpha = %d", a>>8)
	}
	if _, _, _, a := soft.At(14, 32).RGBA(); a == 0 {
		t.Error("smoothed edge should bleed outside the rectangle")
	}
}

func TestMaskBufferPaintPingPong(t *testing.T) {
	m := newMaskBuffer(16, 16)
	defer m.dispose()

	mask := DefaultMask()
	mask.Mode = MaskPaint
	if err := m.update(&mask); err != nil {
		t.Fatal(err)
	}
	if m.front != 0 || !m.ready {
		t.Fatalf("no strokes: front=%d ready=%v", m.front, m.ready)
	}

	mask.Strokes = append(mask.Strokes, PaintStroke{Pos: Vec2{0.5, 0.5}, Radius: 0.2, Erase: true})
	if err := m.update(&mask); err != nil {
		t.Fatal(err)
	}
	if m.front != 1 || m.applied != 1 {
		t.Errorf("after one stroke: front=%d applied=%d", m.front, m.applied)
	}

	// No new strokes keeps the same buffer.
	if err := m.update(&mask); err != nil {
		t.Fatal(err)
	}
	if m.front != 1 {
		t.Errorf("idle frame flipped buffers")
	}

	// Fewer strokes than applied restarts the mask.
	mask.Strokes = nil
	if err := m.update(&mask); err != nil {
		t.Fatal(err)
	}
	if m.applied != 0 {
		t.Errorf("applied = %d, want 0", m.applied)
	}
}

func TestMaskBufferImageDecodeError(t *testing.T) {
	m := newMaskBuffer(8, 8)
	defer m.dispose()

	mask := Mask{Mode: MaskImage, Image: []byte("not an image")}
	if err := m.update(&mask); err == nil {
		t.Error("expected decode error")
	}
	// Rendered once per invalidation.
	if err := m.update(&mask); err != nil {
		t.Errorf("second update should be a no-op, got %v", err)
	}
}

func TestMaskModeString(t *testing.T) {
	if MaskPaint.String() != "paint" || MaskMode(99).String() != "unknown" {
		t.Error("unexpected mask mode names")
	}
}

package vmix

import (
	"math"
	"testing"
)

func assertColor(t *testing.T, name string, got, want Color) {
	t.Helper()
	const tol = 1e-6
	if math.Abs(got.R-want.R) > tol || math.Abs(got.G-want.G) > tol ||
		math.Abs(got.B-want.B) > tol || math.Abs(got.A-want.A) > tol {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

func TestNeutralProcessingIsIdentity(t *testing.T) {
	p := NeutralProcessing()
	if !p.IsNeutral() {
		t.Fatal("NeutralProcessing should be neutral")
	}
	if p.matrix() != identityColorMatrix {
		t.Errorf("neutral matrix = %v", p.matrix())
	}
	var zero ImageProcessing
	if zero.IsNeutral() {
		t.Error("zero value has zero gamma and should not be neutral")
	}
}

func TestColorMatrixBrightness(t *testing.T) {
	p := NeutralProcessing()
	p.Brightness = 0.2
	got := p.matrix().apply(Color{0.1, 0.5, 0.7, 1})
	assertColor(t, "brightness", got, Color{0.3, 0.7, 0.9, 1})
}

func TestColorMatrixInvert(t *testing.T) {
	p := NeutralProcessing()
	p.Invert = true
	got := p.matrix().apply(Color{0.25, 0.5, 1, 0.5})
	assertColor(t, "invert", got, Color{0.75, 0.5, 0, 0.5})
}

func TestColorMatrixGrayscale(t *testing.T) {
	p := NeutralProcessing()
	p.Saturation = -1
	got := p.matrix().apply(Color{1, 0, 0, 1})
	assertColor(t, "gray", got, Color{lumaR, lumaR, lumaR, 1})
}

func TestColorMatrixContrastKeepsMidGray(t *testing.T) {
	p := NeutralProcessing()
	p.Contrast = 0.8
	got := p.matrix().apply(Color{0.5, 0.5, 0.5, 1})
	assertColor(t, "mid gray", got, Color{0.5, 0.5, 0.5, 1})
}

func TestColorMatrixHueFullTurnIsIdentity(t *testing.T) {
	m := hueMatrix(1)
	for i := range m {
		assertNearTol(t, "hue", m[i], identityColorMatrix[i], 1e-9)
	}
}

func TestColorMatrixOrder(t *testing.T) {
	// Brightness applies before invert.
	p := NeutralProcessing()
	p.Brightness = 0.1
	p.Invert = true
	got := p.matrix().apply(Color{0.2, 0.2, 0.2, 1})
	assertColor(t, "brightness then invert", got, Color{0.7, 0.7, 0.7, 1})
}

func TestImageProcessingLerp(t *testing.T) {
	a := NeutralProcessing()
	b := NeutralProcessing()
	b.Brightness = 1
	b.Posterize = 4
	b.Invert = true

	mid := a.Lerp(b, 0.25)
	assertNear(t, "brightness", mid.Brightness, 0.25)
	if mid.Invert || mid.Posterize != 0 {
		t.Error("discrete parameters should switch at the halfway point")
	}
	late := a.Lerp(b, 0.75)
	if !late.Invert || late.Posterize != 4 {
		t.Error("discrete parameters should follow the target past halfway")
	}
}

func TestProcessorNeutralDrawSkipsShader(t *testing.T) {
	src := NewFrameBuffer(8, 8)
	defer src.Dispose()
	dst := NewFrameBuffer(16, 16)
	defer dst.Dispose()

	p := newProcessor()
	defer p.dispose()
	p.draw(src.Image(), dst, NeutralProcessing())
	if processingShader != nil {
		t.Error("neutral draw should not compile the shader")
	}
}

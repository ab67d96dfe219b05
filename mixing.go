package vmix

import "math"

// Depth, scale and alpha bounds of the compositing spaces.
const (
	MinDepth = 0.0
	MaxDepth = 12.0

	// Workspace thresholds: depth below BackgroundDepth is background,
	// depth at or above ForegroundDepth is foreground.
	BackgroundDepth = 2.0
	ForegroundDepth = 10.0

	MinScale = 0.01
	MaxScale = 10.0

	// alphaEpsilon bounds the alpha inversion search.
	alphaEpsilon = 5e-4
	// alphaMaxIterations caps the inversion search. Reaching it counts as
	// converged.
	alphaMaxIterations = 1000
)

// AlphaFromCoordinates maps a Mixing space position to an alpha value.
// The center is fully opaque and any position with D*sqrt(D) >= 1 is fully
// transparent, where D is the distance to the center.
func AlphaFromCoordinates(x, y float64) float64 {
	d := math.Sqrt(x*x + y*y)
	return 0.5 + 0.5*math.Cos(math.Pi*clamp01(d*math.Sqrt(d)))
}

// MixingPositionForAlpha returns a Mixing position whose alpha is within
// alphaEpsilon of a. The search walks along the direction of pos (or the
// diagonal when pos is at the center), halving the remaining alpha delta
// each step. A start outside the unit disc is first pulled onto its rim.
func MixingPositionForAlpha(pos Vec2, a float64) Vec2 {
	a = clamp01(a)
	step := Vec2{1, 1}.Normalize()
	if pos.Len() > alphaEpsilon {
		step = pos.Normalize()
	}
	delta := AlphaFromCoordinates(pos.X, pos.Y) - a
	// Alpha is zero everywhere outside the unit disc; start from its rim.
	if pos.Len() > 1 && math.Abs(delta) > alphaEpsilon {
		pos = step
		delta = AlphaFromCoordinates(pos.X, pos.Y) - a
	}
	for i := 0; math.Abs(delta) > alphaEpsilon && i < alphaMaxIterations; i++ {
		pos = pos.Add(step.Mul(delta / 2))
		delta = AlphaFromCoordinates(pos.X, pos.Y) - a
	}
	return pos
}

// WorkspaceForDepth classifies a depth.
func WorkspaceForDepth(depth float64) Workspace {
	switch {
	case depth < BackgroundDepth:
		return WorkspaceBackground
	case depth < ForegroundDepth:
		return WorkspaceStage
	default:
		return WorkspaceForeground
	}
}

// DepthForWorkspace returns a depth in the middle of a workspace band.
func DepthForWorkspace(w Workspace) float64 {
	switch w {
	case WorkspaceBackground:
		return (MinDepth + BackgroundDepth) / 2
	case WorkspaceForeground:
		return (ForegroundDepth + MaxDepth) / 2
	default:
		return (BackgroundDepth + ForegroundDepth) / 2
	}
}

// clampDepth keeps depth within [MinDepth, MaxDepth].
func clampDepth(d float64) float64 {
	return clamp(d, MinDepth, MaxDepth)
}

// clampScale keeps the magnitude of s within [MinScale, MaxScale] while
// preserving its sign. Zero becomes +MinScale.
func clampScale(s float64) float64 {
	if s < 0 {
		return -clamp(-s, MinScale, MaxScale)
	}
	return clamp(s, MinScale, MaxScale)
}

// layerPosition returns the Layer space translation for a depth. X and Y
// only drive the diagonal presentation of the layer view.
func layerPosition(depth, aspectRatio float64) Vec3 {
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	x := -depth
	return Vec3{x, x / aspectRatio, depth}
}

// Scene and UV coordinate conversions. Scene space spans [-1, 1] with Y up;
// UV space spans [0, 1] with V down.
var (
	sceneFromUV = Translate4(Vec3{-1, 1, 0}).Mul(Scale4(Vec3{2, -2, 1}))
	uvFromScene = Scale4(Vec3{0.5, -0.5, 1}).Mul(Translate4(Vec3{1, -1, 0}))
)

// textureMatrix returns the UV transform for a Texture space node. Moving
// the node right moves the visible window of the content left, so every
// component is applied inverted. Aspect correction is undone before the
// rotation and reapplied afterwards so rotations stay circular on
// non-square content.
func textureMatrix(n *TransformNode, aspectRatio float64) Mat4 {
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	sx, sy := n.Scale.X, n.Scale.Y
	if sx == 0 {
		sx = MinScale
	}
	if sy == 0 {
		sy = MinScale
	}
	m := uvFromScene
	m = m.Mul(Scale4(Vec3{1 / aspectRatio, 1, 1}))
	m = m.Mul(Translate4(Vec3{-n.Translation.X, -n.Translation.Y, 0}))
	m = m.Mul(RotateZ4(-n.Rotation.Z))
	m = m.Mul(Scale4(Vec3{1 / sx, 1 / sy, 1}))
	m = m.Mul(Scale4(Vec3{aspectRatio, 1, 1}))
	return m.Mul(sceneFromUV)
}

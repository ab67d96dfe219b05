package vmix

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at render submission time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default blending color (no tint, fully opaque).
var ColorWhite = Color{1, 1, 1, 1}

// toRGBA converts a Color to a premultiplied colorRGBA.
func (c Color) toRGBA() colorRGBA {
	return colorRGBA{
		R: uint8(clamp01(c.R*c.A) * 255),
		G: uint8(clamp01(c.G*c.A) * 255),
		B: uint8(clamp01(c.B*c.A) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

// colorRGBA implements the color.Color interface for image.Fill.
type colorRGBA struct {
	R, G, B, A uint8
}

func (c colorRGBA) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	a = uint32(c.A) * 0x101
	return
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Vec2 is a 2D vector used for positions, offsets, sizes, and directions.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2     { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2     { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mul(s float64) Vec2  { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec2) Vec3(z float64) Vec3 { return Vec3{v.X, v.Y, z} }

// Lerp linearly interpolates from v to o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{lerp(v.X, o.X, t), lerp(v.Y, o.Y, t)}
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{v.X / l, v.Y / l}
}

// Vec3 is a 3D vector. Most spaces only use X and Y; the Layer space stores
// depth in Z.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3    { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3    { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Mul(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) XY() Vec2           { return Vec2{v.X, v.Y} }

// Lerp linearly interpolates every component from v to o.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{lerp(v.X, o.X, t), lerp(v.Y, o.Y, t), lerp(v.Z, o.Z, t)}
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// BlendMode selects how a source is composited onto the session output.
// Each maps to a specific ebiten.Blend value.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over (standard alpha blending)
	BlendAdd                       // additive / lighter
	BlendMultiply                  // multiply (source * destination; only darkens)
	BlendScreen                    // screen (1 - (1-src)*(1-dst); only brightens)
	BlendSubtract                  // destination minus source
	BlendLighten                   // per-channel maximum
	BlendDarken                    // per-channel minimum
	BlendMask                      // clip destination to source alpha
	BlendNone                      // opaque copy (skip blending)
)

var blendModeNames = [...]string{"normal", "add", "multiply", "screen", "subtract", "lighten", "darken", "mask", "none"}

func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return "unknown"
}

// EbitenBlend returns the ebiten.Blend value corresponding to this BlendMode.
func (b BlendMode) EbitenBlend() ebiten.Blend {
	switch b {
	case BlendNormal:
		return ebiten.BlendSourceOver
	case BlendAdd:
		return ebiten.BlendLighter
	case BlendMultiply:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorDestinationColor,
			BlendFactorSourceAlpha:      ebiten.BlendFactorDestinationAlpha,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendScreen:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOneMinusSourceColor,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOneMinusSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendSubtract:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
			BlendOperationRGB:           ebiten.BlendOperationReverseSubtract,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendLighten:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
			BlendOperationRGB:           ebiten.BlendOperationMax,
			BlendOperationAlpha:         ebiten.BlendOperationMax,
		}
	case BlendDarken:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorOne,
			BlendFactorSourceAlpha:      ebiten.BlendFactorOne,
			BlendFactorDestinationRGB:   ebiten.BlendFactorOne,
			BlendFactorDestinationAlpha: ebiten.BlendFactorOne,
			BlendOperationRGB:           ebiten.BlendOperationMin,
			BlendOperationAlpha:         ebiten.BlendOperationMax,
		}
	case BlendMask:
		return ebiten.Blend{
			BlendFactorSourceRGB:        ebiten.BlendFactorZero,
			BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
			BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
			BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
			BlendOperationRGB:           ebiten.BlendOperationAdd,
			BlendOperationAlpha:         ebiten.BlendOperationAdd,
		}
	case BlendNone:
		return ebiten.BlendCopy
	default:
		return ebiten.BlendSourceOver
	}
}

// ViewMode names one compositing space. Every source carries one transform
// node per mode, and the mixer shows one view per mode.
type ViewMode uint8

const (
	ViewRendering  ViewMode = iota // final output placement, mirrored from Geometry
	ViewMixing                     // alpha via distance from center
	ViewGeometry                   // placement, rotation, scale and crop
	ViewLayer                      // depth ordering
	ViewTexture                    // UV transform of the source content
	ViewTransition                 // session transitions
	numViews
)

var viewModeNames = [numViews]string{"rendering", "mixing", "geometry", "layer", "texture", "transition"}

func (m ViewMode) String() string {
	if m < numViews {
		return viewModeNames[m]
	}
	return "unknown"
}

// ParseViewMode returns the ViewMode with the given name.
func ParseViewMode(name string) (ViewMode, bool) {
	for i, n := range viewModeNames {
		if n == name {
			return ViewMode(i), true
		}
	}
	return ViewMixing, false
}

// Workspace classifies a source by its depth.
type Workspace uint8

const (
	WorkspaceBackground Workspace = iota
	WorkspaceStage
	WorkspaceForeground
)

func (w Workspace) String() string {
	switch w {
	case WorkspaceBackground:
		return "background"
	case WorkspaceStage:
		return "stage"
	case WorkspaceForeground:
		return "foreground"
	}
	return "unknown"
}

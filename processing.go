package vmix

import (
	"image"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// ImageProcessing is the filter parameter set applied to a source frame
// before blending. The zero value is not neutral; use NeutralProcessing.
type ImageProcessing struct {
	// Brightness and Contrast are offsets in [-1, 1]; 0 is neutral.
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	// Saturation is an offset in [-1, 1]; -1 is grayscale.
	Saturation float64 `json:"saturation"`
	// Hue shifts the hue by a fraction of a turn in [0, 1].
	Hue float64 `json:"hue"`
	// Threshold converts to black and white at the given luminance. 0 disables.
	Threshold float64 `json:"threshold"`
	// Invert inverts the colors.
	Invert bool `json:"invert"`
	// Posterize reduces each channel to that many levels. 0 disables.
	Posterize int `json:"posterize"`
	// Gamma per channel; A scales all three.
	Gamma Color `json:"gamma"`
	// Levels maps [in-min, in-max] to [out-min, out-max] as X, Y, Z, W.
	Levels Vec4 `json:"levels"`
}

// Vec4 is a four component vector.
type Vec4 struct {
	X, Y, Z, W float64
}

// NeutralProcessing returns parameters that leave the image unchanged.
func NeutralProcessing() ImageProcessing {
	return ImageProcessing{
		Gamma:  Color{1, 1, 1, 1},
		Levels: Vec4{0, 1, 0, 1},
	}
}

// IsNeutral reports whether p leaves the image unchanged.
func (p ImageProcessing) IsNeutral() bool {
	return p == NeutralProcessing()
}

// Lerp interpolates the continuous parameters toward o. Discrete ones
// switch at the halfway point.
func (p ImageProcessing) Lerp(o ImageProcessing, t float64) ImageProcessing {
	r := ImageProcessing{
		Brightness: lerp(p.Brightness, o.Brightness, t),
		Contrast:   lerp(p.Contrast, o.Contrast, t),
		Saturation: lerp(p.Saturation, o.Saturation, t),
		Hue:        lerp(p.Hue, o.Hue, t),
		Threshold:  lerp(p.Threshold, o.Threshold, t),
		Gamma: Color{
			lerp(p.Gamma.R, o.Gamma.R, t), lerp(p.Gamma.G, o.Gamma.G, t),
			lerp(p.Gamma.B, o.Gamma.B, t), lerp(p.Gamma.A, o.Gamma.A, t),
		},
		Levels: Vec4{
			lerp(p.Levels.X, o.Levels.X, t), lerp(p.Levels.Y, o.Levels.Y, t),
			lerp(p.Levels.Z, o.Levels.Z, t), lerp(p.Levels.W, o.Levels.W, t),
		},
		Invert:    p.Invert,
		Posterize: p.Posterize,
	}
	if t >= 0.5 {
		r.Invert = o.Invert
		r.Posterize = o.Posterize
	}
	return r
}

// colorMatrix is a row-major 4x5 affine color transform. Offsets live in
// elements 4, 9, 14 and 19.
type colorMatrix [20]float64

var identityColorMatrix = colorMatrix{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// then returns the matrix applying m first and n second.
func (m colorMatrix) then(n colorMatrix) colorMatrix {
	var r colorMatrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			var v float64
			for k := 0; k < 4; k++ {
				v += n[row*5+k] * m[k*5+col]
			}
			if col == 4 {
				v += n[row*5+4]
			}
			r[row*5+col] = v
		}
	}
	return r
}

// apply transforms a straight-alpha color.
func (m colorMatrix) apply(c Color) Color {
	in := [4]float64{c.R, c.G, c.B, c.A}
	var out [4]float64
	for row := 0; row < 4; row++ {
		v := m[row*5+4]
		for k := 0; k < 4; k++ {
			v += m[row*5+k] * in[k]
		}
		out[row] = v
	}
	return Color{out[0], out[1], out[2], out[3]}
}

// Luma weights (Rec. 601).
const lumaR, lumaG, lumaB = 0.299, 0.587, 0.114

func saturationMatrix(s float64) colorMatrix {
	sr, sg, sb := (1-s)*lumaR, (1-s)*lumaG, (1-s)*lumaB
	return colorMatrix{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func hueMatrix(turns float64) colorMatrix {
	a := turns * 2 * math.Pi
	c, s := math.Cos(a), math.Sin(a)
	const lr, lg, lb = 0.213, 0.715, 0.072
	return colorMatrix{
		lr + c*(1-lr) - s*lr, lg - c*lg - s*lg, lb - c*lb + s*(1-lb), 0, 0,
		lr - c*lr + s*0.143, lg + c*(1-lg) + s*0.140, lb - c*lb - s*0.283, 0, 0,
		lr - c*lr - s*(1-lr), lg - c*lg + s*lg, lb + c*(1-lb) + s*lb, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func contrastMatrix(c float64) colorMatrix {
	t := (1 - c) / 2
	return colorMatrix{
		c, 0, 0, 0, t,
		0, c, 0, 0, t,
		0, 0, c, 0, t,
		0, 0, 0, 1, 0,
	}
}

func brightnessMatrix(b float64) colorMatrix {
	return colorMatrix{
		1, 0, 0, 0, b,
		0, 1, 0, 0, b,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	}
}

var invertMatrix = colorMatrix{
	-1, 0, 0, 0, 1,
	0, -1, 0, 0, 1,
	0, 0, -1, 0, 1,
	0, 0, 0, 1, 0,
}

// matrix folds the linear parameters into one color matrix: saturation,
// hue, contrast, brightness, then invert.
func (p ImageProcessing) matrix() colorMatrix {
	m := identityColorMatrix
	if p.Saturation != 0 {
		m = m.then(saturationMatrix(1 + p.Saturation))
	}
	if p.Hue != 0 {
		m = m.then(hueMatrix(p.Hue))
	}
	if p.Contrast != 0 {
		m = m.then(contrastMatrix(1 + p.Contrast))
	}
	if p.Brightness != 0 {
		m = m.then(brightnessMatrix(p.Brightness))
	}
	if p.Invert {
		m = m.then(invertMatrix)
	}
	return m
}

const processingShaderSrc = `//kage:unit pixels
package main

var Matrix [20]float
var Gamma vec4
var Levels vec4
var Posterize float
var Threshold float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	if c.a > 0 {
		c.rgb /= c.a
	}
	r := Matrix[0]*c.r + Matrix[1]*c.g + Matrix[2]*c.b + Matrix[3]*c.a + Matrix[4]
	g := Matrix[5]*c.r + Matrix[6]*c.g + Matrix[7]*c.b + Matrix[8]*c.a + Matrix[9]
	b := Matrix[10]*c.r + Matrix[11]*c.g + Matrix[12]*c.b + Matrix[13]*c.a + Matrix[14]
	a := Matrix[15]*c.r + Matrix[16]*c.g + Matrix[17]*c.b + Matrix[18]*c.a + Matrix[19]
	rgb := clamp(vec3(r, g, b), vec3(0), vec3(1))
	a = clamp(a, 0, 1)

	rgb = clamp((rgb-Levels.x)/max(Levels.y-Levels.x, 0.0001), vec3(0), vec3(1))
	rgb = pow(rgb, vec3(1)/max(Gamma.rgb*Gamma.a, vec3(0.0001)))
	rgb = mix(vec3(Levels.z), vec3(Levels.w), rgb)

	if Posterize > 0 {
		rgb = floor(rgb*Posterize) / Posterize
	}
	if Threshold > 0 {
		l := dot(rgb, vec3(0.299, 0.587, 0.114))
		rgb = vec3(step(Threshold, l))
	}
	return vec4(rgb*a, a) * color
}
`

var processingShader *ebiten.Shader

func ensureProcessingShader() *ebiten.Shader {
	if processingShader == nil {
		s, err := ebiten.NewShader([]byte(processingShaderSrc))
		if err != nil {
			panic("vmix: failed to compile image processing shader: " + err.Error())
		}
		processingShader = s
	}
	return processingShader
}

// processor draws frames through the image processing shader. It keeps
// its uniform buffers between frames.
type processor struct {
	uniforms    map[string]any
	matrixF32   [20]float32
	matrixSlice []float32
	gamma       [4]float32
	levels      [4]float32
	shaderOp    ebiten.DrawRectShaderOptions
	imgOp       ebiten.DrawImageOptions
}

func newProcessor() *processor {
	p := &processor{uniforms: make(map[string]any, 5)}
	p.matrixSlice = p.matrixF32[:]
	p.uniforms["Matrix"] = p.matrixSlice
	return p
}

// draw renders src scaled into dst. Neutral parameters skip the shader.
func (p *processor) draw(src *ebiten.Image, dst *FrameBuffer, params ImageProcessing) {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return
	}
	if params.IsNeutral() {
		p.imgOp.GeoM.Reset()
		p.imgOp.GeoM.Scale(float64(dst.w)/float64(sb.Dx()), float64(dst.h)/float64(sb.Dy()))
		p.imgOp.Filter = ebiten.FilterLinear
		p.imgOp.Blend = ebiten.BlendCopy
		dst.image.DrawImage(src, &p.imgOp)
		return
	}

	// DrawRectShader needs matching sizes; rescale into a pooled scratch
	// image first when the producer resolution differs.
	if sb.Dx() != dst.w || sb.Dy() != dst.h {
		scratch := scratchFrames.Acquire(dst.w, dst.h)
		defer scratchFrames.Release(scratch)
		p.imgOp.GeoM.Reset()
		p.imgOp.GeoM.Scale(float64(dst.w)/float64(sb.Dx()), float64(dst.h)/float64(sb.Dy()))
		p.imgOp.Filter = ebiten.FilterLinear
		p.imgOp.Blend = ebiten.BlendCopy
		scratch.DrawImage(src, &p.imgOp)
		src = scratch.SubImage(image.Rect(0, 0, dst.w, dst.h)).(*ebiten.Image)
	}

	m := params.matrix()
	for i, v := range m {
		p.matrixF32[i] = float32(v)
	}
	p.gamma = [4]float32{float32(params.Gamma.R), float32(params.Gamma.G), float32(params.Gamma.B), float32(params.Gamma.A)}
	p.levels = [4]float32{float32(params.Levels.X), float32(params.Levels.Y), float32(params.Levels.Z), float32(params.Levels.W)}
	p.uniforms["Gamma"] = p.gamma[:]
	p.uniforms["Levels"] = p.levels[:]
	p.uniforms["Posterize"] = float32(params.Posterize)
	p.uniforms["Threshold"] = float32(params.Threshold)

	p.shaderOp.Images[0] = src
	p.shaderOp.Uniforms = p.uniforms
	p.shaderOp.Blend = ebiten.BlendCopy
	dst.image.DrawRectShader(dst.w, dst.h, ensureProcessingShader(), &p.shaderOp)
}

func (p *processor) dispose() {
	p.shaderOp.Images[0] = nil
}

package aks

import "math"

// Rec. 709 luma weights used by the tonal and color stages.
const (
	lumaR = 0.2126
	lumaG = 0.7152
	lumaB = 0.0722
)

// toneRange is the maximum lift, in levels, applied by the highlight and
// shadow sliders at ±100.
const toneRange = 64

// kernel is the host-side implementation of the per-pixel pipeline.
// Every stage works on float32 values in the 0..255 domain and clamps its
// result. Neutral stages are skipped, in the same way the GPU kernel does.
//
// Products are wrapped in explicit float32 conversions so the compiler
// cannot fuse them into multiply-add instructions; rounding must follow
// the unfused sequence.
type kernel struct {
	p *[ParamCount]float32

	whiteBalance bool
	exposure     bool
	contrast     bool
	toneRanges   bool
	levels       bool
	color        bool
	curves       bool

	expGain float32
	lut     *LutTable
}

func newKernel(pack *ParamPack) kernel {
	v := &pack.Values
	return kernel{
		p:            v,
		whiteBalance: v[ParamTemperature] != 0 || v[ParamTint] != 0,
		exposure:     v[ParamExposure] != 0,
		contrast:     v[ParamContrast] != 0,
		toneRanges:   v[ParamHighlights] != 0 || v[ParamShadows] != 0,
		levels:       v[ParamBlacks] != 0 || v[ParamWhites] != 255,
		color:        v[ParamSaturation] != 0 || v[ParamVibrance] != 0,
		curves:       v[ParamCurveEnabled] != 0,
		expGain:      float32(math.Exp2(float64(v[ParamExposure]))),
		lut:          &pack.LUT,
	}
}

// apply runs stages 1-7 on one pixel and returns quantized bytes.
func (k *kernel) apply(r, g, b float32) (uint8, uint8, uint8) {
	if k.whiteBalance {
		r, g, b = k.applyWhiteBalance(r, g, b)
	}
	if k.exposure {
		r, g, b = k.applyExposure(r), k.applyExposure(g), k.applyExposure(b)
	}
	if k.contrast {
		r, g, b = k.applyContrast(r), k.applyContrast(g), k.applyContrast(b)
	}
	if k.toneRanges {
		r, g, b = k.applyToneRanges(r, g, b)
	}
	if k.levels {
		r, g, b = k.applyLevels(r), k.applyLevels(g), k.applyLevels(b)
	}
	if k.color {
		r, g, b = k.applyColor(r, g, b)
	}
	qr, qg, qb := quantize(r), quantize(g), quantize(b)
	if k.curves {
		qr = k.lut.Master[k.lut.Red[qr]]
		qg = k.lut.Master[k.lut.Green[qg]]
		qb = k.lut.Master[k.lut.Blue[qb]]
	}
	return qr, qg, qb
}

// Stage 1: per-channel gains from temperature (red/blue) and tint (green).
func (k *kernel) applyWhiteBalance(r, g, b float32) (float32, float32, float32) {
	t := k.p[ParamTemperature] / 100
	n := k.p[ParamTint] / 100
	rGain := 1 + float32(0.2*t)
	gGain := 1 - float32(0.2*n)
	bGain := 1 - float32(0.2*t)
	return clampf(float32(r * rGain)), clampf(float32(g * gGain)), clampf(float32(b * bGain))
}

// Stage 2: value *= 2^stops.
func (k *kernel) applyExposure(v float32) float32 {
	return clampf(float32(v * k.expGain))
}

// Stage 3: scale around the 128 pivot.
func (k *kernel) applyContrast(v float32) float32 {
	f := 1 + k.p[ParamContrast]/100
	return clampf(float32((v-128)*f) + 128)
}

// Stage 4: luminance-weighted lift of shadows and highlights.
func (k *kernel) applyToneRanges(r, g, b float32) (float32, float32, float32) {
	l := luma(r, g, b) / 255
	sm := 1 - smoothstep(0, 0.5, l)
	hm := smoothstep(0.5, 1, l)
	sh := float32(k.p[ParamShadows] / 100 * sm)
	hl := float32(k.p[ParamHighlights] / 100 * hm)
	d := float32(toneRange * (sh + hl))
	return clampf(r + d), clampf(g + d), clampf(b + d)
}

// Stage 5: remap [blacks, whites] onto [0, 255].
func (k *kernel) applyLevels(v float32) float32 {
	black := k.p[ParamBlacks]
	scale := 255 / (k.p[ParamWhites] - black)
	return clampf(float32((v - black) * scale))
}

// Stage 6: scale chroma around luminance; vibrance favors muted pixels.
func (k *kernel) applyColor(r, g, b float32) (float32, float32, float32) {
	l := luma(r, g, b)
	mx := max(r, g, b)
	mn := min(r, g, b)
	c := (mx - mn) / 255
	f := 1 + k.p[ParamSaturation]/100 + float32(k.p[ParamVibrance]/100*(1-c))
	return clampf(l + float32((r-l)*f)), clampf(l + float32((g-l)*f)), clampf(l + float32((b-l)*f))
}

func luma(r, g, b float32) float32 {
	return float32(lumaR*r) + float32(lumaG*g) + float32(lumaB*b)
}

func smoothstep(e0, e1, x float32) float32 {
	u := clamp01((x - e0) / (e1 - e0))
	return float32(u*u) * (3 - float32(2*u))
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

func clampf(v float32) float32 {
	return min(max(v, 0), 255)
}

// quantize rounds a channel value to a byte: floor(clamp(v) + 0.5).
func quantize(v float32) uint8 {
	return uint8(math.Floor(float64(clampf(v) + 0.5)))
}

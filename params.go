package aks

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Slots of the packed parameter vector. The order is the wire layout shared
// with the GPU kernel and must not change.
const (
	ParamTemperature = iota
	ParamTint
	ParamExposure
	ParamContrast
	ParamHighlights
	ParamShadows
	ParamBlacks
	ParamWhites
	ParamSaturation
	ParamVibrance
	ParamCurveEnabled
	ParamOutputWidth
	ParamOutputHeight
	ParamInputSamples
	ParamCropLeft
	ParamCropTop
	ParamCropRight
	ParamCropBottom
	ParamInputWidth
	ParamKeepAlpha

	// ParamCount is the number of float32 slots in a pack.
	ParamCount
)

// ParamBlockSize is the size in bytes of the marshaled float block.
const ParamBlockSize = ParamCount * 4

// LUTBlockSize is the size in bytes of the four tone-curve tables.
const LUTBlockSize = 4 * 256

// ParamPack is the canonical, fixed-layout parameter block consumed
// identically by every backend.
type ParamPack struct {
	Values [ParamCount]float32
	LUT    LutTable
}

// PackParams canonicalizes an adjustment set, the source layout and the
// resolved crop bounds into a parameter pack.
func PackParams(adj AdjustmentSet, src RawPixelData, bounds PixelBounds) *ParamPack {
	p := &ParamPack{LUT: BuildLutTable(adj)}
	v := &p.Values
	v[ParamTemperature] = float32(adj.Temperature)
	v[ParamTint] = float32(adj.Tint)
	v[ParamExposure] = float32(adj.Exposure)
	v[ParamContrast] = float32(adj.Contrast)
	v[ParamHighlights] = float32(adj.Highlights)
	v[ParamShadows] = float32(adj.Shadows)
	v[ParamBlacks] = float32(adj.Blacks)
	v[ParamWhites] = float32(adj.Whites)
	v[ParamSaturation] = float32(adj.Saturation)
	v[ParamVibrance] = float32(adj.Vibrance)
	v[ParamCurveEnabled] = boolToFloat(adj.CurveEnabled)
	v[ParamOutputWidth] = float32(bounds.Dx())
	v[ParamOutputHeight] = float32(bounds.Dy())
	v[ParamInputSamples] = float32(src.SamplesPerPixel)
	v[ParamCropLeft] = float32(bounds.Left)
	v[ParamCropTop] = float32(bounds.Top)
	v[ParamCropRight] = float32(bounds.Right)
	v[ParamCropBottom] = float32(bounds.Bottom)
	v[ParamInputWidth] = float32(src.Width)
	v[ParamKeepAlpha] = boolToFloat(src.keepAlpha())
	return p
}

// Bounds returns the crop pixel bounds stored in the pack.
func (p *ParamPack) Bounds() PixelBounds {
	return PixelBounds{
		Left:   int(p.Values[ParamCropLeft]),
		Top:    int(p.Values[ParamCropTop]),
		Right:  int(p.Values[ParamCropRight]),
		Bottom: int(p.Values[ParamCropBottom]),
	}
}

// OutputSize returns the output width and height stored in the pack.
func (p *ParamPack) OutputSize() (int, int) {
	return int(p.Values[ParamOutputWidth]), int(p.Values[ParamOutputHeight])
}

// CheckSource verifies that the pack was built for src.
func (p *ParamPack) CheckSource(src RawPixelData) error {
	b := p.Bounds()
	w, h := p.OutputSize()
	switch {
	case int(p.Values[ParamInputWidth]) != src.Width:
		return invalidInputf("pack input width %v, source width %d", p.Values[ParamInputWidth], src.Width)
	case int(p.Values[ParamInputSamples]) != src.SamplesPerPixel:
		return invalidInputf("pack samples %v, source samples %d", p.Values[ParamInputSamples], src.SamplesPerPixel)
	case b.Left < 0 || b.Top < 0 || b.Right > src.Width || b.Bottom > src.Height:
		return invalidInputf("crop bounds %v outside %dx%d", b, src.Width, src.Height)
	case w != b.Dx() || h != b.Dy() || w < 1 || h < 1:
		return invalidInputf("output size %dx%d does not match crop %v", w, h, b)
	}
	return nil
}

// MarshalBinary encodes the float block as little-endian float32 values.
func (p *ParamPack) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ParamBlockSize)
	for i, v := range p.Values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary decodes a float block produced by MarshalBinary.
// The LUT tables are left untouched.
func (p *ParamPack) UnmarshalBinary(data []byte) error {
	if len(data) != ParamBlockSize {
		return fmt.Errorf("aks: param block is %d bytes, want %d", len(data), ParamBlockSize)
	}
	for i := range p.Values {
		p.Values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

// LUTBytes returns the tone-curve tables in master, red, green, blue order.
func (p *ParamPack) LUTBytes() [4][]byte {
	return [4][]byte{p.LUT.Master[:], p.LUT.Red[:], p.LUT.Green[:], p.LUT.Blue[:]}
}

func boolToFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

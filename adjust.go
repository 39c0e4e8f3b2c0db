package aks

import (
	"fmt"
	"math"
)

// CurvePoint is one tone-curve control point. Both coordinates are in
// [0,255].
type CurvePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToneCurves holds the four per-channel curve definitions. A nil or
// short (fewer than two points) curve is the identity.
type ToneCurves struct {
	Master []CurvePoint `json:"master,omitempty"`
	Red    []CurvePoint `json:"red,omitempty"`
	Green  []CurvePoint `json:"green,omitempty"`
	Blue   []CurvePoint `json:"blue,omitempty"`
}

// AdjustmentSet is the ordered set of per-pixel adjustments.
//
// Scalar sliders are offsets whose neutral value is 0, except the levels
// pair: Blacks and Whites are the input levels mapped to 0 and 255, neutral
// at 0 and 255.
type AdjustmentSet struct {
	Temperature float64 `json:"temperature"` // [-100,100], warm > 0
	Tint        float64 `json:"tint"`        // [-100,100], magenta > 0
	Exposure    float64 `json:"exposure"`    // stops, [-5,5]
	Contrast    float64 `json:"contrast"`    // [-100,100]
	Highlights  float64 `json:"highlights"`  // [-100,100]
	Shadows     float64 `json:"shadows"`     // [-100,100]
	Blacks      float64 `json:"blacks"`      // level, [0,254]
	Whites      float64 `json:"whites"`      // level, [1,255]
	Saturation  float64 `json:"saturation"`  // [-100,100]
	Vibrance    float64 `json:"vibrance"`    // [-100,100]

	CurveEnabled bool       `json:"curveEnabled"`
	Curves       ToneCurves `json:"curves"`
}

// Slider limits.
const (
	MaxSlider       = 100
	MaxExposureStop = 5
)

// NeutralAdjustments returns the adjustment set that leaves pixels
// unchanged.
func NeutralAdjustments() AdjustmentSet {
	return AdjustmentSet{Whites: 255}
}

// IsNeutral reports whether every value equals its neutral default.
// Curves only count when CurveEnabled is set.
func (a AdjustmentSet) IsNeutral() bool {
	return a.Temperature == 0 && a.Tint == 0 &&
		a.Exposure == 0 && a.Contrast == 0 &&
		a.Highlights == 0 && a.Shadows == 0 &&
		a.Blacks == 0 && a.Whites == 255 &&
		a.Saturation == 0 && a.Vibrance == 0 &&
		!a.CurveEnabled
}

// Validate checks ranges and curve ordering.
func (a AdjustmentSet) Validate() error {
	sliders := []struct {
		name  string
		value float64
		lo    float64
		hi    float64
	}{
		{"temperature", a.Temperature, -MaxSlider, MaxSlider},
		{"tint", a.Tint, -MaxSlider, MaxSlider},
		{"exposure", a.Exposure, -MaxExposureStop, MaxExposureStop},
		{"contrast", a.Contrast, -MaxSlider, MaxSlider},
		{"highlights", a.Highlights, -MaxSlider, MaxSlider},
		{"shadows", a.Shadows, -MaxSlider, MaxSlider},
		{"blacks", a.Blacks, 0, 254},
		{"whites", a.Whites, 1, 255},
		{"saturation", a.Saturation, -MaxSlider, MaxSlider},
		{"vibrance", a.Vibrance, -MaxSlider, MaxSlider},
	}
	for _, s := range sliders {
		if math.IsNaN(s.value) || s.value < s.lo || s.value > s.hi {
			return invalidInputf("%s %v outside [%v,%v]", s.name, s.value, s.lo, s.hi)
		}
	}
	if a.Blacks >= a.Whites {
		return invalidInputf("blacks %v must be below whites %v", a.Blacks, a.Whites)
	}
	curves := [4][]CurvePoint{a.Curves.Master, a.Curves.Red, a.Curves.Green, a.Curves.Blue}
	for i, c := range curves {
		if err := validateCurve(c); err != nil {
			return fmt.Errorf("%s curve: %w", curveNames[i], err)
		}
	}
	return nil
}

var curveNames = [4]string{"master", "red", "green", "blue"}

func validateCurve(points []CurvePoint) error {
	for i, p := range points {
		if p.X < 0 || p.X > 255 || p.Y < 0 || p.Y > 255 || math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return invalidInputf("point %d (%v,%v) outside [0,255]", i, p.X, p.Y)
		}
		if i > 0 && p.X < points[i-1].X {
			return invalidInputf("point %d x=%v decreases", i, p.X)
		}
	}
	return nil
}

// Pipeline is one immutable snapshot of the edit state: the adjustment set
// and an optional crop. A nil Crop means the full image.
type Pipeline struct {
	Adjustments AdjustmentSet `json:"adjustments"`
	Crop        *CropRect     `json:"crop,omitempty"`
}

// NewPipeline returns a pipeline at neutral defaults with no crop.
func NewPipeline() Pipeline {
	return Pipeline{Adjustments: NeutralAdjustments()}
}

// HasAdjustments reports whether any adjustment differs from neutral.
func (p Pipeline) HasAdjustments() bool {
	return !p.Adjustments.IsNeutral()
}

// HasCrop reports whether a non-full crop is set.
func (p Pipeline) HasCrop() bool {
	return p.Crop != nil && !p.Crop.IsFullImage()
}

// Validate checks the adjustments and the crop.
func (p Pipeline) Validate() error {
	if err := p.Adjustments.Validate(); err != nil {
		return err
	}
	if p.Crop != nil {
		return p.Crop.Validate()
	}
	return nil
}

// clone returns a deep copy so snapshots never share curve slices.
func (p Pipeline) clone() Pipeline {
	out := p
	out.Adjustments.Curves = ToneCurves{
		Master: append([]CurvePoint(nil), p.Adjustments.Curves.Master...),
		Red:    append([]CurvePoint(nil), p.Adjustments.Curves.Red...),
		Green:  append([]CurvePoint(nil), p.Adjustments.Curves.Green...),
		Blue:   append([]CurvePoint(nil), p.Adjustments.Curves.Blue...),
	}
	if p.Crop != nil {
		c := *p.Crop
		out.Crop = &c
	}
	return out
}

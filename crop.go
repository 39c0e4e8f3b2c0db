package aks

import (
	"fmt"
	"math"
)

// CropRect is a normalized crop rectangle. All edges are in [0,1] with
// Left < Right and Top < Bottom.
type CropRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// FullImage returns the rectangle covering the whole image.
func FullImage() CropRect {
	return CropRect{Left: 0, Top: 0, Right: 1, Bottom: 1}
}

// NewCropRect returns a validated crop rectangle.
func NewCropRect(left, top, right, bottom float64) (CropRect, error) {
	r := CropRect{Left: left, Top: top, Right: right, Bottom: bottom}
	if err := r.Validate(); err != nil {
		return CropRect{}, err
	}
	return r, nil
}

// Validate reports ErrInvalidCrop if any edge is outside [0,1] or the
// rectangle is empty.
func (r CropRect) Validate() error {
	for _, v := range [4]float64{r.Left, r.Top, r.Right, r.Bottom} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidCrop, r)
		}
	}
	if r.Left >= r.Right || r.Top >= r.Bottom {
		return fmt.Errorf("%w: %v", ErrInvalidCrop, r)
	}
	return nil
}

// IsFullImage reports whether r equals (0,0,1,1).
func (r CropRect) IsFullImage() bool {
	return r == FullImage()
}

func (r CropRect) String() string {
	return fmt.Sprintf("(%.4f,%.4f)-(%.4f,%.4f)", r.Left, r.Top, r.Right, r.Bottom)
}

// PixelBounds is a half-open pixel rectangle [Left,Right) x [Top,Bottom).
type PixelBounds struct {
	Left, Top, Right, Bottom int
}

// Dx returns the width of the bounds.
func (b PixelBounds) Dx() int { return b.Right - b.Left }

// Dy returns the height of the bounds.
func (b PixelBounds) Dy() int { return b.Bottom - b.Top }

// ResolveCrop maps a normalized crop rectangle onto an image of the given
// size.
//
// Each edge is rounded half away from zero independently (math.Round of
// width*Left, width*Right, height*Top, height*Bottom). Both backends receive
// the bounds computed here, so this rounding rule is the only one in use.
// The result is clamped to the image and never has zero area.
func ResolveCrop(width, height int, rect CropRect) PixelBounds {
	left, right := resolveSpan(width, rect.Left, rect.Right)
	top, bottom := resolveSpan(height, rect.Top, rect.Bottom)
	return PixelBounds{Left: left, Top: top, Right: right, Bottom: bottom}
}

// resolveSpan rounds one axis and enforces hi-lo >= 1 inside [0,size].
func resolveSpan(size int, lo, hi float64) (int, int) {
	a := clampInt(int(math.Round(float64(size)*lo)), 0, size)
	b := clampInt(int(math.Round(float64(size)*hi)), 0, size)
	if b-a >= 1 {
		return a, b
	}
	if a < size {
		return a, a + 1
	}
	return size - 1, size
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

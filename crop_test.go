package aks

import (
	"errors"
	"math"
	"testing"
)

func TestResolveCrop(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		rect   CropRect
		want   PixelBounds
		wantWH [2]int
	}{
		{"full", 1000, 600, FullImage(), PixelBounds{0, 0, 1000, 600}, [2]int{1000, 600}},
		{"center strip", 1000, 600, CropRect{0.35, 0, 0.65, 1}, PixelBounds{350, 0, 650, 600}, [2]int{300, 600}},
		{"quarter", 400, 200, CropRect{0.25, 0.25, 0.75, 0.75}, PixelBounds{100, 50, 300, 150}, [2]int{200, 100}},
		{"half rounds up", 3, 3, CropRect{0.5, 0.5, 1, 1}, PixelBounds{2, 2, 3, 3}, [2]int{1, 1}},
		{"sub-pixel keeps one pixel", 10, 10, CropRect{0.51, 0.51, 0.52, 0.52}, PixelBounds{5, 5, 6, 6}, [2]int{1, 1}},
		{"sub-pixel at far edge", 10, 10, CropRect{0.98, 0.98, 0.99, 0.99}, PixelBounds{9, 9, 10, 10}, [2]int{1, 1}},
		{"1x1 image", 1, 1, CropRect{0.1, 0.1, 0.2, 0.2}, PixelBounds{0, 0, 1, 1}, [2]int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCrop(tt.w, tt.h, tt.rect)
			if got != tt.want {
				t.Errorf("ResolveCrop(%d, %d, %v) = %+v, want %+v", tt.w, tt.h, tt.rect, got, tt.want)
			}
			if got.Dx() != tt.wantWH[0] || got.Dy() != tt.wantWH[1] {
				t.Errorf("size = %dx%d, want %dx%d", got.Dx(), got.Dy(), tt.wantWH[0], tt.wantWH[1])
			}
		})
	}
}

func TestResolveCropAlwaysInside(t *testing.T) {
	for w := 1; w <= 17; w++ {
		for _, r := range []CropRect{
			{0, 0, 0.001, 0.001},
			{0.999, 0.999, 1, 1},
			{0.3333, 0.3333, 0.6667, 0.6667},
		} {
			b := ResolveCrop(w, w, r)
			if b.Left < 0 || b.Top < 0 || b.Right > w || b.Bottom > w || b.Dx() < 1 || b.Dy() < 1 {
				t.Errorf("ResolveCrop(%d, %v) = %+v escapes image or is empty", w, r, b)
			}
		}
	}
}

func TestCropRectValidate(t *testing.T) {
	tests := []struct {
		name string
		rect CropRect
		ok   bool
	}{
		{"full", FullImage(), true},
		{"inner", CropRect{0.1, 0.2, 0.9, 0.8}, true},
		{"left equals right", CropRect{0.5, 0, 0.5, 1}, false},
		{"top after bottom", CropRect{0, 0.6, 1, 0.4}, false},
		{"negative", CropRect{-0.1, 0, 1, 1}, false},
		{"beyond one", CropRect{0, 0, 1.01, 1}, false},
		{"NaN", CropRect{math.NaN(), 0, 1, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rect.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok {
				if !errors.Is(err, ErrInvalidCrop) {
					t.Errorf("Validate() = %v, want ErrInvalidCrop", err)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("Validate() = %v, want it to wrap ErrInvalidInput", err)
				}
			}
		})
	}
}

func TestNewCropRect(t *testing.T) {
	r, err := NewCropRect(0.1, 0.1, 0.9, 0.9)
	if err != nil {
		t.Fatalf("NewCropRect() error = %v", err)
	}
	if r.IsFullImage() {
		t.Error("inner rect reported as full image")
	}
	if _, err := NewCropRect(0.9, 0.1, 0.1, 0.9); err == nil {
		t.Error("NewCropRect() with left > right should fail")
	}
	if !FullImage().IsFullImage() {
		t.Error("FullImage().IsFullImage() = false")
	}
}

package aks

import "image"

// RawPixelData is a decoded sensor image: interleaved, row-major, 8 bits
// per sample, 3 (RGB) or 4 (RGBA) samples per pixel.
//
// It is produced once per loaded file and treated as read-only afterwards.
// Backends never write to Pix.
type RawPixelData struct {
	Pix             []byte
	Width, Height   int
	BitsPerSample   int
	SamplesPerPixel int

	// AlphaMeaningful marks the fourth sample of a 4-sample buffer as real
	// transparency. When false the output alpha is forced to 255.
	AlphaMeaningful bool
}

// NewRawPixelData wraps an 8-bit interleaved buffer.
func NewRawPixelData(pix []byte, width, height, samples int) RawPixelData {
	return RawPixelData{
		Pix:             pix,
		Width:           width,
		Height:          height,
		BitsPerSample:   8,
		SamplesPerPixel: samples,
	}
}

// Validate checks that the buffer length matches the declared layout.
func (r RawPixelData) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return invalidInputf("dimensions %dx%d", r.Width, r.Height)
	}
	if r.BitsPerSample != 8 {
		return invalidInputf("%d bits per sample, want 8", r.BitsPerSample)
	}
	if r.SamplesPerPixel != 3 && r.SamplesPerPixel != 4 {
		return invalidInputf("%d samples per pixel, want 3 or 4", r.SamplesPerPixel)
	}
	if want := r.Width * r.Height * r.SamplesPerPixel; len(r.Pix) != want {
		return invalidInputf("buffer length %d, want %d (%dx%dx%d)",
			len(r.Pix), want, r.Width, r.Height, r.SamplesPerPixel)
	}
	return nil
}

// Stride returns the number of bytes per row.
func (r RawPixelData) Stride() int {
	return r.Width * r.SamplesPerPixel
}

// keepAlpha reports whether the source alpha is carried to the output.
func (r RawPixelData) keepAlpha() bool {
	return r.SamplesPerPixel == 4 && r.AlphaMeaningful
}

// ProcessedImage is the RGBA output of one processing call, with straight
// (non-premultiplied) alpha. Pix is newly allocated per call and never
// aliases the input buffer.
type ProcessedImage struct {
	Pix           []byte
	Width, Height int

	// Backend names the backend that produced the pixels.
	Backend string
}

// newProcessedImage allocates an RGBA buffer of the given size.
func newProcessedImage(width, height int, backend string) *ProcessedImage {
	return &ProcessedImage{
		Pix:     make([]byte, width*height*4),
		Width:   width,
		Height:  height,
		Backend: backend,
	}
}

// NRGBA returns an *image.NRGBA sharing the pixel buffer.
func (p *ProcessedImage) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.Pix,
		Stride: p.Width * 4,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}

// At returns the RGBA bytes of the pixel at (x, y).
func (p *ProcessedImage) At(x, y int) [4]uint8 {
	i := (y*p.Width + x) * 4
	return [4]uint8{p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3]}
}

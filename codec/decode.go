// Package codec connects the aks engine to image files: it decodes
// developed images into aks.RawPixelData and encodes processed results.
//
// Decoding supports JPEG, PNG, TIFF, BMP and WebP. Encoding supports JPEG,
// PNG and TIFF, with an optional preview downscale.
package codec

import (
	"image"
	"image/color"
	"io"
	"os"

	xdraw "golang.org/x/image/draw"

	// Register decoders with image.Decode.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	aks "github.com/myyc/aks-sub001"
)

// Decoder produces the 8-bit interleaved buffer the engine consumes.
type Decoder interface {
	Decode(path string) (*aks.RawPixelData, error)
}

// ImageDecoder decodes any registered image format.
//
// Images without transparency yield 3 samples per pixel. Images with
// transparency yield 4 samples when KeepAlpha is set and are flattened to
// 3 otherwise.
type ImageDecoder struct {
	KeepAlpha bool
}

var _ Decoder = ImageDecoder{}

// Decode reads and converts the image at path. Failures are reported as
// *aks.DecodeError.
func (d ImageDecoder) Decode(path string) (*aks.RawPixelData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &aks.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, &aks.DecodeError{Path: path, Err: err}
	}
	raw := FromImage(img, d.KeepAlpha)
	if err := raw.Validate(); err != nil {
		return nil, &aks.DecodeError{Path: path, Err: err}
	}
	aks.Logger().Debug("codec: decoded", "path", path, "format", format,
		"width", raw.Width, "height", raw.Height, "samples", raw.SamplesPerPixel)
	return raw, nil
}

// FromImage converts img to an 8-bit RGB or RGBA buffer with straight
// (non-premultiplied) alpha.
func FromImage(img image.Image, keepAlpha bool) *aks.RawPixelData {
	b := img.Bounds()
	nrgba := toNRGBA(img)

	if keepAlpha && !nrgba.Opaque() {
		raw := aks.NewRawPixelData(nrgba.Pix, b.Dx(), b.Dy(), 4)
		raw.AlphaMeaningful = true
		return &raw
	}

	pix := make([]byte, b.Dx()*b.Dy()*3)
	for i, j := 0, 0; i < len(nrgba.Pix); i, j = i+4, j+3 {
		copy(pix[j:j+3], nrgba.Pix[i:i+3])
	}
	raw := aks.NewRawPixelData(pix, b.Dx(), b.Dy(), 3)
	return &raw
}

// toNRGBA returns img as a tightly packed NRGBA image at the origin.
// NRGBA sources are copied row by row so straight alpha survives exactly.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := range b.Dy() {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src.Pix[i:i+b.Dx()*4])
		}
		return out
	}
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// ImageInfo describes an image file without decoding its pixels.
type ImageInfo struct {
	Format          string
	Width, Height   int
	SamplesPerPixel int // 4 when the file stores straight alpha

	// Exif is the camera metadata of JPEG and TIFF files. It is zero when
	// the file records none.
	Exif Exif
}

// Info reads the header and camera metadata of the image at path.
// Unreadable metadata is not an error.
func Info(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageInfo{}, &aks.DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, &aks.DecodeError{Path: path, Err: err}
	}
	samples := 3
	switch cfg.ColorModel {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		samples = 4
	}
	info := ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height, SamplesPerPixel: samples}

	if format == "jpeg" || format == "tiff" {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return ImageInfo{}, &aks.DecodeError{Path: path, Err: err}
		}
		if info.Exif, err = ReadExif(f); err != nil {
			aks.Logger().Debug("codec: no EXIF", "path", path, "err", err)
		}
	}
	return info, nil
}

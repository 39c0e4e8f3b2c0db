package codec

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	aks "github.com/myyc/aks-sub001"
)

// Format is an output file format.
type Format string

// Output formats.
const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
)

// DefaultQuality is the JPEG quality used when Options.Quality is zero.
const DefaultQuality = 92

// FormatFromPath picks the output format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("codec: unsupported output extension %q", filepath.Ext(path))
	}
}

// Options configures Encode.
type Options struct {
	Format Format

	// Quality is the JPEG quality in [1,100]. Zero means DefaultQuality;
	// other values are clamped.
	Quality int

	// MaxDimension downscales the image so neither side exceeds it.
	// Zero keeps the full size.
	MaxDimension int
}

func clampQuality(q int) int {
	switch {
	case q == 0:
		return DefaultQuality
	case q < 1:
		return 1
	case q > 100:
		return 100
	}
	return q
}

// Encode writes img to w. JPEG drops the alpha channel. Failures are
// reported as *aks.EncodeError.
func Encode(w io.Writer, img *aks.ProcessedImage, opts Options) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*4 {
		return &aks.EncodeError{Format: string(opts.Format), Err: aks.ErrInvalidInput}
	}

	src := Downscale(img.NRGBA(), opts.MaxDimension)

	var err error
	switch opts.Format {
	case FormatJPEG:
		err = jpeg.Encode(w, opaque(src), &jpeg.Options{Quality: clampQuality(opts.Quality)})
	case FormatPNG:
		err = png.Encode(w, src)
	case FormatTIFF:
		err = tiff.Encode(w, src, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = fmt.Errorf("unsupported format %q", opts.Format)
	}
	if err != nil {
		return &aks.EncodeError{Format: string(opts.Format), Err: err}
	}
	return nil
}

// Downscale resizes img with Catmull-Rom so that neither side exceeds
// maxDim, keeping the aspect ratio. It returns img unchanged when it
// already fits or maxDim is not positive.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	w, h := maxDim, maxDim
	if b.Dx() >= b.Dy() {
		h = max(1, (b.Dy()*maxDim+b.Dx()/2)/b.Dx())
	} else {
		w = max(1, (b.Dx()*maxDim+b.Dy()/2)/b.Dy())
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// opaque returns an RGBA copy of img with every alpha forced to 255.
// Color values are kept as they are, not composited.
func opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(out.Pix, toNRGBA(img).Pix)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	aks "github.com/myyc/aks-sub001"
)

// ErrNoExif is returned by ReadExif when the data carries no EXIF block.
var ErrNoExif = errors.New("codec: no EXIF metadata")

// Exif is the camera metadata recorded in an image file. Fields that were
// not recorded are zero.
type Exif struct {
	Make      string
	Model     string
	Software  string
	LensMake  string
	LensModel string

	ISO             int
	Aperture        float64 // f-number
	ShutterSpeed    float64 // exposure time in seconds
	FocalLength     float64 // mm
	FocalLength35mm float64 // mm, 35 mm equivalent

	// DateTime is the capture time. Without a recorded offset it is in the
	// local time zone.
	DateTime time.Time
}

// IsZero reports whether no field was recorded.
func (e Exif) IsZero() bool {
	return e.Make == "" && e.Model == "" && e.Software == "" &&
		e.LensMake == "" && e.LensModel == "" &&
		e.ISO == 0 && e.Aperture == 0 && e.ShutterSpeed == 0 &&
		e.FocalLength == 0 && e.FocalLength35mm == 0 && e.DateTime.IsZero()
}

// Shutter formats ShutterSpeed the way cameras display it: "1/250" below
// one second, "2.5" otherwise. It is empty when no exposure was recorded.
func (e Exif) Shutter() string {
	switch {
	case e.ShutterSpeed <= 0:
		return ""
	case e.ShutterSpeed < 1:
		return fmt.Sprintf("1/%.0f", 1/e.ShutterSpeed)
	default:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", e.ShutterSpeed), ".0")
	}
}

// ReadExif extracts camera metadata from JPEG or TIFF data. Damaged
// sub-directories are skipped; only a missing or unreadable main
// directory is an error.
func ReadExif(r io.Reader) (Exif, error) {
	x, err := exif.Decode(r)
	if x == nil {
		return Exif{}, fmt.Errorf("%w: %w", ErrNoExif, err)
	}
	if err != nil {
		if exif.IsCriticalError(err) {
			return Exif{}, fmt.Errorf("%w: %w", ErrNoExif, err)
		}
		aks.Logger().Debug("codec: partial EXIF", "err", err)
	}

	e := Exif{
		Make:            exifString(x, exif.Make),
		Model:           exifString(x, exif.Model),
		Software:        exifString(x, exif.Software),
		LensMake:        exifString(x, exif.LensMake),
		LensModel:       exifString(x, exif.LensModel),
		ISO:             exifInt(x, exif.ISOSpeedRatings),
		Aperture:        exifRat(x, exif.FNumber),
		ShutterSpeed:    exifRat(x, exif.ExposureTime),
		FocalLength:     exifRat(x, exif.FocalLength),
		FocalLength35mm: float64(exifInt(x, exif.FocalLengthIn35mmFilm)),
	}
	if t, err := x.DateTime(); err == nil {
		e.DateTime = t
	}
	return e, nil
}

func exifTag(x *exif.Exif, name exif.FieldName, format tiff.Format) *tiff.Tag {
	tag, err := x.Get(name)
	if err != nil || tag.Format() != format {
		return nil
	}
	return tag
}

func exifString(x *exif.Exif, name exif.FieldName) string {
	tag := exifTag(x, name, tiff.StringVal)
	if tag == nil {
		return ""
	}
	s, _ := tag.StringVal()
	return strings.TrimSpace(s)
}

func exifInt(x *exif.Exif, name exif.FieldName) int {
	tag := exifTag(x, name, tiff.IntVal)
	if tag == nil || tag.Count == 0 {
		return 0
	}
	v, _ := tag.Int(0)
	return v
}

func exifRat(x *exif.Exif, name exif.FieldName) float64 {
	tag := exifTag(x, name, tiff.RatVal)
	if tag == nil || tag.Count == 0 {
		return 0
	}
	num, den, _ := tag.Rat2(0)
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

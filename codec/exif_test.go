package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/jpeg"
	"image/png"
	"testing"
)

// TIFF field types.
const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

type exifEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

func asciiEntry(tag uint16, s string) exifEntry {
	v := append([]byte(s), 0)
	return exifEntry{tag: tag, typ: typeASCII, count: uint32(len(v)), value: v}
}

func shortEntry(tag, v uint16) exifEntry {
	return exifEntry{tag: tag, typ: typeShort, count: 1, value: binary.LittleEndian.AppendUint16(nil, v)}
}

func ratEntry(tag uint16, num, den uint32) exifEntry {
	v := binary.LittleEndian.AppendUint32(nil, num)
	v = binary.LittleEndian.AppendUint32(v, den)
	return exifEntry{tag: tag, typ: typeRational, count: 1, value: v}
}

// buildExifTIFF lays out a little-endian TIFF with IFD0 followed by an
// EXIF sub-IFD and a data area for values longer than four bytes.
func buildExifTIFF(ifd0, sub []exifEntry) []byte {
	le := binary.LittleEndian
	ifdSize := func(n int) int { return 2 + 12*n + 4 }
	const ifd0Off = 8
	subOff := ifd0Off + ifdSize(len(ifd0)+1)
	dataOff := subOff + ifdSize(len(sub))

	var data []byte
	writeIFD := func(buf []byte, entries []exifEntry) []byte {
		buf = le.AppendUint16(buf, uint16(len(entries)))
		for _, e := range entries {
			buf = le.AppendUint16(buf, e.tag)
			buf = le.AppendUint16(buf, e.typ)
			buf = le.AppendUint32(buf, e.count)
			if len(e.value) <= 4 {
				var v [4]byte
				copy(v[:], e.value)
				buf = append(buf, v[:]...)
				continue
			}
			buf = le.AppendUint32(buf, uint32(dataOff+len(data)))
			data = append(data, e.value...)
			if len(data)%2 == 1 {
				data = append(data, 0)
			}
		}
		return le.AppendUint32(buf, 0)
	}

	pointer := exifEntry{tag: 0x8769, typ: typeLong, count: 1, value: le.AppendUint32(nil, uint32(subOff))}
	buf := []byte("II*\x00")
	buf = le.AppendUint32(buf, ifd0Off)
	buf = writeIFD(buf, append(append([]exifEntry(nil), ifd0...), pointer))
	buf = writeIFD(buf, sub)
	return append(buf, data...)
}

func cameraTIFF() []byte {
	return buildExifTIFF(
		[]exifEntry{
			asciiEntry(0x010F, "FUJIFILM"),
			asciiEntry(0x0110, "X-T5 "),
			asciiEntry(0x0131, "Digital Camera X-T5 Ver2.00"),
		},
		[]exifEntry{
			ratEntry(0x829A, 1, 250),
			ratEntry(0x829D, 28, 10),
			shortEntry(0x8827, 400),
			asciiEntry(0x9003, "2024:06:01 18:30:05"),
			ratEntry(0x920A, 350, 10),
			shortEntry(0xA405, 53),
			asciiEntry(0xA433, "FUJIFILM"),
			asciiEntry(0xA434, "XF35mmF1.4 R"),
		},
	)
}

// withAPP1 inserts an EXIF APP1 segment after the JPEG SOI marker.
func withAPP1(jpg, tiffData []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiffData...)
	seg := []byte{0xFF, 0xE1}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	seg = append(seg, payload...)

	out := append([]byte(nil), jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func checkCamera(t *testing.T, e Exif) {
	t.Helper()
	strs := []struct{ name, got, want string }{
		{"Make", e.Make, "FUJIFILM"},
		{"Model", e.Model, "X-T5"},
		{"Software", e.Software, "Digital Camera X-T5 Ver2.00"},
		{"LensMake", e.LensMake, "FUJIFILM"},
		{"LensModel", e.LensModel, "XF35mmF1.4 R"},
		{"Shutter", e.Shutter(), "1/250"},
		{"DateTime", e.DateTime.Format("2006-01-02 15:04:05"), "2024-06-01 18:30:05"},
	}
	for _, s := range strs {
		if s.got != s.want {
			t.Errorf("%s = %q, want %q", s.name, s.got, s.want)
		}
	}
	nums := []struct {
		name      string
		got, want float64
	}{
		{"ISO", float64(e.ISO), 400},
		{"Aperture", e.Aperture, 2.8},
		{"ShutterSpeed", e.ShutterSpeed, 0.004},
		{"FocalLength", e.FocalLength, 35},
		{"FocalLength35mm", e.FocalLength35mm, 53},
	}
	for _, n := range nums {
		if n.got != n.want {
			t.Errorf("%s = %v, want %v", n.name, n.got, n.want)
		}
	}
}

func TestReadExifTIFF(t *testing.T) {
	e, err := ReadExif(bytes.NewReader(cameraTIFF()))
	if err != nil {
		t.Fatalf("ReadExif() error = %v", err)
	}
	checkCamera(t, e)
	if e.IsZero() {
		t.Error("IsZero() = true for recorded metadata")
	}
}

func TestReadExifJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, makeTestImage(16, 8, 255), nil); err != nil {
		t.Fatal(err)
	}
	e, err := ReadExif(bytes.NewReader(withAPP1(buf.Bytes(), cameraTIFF())))
	if err != nil {
		t.Fatalf("ReadExif() error = %v", err)
	}
	checkCamera(t, e)
}

func TestReadExifMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, makeTestImage(4, 4, 255), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadExif(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrNoExif) {
		t.Errorf("ReadExif() error = %v, want ErrNoExif", err)
	}
	if !(Exif{}).IsZero() {
		t.Error("zero Exif should report IsZero")
	}
}

func TestInfoExif(t *testing.T) {
	jpg := writeFile(t, "camera.jpg", func(b *bytes.Buffer) error {
		var plain bytes.Buffer
		if err := jpeg.Encode(&plain, makeTestImage(16, 8, 255), nil); err != nil {
			return err
		}
		_, err := b.Write(withAPP1(plain.Bytes(), cameraTIFF()))
		return err
	})
	info, err := Info(jpg)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Format != "jpeg" || info.Width != 16 || info.Height != 8 {
		t.Errorf("Info() = %s %dx%d, want jpeg 16x8", info.Format, info.Width, info.Height)
	}
	checkCamera(t, info.Exif)

	plain := writeFile(t, "plain.png", func(b *bytes.Buffer) error {
		return png.Encode(b, makeTestImage(4, 4, 255))
	})
	info, err = Info(plain)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if !info.Exif.IsZero() {
		t.Errorf("PNG Exif = %+v, want zero", info.Exif)
	}
}

func TestExifShutter(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, ""},
		{1.0 / 8000, "1/8000"},
		{0.5, "1/2"},
		{1, "1"},
		{2.5, "2.5"},
		{30, "30"},
	}
	for _, tt := range tests {
		if got := (Exif{ShutterSpeed: tt.seconds}).Shutter(); got != tt.want {
			t.Errorf("Shutter(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

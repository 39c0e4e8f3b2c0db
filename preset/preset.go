// Package preset stores edit state as sidecar files: a versioned JSON
// document holding an aks.Pipeline, compressed with zstd.
package preset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	aks "github.com/myyc/aks-sub001"
)

// Version is the document version written by Save.
const Version = 1

// Ext is the conventional sidecar file extension.
const Ext = ".akp"

// ErrUnsupportedVersion is returned by Load for documents from a newer
// writer.
var ErrUnsupportedVersion = errors.New("preset: unsupported version")

// document is the on-disk JSON shape.
type document struct {
	Version  int          `json:"version"`
	Pipeline aks.Pipeline `json:"pipeline"`
}

// Save writes p to w.
func Save(w io.Writer, p aks.Pipeline) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	raw, err := json.Marshal(document{Version: Version, Pipeline: p})
	if err != nil {
		return fmt.Errorf("preset: encode: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return fmt.Errorf("preset: compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("preset: compress: %w", err)
	}
	return nil
}

// Load reads a pipeline written by Save. Missing adjustment fields take
// their neutral values. The result is validated.
func Load(r io.Reader) (aks.Pipeline, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return aks.Pipeline{}, fmt.Errorf("preset: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return aks.Pipeline{}, fmt.Errorf("preset: decompress: %w", err)
	}

	doc := document{Pipeline: aks.NewPipeline()}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.DisallowUnknownFields()
	if err := d.Decode(&doc); err != nil {
		return aks.Pipeline{}, fmt.Errorf("preset: decode: %w", err)
	}
	if doc.Version < 1 || doc.Version > Version {
		return aks.Pipeline{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if err := doc.Pipeline.Validate(); err != nil {
		return aks.Pipeline{}, fmt.Errorf("preset: %w", err)
	}
	return doc.Pipeline, nil
}

// SaveFile writes p to path.
func SaveFile(path string, p aks.Pipeline) error {
	var buf bytes.Buffer
	if err := Save(&buf, p); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644) //nolint:gosec // sidecar files are user documents
}

// LoadFile reads a pipeline from path.
func LoadFile(path string) (aks.Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return aks.Pipeline{}, fmt.Errorf("preset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

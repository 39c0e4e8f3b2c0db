// Package parallel provides the row-band worker pool used by the CPU
// processing backend.
//
// An output image is divided into horizontal bands of BandRows rows. Every
// per-pixel stage is independent, so bands can be processed in any order
// on any worker without changing the result.
package parallel

// BandRows is the default band height. 64 rows of a 6000 px wide RGBA image
// is about 1.5 MB, large enough to amortize scheduling and small enough to
// balance across workers.
const BandRows = 64

// Band is a half-open range of output rows [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in the band.
func (b Band) Rows() int { return b.Y1 - b.Y0 }

// SplitRows divides height rows into bands of at most rows rows.
// If rows is 0 or negative, BandRows is used.
func SplitRows(height, rows int) []Band {
	if height <= 0 {
		return nil
	}
	if rows <= 0 {
		rows = BandRows
	}
	bands := make([]Band, 0, (height+rows-1)/rows)
	for y := 0; y < height; y += rows {
		bands = append(bands, Band{Y0: y, Y1: min(y+rows, height)})
	}
	return bands
}

// ForEachBand runs fn once per band of height rows and waits for all bands.
func (p *WorkerPool) ForEachBand(height, rows int, fn func(Band)) {
	bands := SplitRows(height, rows)
	jobs := make([]func(), len(bands))
	for i, b := range bands {
		jobs[i] = func() { fn(b) }
	}
	p.ExecuteAll(jobs)
}

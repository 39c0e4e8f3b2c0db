package aks

import (
	"math"
	"sort"
)

// LutTable holds the four 256-entry tone-curve tables. Channel tables are
// applied first, then the master table.
type LutTable struct {
	Master, Red, Green, Blue [256]uint8
}

// IdentityLUT returns a table set that maps every byte to itself.
func IdentityLUT() LutTable {
	id := identityCurve()
	return LutTable{Master: id, Red: id, Green: id, Blue: id}
}

func identityCurve() [256]uint8 {
	var t [256]uint8
	for i := range t {
		t[i] = uint8(i)
	}
	return t
}

// BuildLutTable builds the four tables of an adjustment set. Tables are
// built even when curves are disabled; the curve-enabled flag in the
// parameter pack decides whether they are applied.
func BuildLutTable(adj AdjustmentSet) LutTable {
	return LutTable{
		Master: BuildLUT(adj.Curves.Master),
		Red:    BuildLUT(adj.Curves.Red),
		Green:  BuildLUT(adj.Curves.Green),
		Blue:   BuildLUT(adj.Curves.Blue),
	}
}

// BuildLUT converts curve control points into a 256-entry table.
//
// Fewer than two points yield the identity. Otherwise points are clamped
// to [0,255] and sorted by X (a repeated X keeps its last Y), endpoints are
// added at x=0 and x=255 with the Y of the nearest supplied point, and the
// table is filled by monotone cubic Hermite interpolation with
// Fritsch-Carlson tangents. Values are rounded half away from zero.
func BuildLUT(points []CurvePoint) [256]uint8 {
	if len(points) < 2 {
		return identityCurve()
	}

	xs, ys := normalizeCurve(points)
	ms := monotoneTangents(xs, ys)

	var table [256]uint8
	seg := 0
	for i := range table {
		x := float64(i)
		for seg < len(xs)-2 && x > xs[seg+1] {
			seg++
		}
		table[i] = toByte(hermite(xs, ys, ms, seg, x))
	}
	return table
}

// normalizeCurve clamps, sorts and de-duplicates the control points and
// synthesizes the 0 and 255 endpoints. A synthesized endpoint copies the Y
// of its nearest supplied point, so the curve is flat outside the supplied
// range; it is not pinned to 0 or 255.
func normalizeCurve(points []CurvePoint) (xs, ys []float64) {
	pts := make([]CurvePoint, len(points))
	for i, p := range points {
		pts[i] = CurvePoint{X: clamp255(p.X), Y: clamp255(p.Y)}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	xs = make([]float64, 0, len(pts)+2)
	ys = make([]float64, 0, len(pts)+2)
	for _, p := range pts {
		if n := len(xs); n > 0 && xs[n-1] == p.X {
			ys[n-1] = p.Y
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}

	if xs[0] > 0 {
		xs = append([]float64{0}, xs...)
		ys = append([]float64{ys[0]}, ys...)
	}
	if xs[len(xs)-1] < 255 {
		xs = append(xs, 255)
		ys = append(ys, ys[len(ys)-1])
	}
	return xs, ys
}

// monotoneTangents computes Fritsch-Carlson tangents so that the Hermite
// spline never overshoots between monotone control points.
func monotoneTangents(xs, ys []float64) []float64 {
	n := len(xs)
	ms := make([]float64, n)
	if n < 2 {
		return ms
	}
	deltas := make([]float64, n-1)
	for k := range deltas {
		deltas[k] = (ys[k+1] - ys[k]) / (xs[k+1] - xs[k])
	}

	ms[0] = deltas[0]
	ms[n-1] = deltas[n-2]
	for k := 1; k < n-1; k++ {
		if deltas[k-1]*deltas[k] <= 0 {
			ms[k] = 0
		} else {
			ms[k] = (deltas[k-1] + deltas[k]) / 2
		}
	}

	for k, d := range deltas {
		if d == 0 {
			ms[k], ms[k+1] = 0, 0
			continue
		}
		a, b := ms[k]/d, ms[k+1]/d
		if s := a*a + b*b; s > 9 {
			tau := 3 / math.Sqrt(s)
			ms[k] = tau * a * d
			ms[k+1] = tau * b * d
		}
	}
	return ms
}

// hermite evaluates the cubic Hermite segment seg at x.
func hermite(xs, ys, ms []float64, seg int, x float64) float64 {
	if len(xs) == 1 {
		return ys[0]
	}
	h := xs[seg+1] - xs[seg]
	t := (x - xs[seg]) / h
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return h00*ys[seg] + h10*h*ms[seg] + h01*ys[seg+1] + h11*h*ms[seg+1]
}

func clamp255(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp255(v)))
}

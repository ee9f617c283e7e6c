/*package stats contains the estimators used to calibrate phase-space
clustering: robust dispersions, phase-space normalization and median radii.
*/
package stats

import (
	"errors"
	"math"
	"sort"
)

const (
	// madScale converts a median absolute deviation into the standard
	// deviation of a Gaussian.
	madScale = 1.4826
)

var (
	ErrEmpty    = errors.New("stats: median radius of an empty sample")
	ErrFraction = errors.New("stats: median radius fraction must be positive")
)

// Wrap returns the minimum image of the displacement dx in a periodic box of
// width box. A non-positive box disables wrapping.
func Wrap(dx, box float64) float64 {
	if box <= 0 { return dx }
	if dx > box / 2 {
		return dx - box
	} else if dx < -box / 2 {
		return dx + box
	}
	return dx
}

// median returns the median of xs, reordering xs in the process.
func median(xs []float64) float64 {
	sort.Float64s(xs)
	n := len(xs)
	if n % 2 == 1 { return xs[n/2] }
	return (xs[n/2 - 1] + xs[n/2]) / 2
}

// axisSigma returns a robust standard deviation estimate of xs. buf must be
// at least as long as xs.
func axisSigma(xs, buf []float64) float64 {
	n := len(xs)
	buf = buf[:n]
	copy(buf, xs)
	med := median(buf)

	for i, x := range xs { buf[i] = math.Abs(x - med) }
	sig := madScale * median(buf)
	if sig > 0 { return sig }

	// More than half the sample sits on the median. Fall back to the
	// plain standard deviation so that outliers still register.
	sum, sum2 := 0.0, 0.0
	for _, x := range xs {
		sum += x
		sum2 += x*x
	}
	mean := sum / float64(n)
	v := sum2 / float64(n) - mean*mean
	if v <= 0 { return 0 }
	return math.Sqrt(v)
}

// RobustDispersion computes the 3D position and velocity dispersions of a
// particle set using the median absolute deviation of each axis, combined in
// quadrature. Positions are measured relative to xs[0] with periodic wrapping
// in a box of width box. Fewer than two particles give zero dispersions;
// callers are expected to apply their own floors.
func RobustDispersion(xs, vs [][3]float64, box float64) (sigX, sigV float64) {
	n := len(xs)
	if n < 2 { return 0, 0 }

	axis, buf := make([]float64, n), make([]float64, n)
	for k := 0; k < 3; k++ {
		for i := range xs { axis[i] = Wrap(xs[i][k] - xs[0][k], box) }
		s := axisSigma(axis, buf)
		sigX += s*s

		for i := range vs { axis[i] = vs[i][k] }
		s = axisSigma(axis, buf)
		sigV += s*s
	}

	return math.Sqrt(sigX), math.Sqrt(sigV)
}

// Center returns the mean position (periodic, relative to xs[0]) and mean
// velocity of a particle set. Positions are wrapped back into [0, box).
func Center(xs, vs [][3]float64, box float64) (x, v [3]float64) {
	n := len(xs)
	if n == 0 { return x, v }
	for i := range xs {
		for k := 0; k < 3; k++ {
			x[k] += Wrap(xs[i][k] - xs[0][k], box)
			v[k] += vs[i][k]
		}
	}
	for k := 0; k < 3; k++ {
		x[k] = xs[0][k] + x[k] / float64(n)
		v[k] /= float64(n)
		if box > 0 {
			if x[k] < 0 {
				x[k] += box
			} else if x[k] >= box {
				x[k] -= box
			}
		}
	}
	return x, v
}

// Normalize returns the 6D phase-space coordinates of a particle set
// centered on its mean and divided by the given dispersions, so that one unit
// along a position axis is as significant as one unit along a velocity axis.
// If the set has fewer than thresh members, no normalization is done and ok
// is false: such a set should be treated as a single unsplit unit.
//
// Zero dispersions are the caller's responsibility; a zero sigma leaves the
// corresponding axes at zero.
func Normalize(
	xs, vs [][3]float64, sigX, sigV, box float64, thresh int,
) (pts [][6]float64, ok bool) {
	if len(xs) < thresh || len(xs) == 0 { return nil, false }

	x0, v0 := Center(xs, vs, box)
	ix, iv := 0.0, 0.0
	if sigX > 0 { ix = 1 / sigX }
	if sigV > 0 { iv = 1 / sigV }

	pts = make([][6]float64, len(xs))
	for i := range xs {
		for k := 0; k < 3; k++ {
			pts[i][k] = Wrap(xs[i][k] - x0[k], box) * ix
			pts[i][k+3] = (vs[i][k] - v0[k]) * iv
		}
	}
	return pts, true
}

// MedianRadius returns the radius enclosing the fraction frac of the sample
// rs, i.e. the element of rank ceil(frac*n) - 1 in sorted order. Fractions
// above one are clamped to one. rs is not modified.
func MedianRadius(rs []float64, frac float64) (float64, error) {
	if len(rs) == 0 { return 0, ErrEmpty }
	if !(frac > 0) { return 0, ErrFraction }
	if frac > 1 { frac = 1 }

	sorted := make([]float64, len(rs))
	copy(sorted, rs)
	sort.Float64s(sorted)

	idx := int(math.Ceil(frac * float64(len(sorted)))) - 1
	if idx < 0 { idx = 0 }
	return sorted[idx], nil
}

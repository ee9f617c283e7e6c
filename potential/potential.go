/*package potential evaluates the kinetic and gravitational potential energies
used to decide which particles are bound to a halo.

Energies are per unit mass and in (km/s)^2. Positions are comoving Mpc/h,
velocities are physical km/s.
*/
package potential

import (
	"math"
)

const (
	// DontCalculate marks a sample which should not act as a source of
	// potential (e.g. a duplicate periodic image). It still receives
	// potential from every other sample.
	DontCalculate int32 = 1

	// GravConst is Newton's constant in Mpc (km/s)^2 / Msun.
	GravConst = 4.30091e-9
)

// Sample is the per-particle workspace used during a single energy pass.
// X holds the position (0-2) and velocity (3-5) relative to the halo center.
type Sample struct {
	X [6]float64
	R2 float64
	PE float64
	KE float64
	Flags int32
}

// Strength returns the coupling g for which the potential between two
// particles separated by a comoving distance r is -g/r in (km/s)^2.
// mass is in Msun/h and a is the scale factor; the factors of h cancel.
func Strength(mass, a float64) float64 {
	return GravConst * mass / a
}

// ComputeKineticEnergy sets KE = |v - vCen|^2 / 2 and R2 = |x - xCen|^2 for
// every sample.
func ComputeKineticEnergy(ps []Sample, vCen, xCen [3]float64) {
	for i := range ps {
		p := &ps[i]
		ke, r2 := 0.0, 0.0
		for k := 0; k < 3; k++ {
			dv := p.X[k+3] - vCen[k]
			dx := p.X[k] - xCen[k]
			ke += dv*dv
			r2 += dx*dx
		}
		p.KE = ke / 2
		p.R2 = r2
	}
}

// ComputePotential sets PE for every sample by direct summation over all
// pairs. Each pair is visited once so the contribution of i to j exactly
// equals the contribution of j to i. Squared separations are floored at eps^2,
// which keeps coincident particles finite.
func ComputePotential(ps []Sample, eps, g float64) {
	eps2 := eps*eps

	for i := range ps { ps[i].PE = 0 }

	for i := range ps {
		pi := &ps[i]
		for j := i + 1; j < len(ps); j++ {
			pj := &ps[j]
			dx := pi.X[0] - pj.X[0]
			dy := pi.X[1] - pj.X[1]
			dz := pi.X[2] - pj.X[2]
			r2 := dx*dx + dy*dy + dz*dz
			if r2 < eps2 { r2 = eps2 }
			phi := g / math.Sqrt(r2)

			if pj.Flags & DontCalculate == 0 { pi.PE -= phi }
			if pi.Flags & DontCalculate == 0 { pj.PE -= phi }
		}
	}
}

// Bound returns true if the sample's total energy does not exceed slack.
func Bound(s *Sample, slack float64) bool {
	return s.KE + s.PE <= slack
}

// Finite returns true if every phase-space coordinate of s is finite.
func Finite(s *Sample) bool {
	for _, x := range s.X {
		if math.IsNaN(x) || math.IsInf(x, 0) { return false }
	}
	return true
}

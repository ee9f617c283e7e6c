/*package cosmo contains background cosmology routines and the spherical
overdensity mass definitions built on top of them. Densities are in
(Msun/h) / (Mpc/h)^3.
*/
package cosmo

import (
	"math"
	"strings"
)

const (
	// RhoCritical0 is the critical density today in (Msun/h) / (Mpc/h)^3.
	RhoCritical0 = 2.77536627e11
)

// Efunc returns H(z) / H0 for a flat-or-curved matter + Lambda universe.
func Efunc(omegaM, omegaL, z float64) float64 {
	omegaK := 1 - omegaM - omegaL
	zp1 := 1 + z
	return math.Sqrt(omegaM*zp1*zp1*zp1 + omegaK*zp1*zp1 + omegaL)
}

// RhoCritical returns the physical critical density at redshift z.
func RhoCritical(omegaM, omegaL, z float64) float64 {
	e := Efunc(omegaM, omegaL, z)
	return RhoCritical0 * e * e
}

// RhoAverage returns the physical mean matter density at redshift z.
func RhoAverage(omegaM, omegaL, z float64) float64 {
	zp1 := 1 + z
	return RhoCritical0 * omegaM * zp1 * zp1 * zp1
}

// OmegaMz returns the matter density parameter at redshift z.
func OmegaMz(omegaM, omegaL, z float64) float64 {
	zp1 := 1 + z
	e := Efunc(omegaM, omegaL, z)
	return omegaM * zp1 * zp1 * zp1 / (e * e)
}

// VirialOverdensity returns the Bryan & Norman (1998) virial overdensity with
// respect to the critical density.
func VirialOverdensity(omegaM, omegaL, z float64) float64 {
	x := OmegaMz(omegaM, omegaL, z) - 1
	return 18*math.Pi*math.Pi + 82*x - 39*x*x
}

// Cosmology is the background information a mass definition needs.
type Cosmology struct {
	OmegaM, OmegaL float64
	Scale float64
}

// Z returns the redshift corresponding to the scale factor.
func (c *Cosmology) Z() float64 { return 1/c.Scale - 1 }

type MassDef int

const (
	MVir MassDef = iota
	M200c
	M200m
	M500c
	M2500c
	endMassDef
)

// MassDefFromString parses names like "vir", "200c", "M200b" or "r500c".
func MassDefFromString(s string) (m MassDef, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(strings.TrimPrefix(s, "m"), "r")
	switch s {
	case "vir":
		return MVir, true
	case "200c":
		return M200c, true
	case "200m", "200b":
		return M200m, true
	case "500c":
		return M500c, true
	case "2500c":
		return M2500c, true
	}
	return MVir, false
}

// MassDefs returns every supported mass definition.
func MassDefs() []MassDef {
	out := make([]MassDef, endMassDef)
	for i := range out { out[i] = MassDef(i) }
	return out
}

func (m MassDef) String() string {
	switch m {
	case MVir:
		return "MVir"
	case M200c:
		return "M200c"
	case M200m:
		return "M200m"
	case M500c:
		return "M500c"
	case M2500c:
		return "M2500c"
	}
	panic(":3")
}

// Density returns the physical density that the mean enclosed density of a
// halo equals at its boundary.
func (m MassDef) Density(c *Cosmology) float64 {
	z := c.Z()
	switch m {
	case MVir:
		return VirialOverdensity(c.OmegaM, c.OmegaL, z) *
			RhoCritical(c.OmegaM, c.OmegaL, z)
	case M200c:
		return 200 * RhoCritical(c.OmegaM, c.OmegaL, z)
	case M200m:
		return 200 * RhoAverage(c.OmegaM, c.OmegaL, z)
	case M500c:
		return 500 * RhoCritical(c.OmegaM, c.OmegaL, z)
	case M2500c:
		return 2500 * RhoCritical(c.OmegaM, c.OmegaL, z)
	}
	panic(":3")
}

// ComovingDensity is Density expressed in comoving units, which is what
// enclosed masses inside comoving radii are compared against.
func (m MassDef) ComovingDensity(c *Cosmology) float64 {
	a := c.Scale
	return m.Density(c) * a * a * a
}

// Radius returns the comoving radius of a halo with mass ms.
func (m MassDef) Radius(c *Cosmology, mass float64) float64 {
	return math.Cbrt(mass / (m.ComovingDensity(c) * 4 * math.Pi / 3))
}

// Mass returns the mass of a halo with comoving radius r.
func (m MassDef) Mass(c *Cosmology, r float64) float64 {
	return m.ComovingDensity(c) * 4 * math.Pi / 3 * r*r*r
}

package phasefind

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/phasefind/cosmo"
)

// Particle is a single simulation particle. Positions are comoving Mpc/h
// and velocities are physical km/s.
type Particle struct {
	ID uint64
	X, V [3]float64
}

// Params describes the snapshot a pass runs over. Loaders resolve every
// field into the finder's working units before handing it over.
type Params struct {
	BoxSize float64 // Comoving Mpc/h
	Scale float64
	H100 float64
	OmegaM, OmegaL float64
	ParticleMass float64 // Msun/h
	TotalParticles int64
}

// Cosmology returns the background cosmology of the snapshot.
func (p *Params) Cosmology() cosmo.Cosmology {
	return cosmo.Cosmology{ OmegaM: p.OmegaM, OmegaL: p.OmegaL, Scale: p.Scale }
}

// CheckInit returns an error if the parameters cannot describe a snapshot.
func (p *Params) CheckInit() error {
	if p.BoxSize < 0 || math.IsNaN(p.BoxSize) {
		return fmt.Errorf("BoxSize must be non-negative, but is %g.", p.BoxSize)
	} else if !(p.Scale > 0) {
		return fmt.Errorf("Scale must be positive, but is %g.", p.Scale)
	} else if !(p.ParticleMass > 0) {
		return fmt.Errorf(
			"ParticleMass must be positive, but is %g.", p.ParticleMass,
		)
	} else if !(p.OmegaM > 0) {
		return fmt.Errorf("OmegaM must be positive, but is %g.", p.OmegaM)
	}
	return nil
}

// Group is a friends-of-friends group: indices into the particle slice and
// the linking length used to find it.
type Group struct {
	Index []int
	LinkingLength float64
}

package phasefind

import (
	"fmt"

	"github.com/phil-mansfield/phasefind/cosmo"
)

// Config holds every tunable of the substructure finder.
type Config struct {
	// Halos with fewer bound particles than this are deleted.
	MinHaloParticles int
	// Particle sets smaller than this are not searched for substructure.
	MinSubstructureSize int
	// MaxDepth bounds the substructure recursion.
	MaxDepth int
	// MaxUnbindIterations caps the unbinding loop of a single halo.
	MaxUnbindIterations int

	// FOFFraction is the fraction of particles which are guaranteed a
	// phase-space neighbour within the linking length.
	FOFFraction float64
	// LinkSlack widens the phase-space linking length by a relative amount
	// so that equidistant neighbours are linked despite round-off.
	LinkSlack float64
	// A subgroup whose center lies at least MergeDistance from the set it
	// was found in, measured in that set's dispersion units, is a distinct
	// peak. Closer subgroups must instead be denser than the set by a factor
	// of PeakContrast*exp(ContrastNoise/sqrt(N)), with N the subgroup size.
	MergeDistance float64
	PeakContrast float64
	ContrastNoise float64
	// Particles whose two closest seeds differ in distance by less than
	// TieTolerance (relative) are assigned at random.
	TieTolerance float64

	// BoundSlack is the largest total energy, in (km/s)^2, counted as bound.
	BoundSlack float64
	// Halos keeping less than this fraction of their particles through
	// unbinding are deleted.
	UnboundThreshold float64
	// ForceResolution is the comoving softening length, Mpc/h.
	ForceResolution float64
	// Floors on the dispersions used for phase-space normalization.
	MinDispersionX, MinDispersionV float64

	// MassDefs lists the mass definitions computed for each halo. The first
	// is the primary definition.
	MassDefs []cosmo.MassDef
	// TrackedIDs are ids of particles whose halos are always printed.
	TrackedIDs []uint64
	// MinOutputParticles is the smallest halo reported as printable.
	MinOutputParticles int

	Seed uint64
	Workers int
	// MaxParticleCopies caps the particle copy arena of a single group.
	// Zero means no limit.
	MaxParticleCopies int

	Log bool
}

// DefaultConfig returns the finder's default configuration.
func DefaultConfig() Config {
	return Config{
		MinHaloParticles: 10,
		MinSubstructureSize: 20,
		MaxDepth: 12,
		MaxUnbindIterations: 20,
		FOFFraction: 0.7,
		LinkSlack: 1e-6,
		MergeDistance: 2,
		PeakContrast: 10,
		ContrastNoise: 10,
		TieTolerance: 0.01,
		BoundSlack: 0,
		UnboundThreshold: 0.5,
		ForceResolution: 0.003,
		MinDispersionX: 1e-5,
		MinDispersionV: 1e-3,
		MassDefs: []cosmo.MassDef{ cosmo.MVir, cosmo.M200c, cosmo.M200m,
			cosmo.M500c, cosmo.M2500c },
		MinOutputParticles: 20,
		Seed: 1,
		Workers: 1,
	}
}

// CheckInit returns a descriptive error for the first invalid field.
func (con *Config) CheckInit() error {
	switch {
	case con.MinHaloParticles < 1:
		return fmt.Errorf(
			"MinHaloParticles must be at least 1, but is %d.",
			con.MinHaloParticles,
		)
	case con.MinSubstructureSize < 1:
		return fmt.Errorf(
			"MinSubstructureSize must be at least 1, but is %d.",
			con.MinSubstructureSize,
		)
	case con.MaxDepth < 0:
		return fmt.Errorf("MaxDepth must be non-negative, but is %d.",
			con.MaxDepth)
	case con.MaxUnbindIterations < 1:
		return fmt.Errorf(
			"MaxUnbindIterations must be at least 1, but is %d.",
			con.MaxUnbindIterations,
		)
	case !(con.FOFFraction > 0 && con.FOFFraction <= 1):
		return fmt.Errorf("FOFFraction must be in (0, 1], but is %g.",
			con.FOFFraction)
	case con.LinkSlack < 0:
		return fmt.Errorf("LinkSlack must be non-negative, but is %g.",
			con.LinkSlack)
	case con.MergeDistance < 0:
		return fmt.Errorf("MergeDistance must be non-negative, but is %g.",
			con.MergeDistance)
	case !(con.PeakContrast > 0):
		return fmt.Errorf("PeakContrast must be positive, but is %g.",
			con.PeakContrast)
	case con.ContrastNoise < 0:
		return fmt.Errorf("ContrastNoise must be non-negative, but is %g.",
			con.ContrastNoise)
	case con.TieTolerance < 0:
		return fmt.Errorf("TieTolerance must be non-negative, but is %g.",
			con.TieTolerance)
	case con.BoundSlack < 0:
		return fmt.Errorf("BoundSlack must be non-negative, but is %g.",
			con.BoundSlack)
	case con.UnboundThreshold < 0 || con.UnboundThreshold > 1:
		return fmt.Errorf("UnboundThreshold must be in [0, 1], but is %g.",
			con.UnboundThreshold)
	case !(con.ForceResolution > 0):
		return fmt.Errorf("ForceResolution must be positive, but is %g.",
			con.ForceResolution)
	case !(con.MinDispersionX > 0) || !(con.MinDispersionV > 0):
		return fmt.Errorf(
			"MinDispersionX and MinDispersionV must be positive, but are " +
				"%g and %g.", con.MinDispersionX, con.MinDispersionV,
		)
	case len(con.MassDefs) == 0:
		return fmt.Errorf("At least one mass definition must be given.")
	case con.Workers < 1:
		return fmt.Errorf("Workers must be at least 1, but is %d.",
			con.Workers)
	case con.MaxParticleCopies < 0:
		return fmt.Errorf(
			"MaxParticleCopies must be non-negative, but is %d.",
			con.MaxParticleCopies,
		)
	}
	return nil
}

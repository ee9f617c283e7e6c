/*package io handles the outer collaborators of the finder: configuration
files, snapshot particle loaders and friends-of-friends membership files.
*/
package io

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/warnings.v0"

	"github.com/phil-mansfield/phasefind"
	"github.com/phil-mansfield/phasefind/cosmo"
)

const (
	ExampleRunFile = `[Run]

#######################
# Required Parameters #
#######################

# Particle file(s) making up the snapshot. Give one Input line per file.
Input = path/to/snapshot.0
# File giving the friends-of-friends group of each particle. Each line holds
# a particle index (its position in the files listed above, counting from
# zero) followed by a group id.
Groups = path/to/groups.txt
# Output catalog. One line per printable halo.
Output = path/to/halos.txt

#######################
# Optional Parameters #
#######################

# Number of goroutines used to process groups. Default is 1.
# Workers = 8

# Prints progress to the log. Default is false.
# Verbose = true

# If set, the bound member ids of every printable halo are written here.
# MembersFile = path/to/members.txt

# Output files which are useful for profiling and debugging. Generally, there
# isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out

[Snapshot]

# Either Gadget-2 or Text. Text files have seven columns: id x y z vx vy vz.
Format = Gadget-2

#######################
# Optional Parameters #
#######################

# Size of Gadget-2 particle ids in bits, 32 or 64. Default is 64.
# GadgetIDSize = 64
# Byte order of Gadget-2 files, Little or Big. Default is Little.
# Endianness = Little

# Length of one file unit in Mpc/h. Gadget-2 files written in kpc/h need
# 0.001. Default is 1.
# LengthUnit = 1
# Mass of one file mass unit in Msun/h. Default is 1e10.
# MassUnit = 1e10

# Text files carry no header, so the snapshot must be described here. These
# are ignored for Gadget-2 files. Lengths are in file units.
# BoxSize = 125
# Scale = 1
# H100 = 0.7
# OmegaM = 0.27
# OmegaL = 0.73
# ParticleMass = 1.7e9

[Finder]

# Every parameter is optional. The values below are the defaults.

# MinHaloParticles = 10
# MinSubstructureSize = 20
# MaxDepth = 12
# MaxUnbindIterations = 20
# FOFFraction = 0.7
# LinkSlack = 1e-6
# MergeDistance = 2
# PeakContrast = 10
# ContrastNoise = 10
# TieTolerance = 0.01
# BoundSlack = 0
# UnboundThreshold = 0.5
# ForceResolution = 0.003
# MinDispersionX = 1e-5
# MinDispersionV = 1e-3
# MinOutputParticles = 20
# Seed = 1

# Size limit of each group's particle copy store. 0 means no limit.
# MaxParticleCopies = 0

# Mass definitions, one line each: vir, 200c, 200m, 500c or 2500c. The first
# one listed is the primary definition. Default is all of them.
# MassDefinition = vir
# MassDefinition = 200c

# Ids of particles whose halos are output regardless of size.
# TrackedID = 1024`
)

type SharedConfig struct {
	// Required
	Input []string
	Output string
	// Optional
	LogFile, ProfileFile string
}

func (con *SharedConfig) ValidInput() bool {
	if len(con.Input) == 0 { return false }
	for _, in := range con.Input {
		if in == "" { return false }
	}
	return true
}
func (con *SharedConfig) ValidOutput() bool {
	return con.Output != ""
}
func (con *SharedConfig) ValidLogFile() bool {
	return con.LogFile != ""
}
func (con *SharedConfig) ValidProfileFile() bool {
	return con.ProfileFile != ""
}

type RunConfig struct {
	SharedConfig
	// Required
	Groups string

	// Optional
	MembersFile string
	Workers int
	Verbose bool
}

func (con *RunConfig) ValidGroups() bool {
	return con.Groups != ""
}
func (con *RunConfig) ValidWorkers() bool {
	return con.Workers > 0
}

const (
	GadgetFormat = "Gadget-2"
	TextFormat = "Text"
)

type SnapshotConfig struct {
	// Required
	Format string

	// Optional
	GadgetIDSize int
	Endianness string
	LengthUnit, MassUnit float64

	BoxSize, Scale, H100 float64
	OmegaM, OmegaL float64
	ParticleMass float64
}

func (con *SnapshotConfig) ValidFormat() bool {
	return con.Format == GadgetFormat || con.Format == TextFormat
}
func (con *SnapshotConfig) ValidGadgetIDSize() bool {
	return con.GadgetIDSize == 64 || con.GadgetIDSize == 32
}
func (con *SnapshotConfig) ValidEndianness() bool {
	e := strings.ToLower(con.Endianness)
	return e == "little" || e == "big"
}
func (con *SnapshotConfig) ValidUnits() bool {
	return con.LengthUnit > 0 && con.MassUnit > 0
}

// TextParams returns the snapshot parameters of a text snapshot, which must
// be given in the config file.
func (con *SnapshotConfig) TextParams() (phasefind.Params, error) {
	p := phasefind.Params{
		BoxSize: con.BoxSize * con.LengthUnit,
		Scale: con.Scale,
		H100: con.H100,
		OmegaM: con.OmegaM,
		OmegaL: con.OmegaL,
		ParticleMass: con.ParticleMass,
	}
	if err := p.CheckInit(); err != nil {
		return p, fmt.Errorf("Invalid [Snapshot] header values: %s", err)
	}
	return p, nil
}

type FinderConfig struct {
	MinHaloParticles, MinSubstructureSize int
	MaxDepth, MaxUnbindIterations int

	FOFFraction, LinkSlack float64
	MergeDistance, PeakContrast, ContrastNoise float64
	TieTolerance float64
	BoundSlack, UnboundThreshold float64
	ForceResolution float64
	MinDispersionX, MinDispersionV float64

	MinOutputParticles int
	MaxParticleCopies int
	Seed int64

	MassDefinition []string
	TrackedID []string
}

// Config converts the file representation into a finder configuration.
// Unset fields keep their default values.
func (con *FinderConfig) Config() (phasefind.Config, error) {
	cfg := phasefind.DefaultConfig()
	cfg.MinHaloParticles = con.MinHaloParticles
	cfg.MinSubstructureSize = con.MinSubstructureSize
	cfg.MaxDepth = con.MaxDepth
	cfg.MaxUnbindIterations = con.MaxUnbindIterations
	cfg.FOFFraction = con.FOFFraction
	cfg.LinkSlack = con.LinkSlack
	cfg.MergeDistance = con.MergeDistance
	cfg.PeakContrast = con.PeakContrast
	cfg.ContrastNoise = con.ContrastNoise
	cfg.TieTolerance = con.TieTolerance
	cfg.BoundSlack = con.BoundSlack
	cfg.UnboundThreshold = con.UnboundThreshold
	cfg.ForceResolution = con.ForceResolution
	cfg.MinDispersionX = con.MinDispersionX
	cfg.MinDispersionV = con.MinDispersionV
	cfg.MinOutputParticles = con.MinOutputParticles
	cfg.MaxParticleCopies = con.MaxParticleCopies
	cfg.Seed = uint64(con.Seed)

	if len(con.MassDefinition) > 0 {
		cfg.MassDefs = make([]cosmo.MassDef, len(con.MassDefinition))
		for i, name := range con.MassDefinition {
			def, ok := cosmo.MassDefFromString(name)
			if !ok {
				return cfg, fmt.Errorf(
					"Unrecognized MassDefinition '%s'.", name,
				)
			}
			cfg.MassDefs[i] = def
		}
	}

	for _, s := range con.TrackedID {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("Invalid TrackedID '%s'.", s)
		}
		cfg.TrackedIDs = append(cfg.TrackedIDs, id)
	}

	return cfg, cfg.CheckInit()
}

type RunWrapper struct {
	Run RunConfig
	Snapshot SnapshotConfig
	Finder FinderConfig
}

func DefaultRunWrapper() *RunWrapper {
	def := phasefind.DefaultConfig()
	wrap := &RunWrapper{}

	wrap.Run.Workers = def.Workers

	wrap.Snapshot.GadgetIDSize = 64
	wrap.Snapshot.Endianness = "Little"
	wrap.Snapshot.LengthUnit = 1
	wrap.Snapshot.MassUnit = 1e10

	f := &wrap.Finder
	f.MinHaloParticles = def.MinHaloParticles
	f.MinSubstructureSize = def.MinSubstructureSize
	f.MaxDepth = def.MaxDepth
	f.MaxUnbindIterations = def.MaxUnbindIterations
	f.FOFFraction = def.FOFFraction
	f.LinkSlack = def.LinkSlack
	f.MergeDistance = def.MergeDistance
	f.PeakContrast = def.PeakContrast
	f.ContrastNoise = def.ContrastNoise
	f.TieTolerance = def.TieTolerance
	f.BoundSlack = def.BoundSlack
	f.UnboundThreshold = def.UnboundThreshold
	f.ForceResolution = def.ForceResolution
	f.MinDispersionX = def.MinDispersionX
	f.MinDispersionV = def.MinDispersionV
	f.MinOutputParticles = def.MinOutputParticles
	f.MaxParticleCopies = def.MaxParticleCopies
	f.Seed = int64(def.Seed)

	return wrap
}

// ReadRunConfig reads a run config file on top of the defaults. Unknown
// variables are not fatal: they are returned as a warnings.List alongside a
// usable wrapper, and warnings.FatalOnly(err) is nil.
func ReadRunConfig(fname string) (*RunWrapper, error) {
	wrap := DefaultRunWrapper()
	err := gcfg.ReadFileInto(wrap, fname)
	if warnings.FatalOnly(err) != nil { return nil, err }
	return wrap, err
}

// ReadRunConfigString is ReadRunConfig for an in-memory config.
func ReadRunConfigString(text string) (*RunWrapper, error) {
	wrap := DefaultRunWrapper()
	err := gcfg.ReadStringInto(wrap, text)
	if warnings.FatalOnly(err) != nil { return nil, err }
	return wrap, err
}

// Check returns an error describing the first invalid value in the wrapper.
func (wrap *RunWrapper) Check() error {
	run, snap := &wrap.Run, &wrap.Snapshot
	switch {
	case !run.ValidInput():
		return fmt.Errorf("Invalid/non-existent 'Input' value.")
	case !run.ValidOutput():
		return fmt.Errorf("Invalid/non-existent 'Output' value.")
	case !run.ValidGroups():
		return fmt.Errorf("Invalid/non-existent 'Groups' value.")
	case !run.ValidWorkers():
		return fmt.Errorf("'Workers' must be positive, but is %d.",
			run.Workers)
	case !snap.ValidFormat():
		return fmt.Errorf(
			"Invalid/non-existent 'Format'. The only accepted formats are %s " +
				"and %s.", GadgetFormat, TextFormat,
		)
	case !snap.ValidGadgetIDSize():
		return fmt.Errorf("'GadgetIDSize' must be 32 or 64, but is %d.",
			snap.GadgetIDSize)
	case !snap.ValidEndianness():
		return fmt.Errorf("'Endianness' must be Little or Big, but is '%s'.",
			snap.Endianness)
	case !snap.ValidUnits():
		return fmt.Errorf("'LengthUnit' and 'MassUnit' must be positive.")
	}
	return nil
}

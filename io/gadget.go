package io

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/phil-mansfield/phasefind"
)

// gadgetHeader is the formatting for meta-information used by Gadget 2.
type gadgetHeader struct {
	NPart                                     [6]uint32
	Mass                                      [6]float64
	Time, Redshift                            float64
	FlagSfr, FlagFeedback                     int32
	NPartTotal                                [6]uint32
	FlagCooling, NumFiles                     int32
	BoxSize, Omega0, OmegaLambda, HubbleParam float64
	FlagStellarAge, HashTabSize               int32

	Padding [88]byte
}

const gadgetHeaderSize = 256

// Params returns the snapshot parameters described by the header, in the
// finder's units. Only the dark matter species is used.
func (gh *gadgetHeader) Params(con *SnapshotConfig) phasefind.Params {
	return phasefind.Params{
		BoxSize: gh.BoxSize * con.LengthUnit,
		Scale: gh.Time,
		H100: gh.HubbleParam,
		OmegaM: gh.Omega0,
		OmegaL: gh.OmegaLambda,
		ParticleMass: gh.Mass[1] * con.MassUnit,
		TotalParticles: int64(gh.NPartTotal[1]),
	}
}

func (con *SnapshotConfig) order() binary.ByteOrder {
	if strings.ToLower(con.Endianness) == "big" { return binary.BigEndian }
	return binary.LittleEndian
}

// readBlock reads one Fortran-style record into data, checking that both of
// its size markers agree with the size of data.
func readBlock(
	r io.Reader, order binary.ByteOrder, size int, data interface{},
) error {
	var head, tail int32
	if err := binary.Read(r, order, &head); err != nil { return err }
	if int(head) != size {
		return fmt.Errorf(
			"Gadget block has size %d, but %d bytes were expected.",
			head, size,
		)
	}
	if err := binary.Read(r, order, data); err != nil { return err }
	if err := binary.Read(r, order, &tail); err != nil { return err }
	if tail != head {
		return fmt.Errorf(
			"Gadget block opens with size %d but closes with size %d.",
			head, tail,
		)
	}
	return nil
}

// ReadGadgetHeader reads the header of a Gadget-2 file.
func ReadGadgetHeader(path string, con *SnapshotConfig) (*gadgetHeader, error) {
	f, err := os.Open(path)
	if err != nil { return nil, err }
	defer f.Close()

	gh := &gadgetHeader{}
	if err := readBlock(f, con.order(), gadgetHeaderSize, gh); err != nil {
		return nil, fmt.Errorf("Reading header of %s: %s", path, err)
	}
	return gh, nil
}

// ReadGadgetParticlesAt reads the dark matter particles of a single Gadget-2
// file and appends them to ps. Positions are wrapped into the box and
// velocities converted from Gadget's internal convention to peculiar km/s.
func ReadGadgetParticlesAt(
	path string, con *SnapshotConfig, ps []phasefind.Particle,
) (*gadgetHeader, []phasefind.Particle, error) {
	f, err := os.Open(path)
	if err != nil { return nil, ps, err }
	defer f.Close()
	r := bufio.NewReader(f)
	order := con.order()

	gh := &gadgetHeader{}
	if err := readBlock(r, order, gadgetHeaderSize, gh); err != nil {
		return nil, ps, fmt.Errorf("Reading header of %s: %s", path, err)
	}

	for i := range gh.NPart {
		if i != 1 && gh.NPart[i] != 0 {
			return nil, ps, fmt.Errorf(
				"%s holds %d particles of species %d, but only dark " +
					"matter is supported.", path, gh.NPart[i], i,
			)
		}
	}

	n := int(gh.NPart[1])
	floatBuf := make([]float32, 3*n)

	start := len(ps)
	ps = append(ps, make([]phasefind.Particle, n)...)
	out := ps[start:]

	if err := readBlock(r, order, 12*n, floatBuf); err != nil {
		return nil, ps[:start], fmt.Errorf(
			"Reading positions of %s: %s", path, err,
		)
	}
	box := gh.BoxSize * con.LengthUnit
	for i := range out {
		for k := 0; k < 3; k++ {
			out[i].X[k] = wrapPosition(
				float64(floatBuf[3*i+k]) * con.LengthUnit, box,
			)
		}
	}

	if err := readBlock(r, order, 12*n, floatBuf); err != nil {
		return nil, ps[:start], fmt.Errorf(
			"Reading velocities of %s: %s", path, err,
		)
	}
	rootA := math.Sqrt(gh.Time)
	for i := range out {
		for k := 0; k < 3; k++ {
			out[i].V[k] = float64(floatBuf[3*i+k]) * rootA
		}
	}

	switch con.GadgetIDSize {
	case 32:
		ids := make([]uint32, n)
		if err := readBlock(r, order, 4*n, ids); err != nil {
			return nil, ps[:start], fmt.Errorf(
				"Reading ids of %s: %s", path, err,
			)
		}
		for i := range out { out[i].ID = uint64(ids[i]) }
	case 64:
		ids := make([]uint64, n)
		if err := readBlock(r, order, 8*n, ids); err != nil {
			return nil, ps[:start], fmt.Errorf(
				"Reading ids of %s: %s", path, err,
			)
		}
		for i := range out { out[i].ID = ids[i] }
	default:
		panic(":3")
	}

	return gh, ps, nil
}

// ReadGadget reads every file of a Gadget-2 snapshot. Particles are returned
// in file order, which defines the indices used by group files.
func ReadGadget(
	paths []string, con *SnapshotConfig,
) ([]phasefind.Particle, phasefind.Params, error) {
	if len(paths) == 0 {
		return nil, phasefind.Params{}, fmt.Errorf("No Gadget-2 files given.")
	}

	var (
		ps []phasefind.Particle
		params phasefind.Params
	)
	for i, path := range paths {
		gh, next, err := ReadGadgetParticlesAt(path, con, ps)
		if err != nil { return nil, params, err }
		ps = next

		p := gh.Params(con)
		if i == 0 {
			params = p
		} else if p.BoxSize != params.BoxSize || p.Scale != params.Scale ||
			p.ParticleMass != params.ParticleMass {
			return nil, params, fmt.Errorf(
				"Header of %s does not match header of %s.", path, paths[0],
			)
		}
	}

	if params.TotalParticles == 0 { params.TotalParticles = int64(len(ps)) }
	if err := params.CheckInit(); err != nil { return nil, params, err }
	return ps, params, nil
}

func wrapPosition(x, box float64) float64 {
	if box <= 0 { return x }
	if x < 0 {
		return x + box
	} else if x >= box {
		return x - box
	}
	return x
}

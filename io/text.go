package io

import (
	"fmt"
	"sort"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/phasefind"
)

const (
	idCol, xCol, yCol, zCol, vxCol, vyCol, vzCol = 0, 1, 2, 3, 4, 5, 6
	indexCol, groupCol = 0, 1
)

// ReadText reads particles from whitespace-separated text files with the
// columns id x y z vx vy vz. Lengths are multiplied by con.LengthUnit and
// velocities are taken to be peculiar km/s. Ids are read as floating point
// values and so are exact only below 2^53.
func ReadText(
	paths []string, con *SnapshotConfig,
) ([]phasefind.Particle, phasefind.Params, error) {
	params, err := con.TextParams()
	if err != nil { return nil, params, err }

	ps := []phasefind.Particle{}
	colIdxs := []int{ idCol, xCol, yCol, zCol, vxCol, vyCol, vzCol }
	for _, path := range paths {
		cols, err := table.ReadTable(path, colIdxs, nil)
		if err != nil { return nil, params, err }

		ids := cols[0]
		for i := range ids {
			if ids[i] < 0 || ids[i] != float64(uint64(ids[i])) {
				return nil, params, fmt.Errorf(
					"Line %d of %s has the invalid particle id %g.",
					i + 1, path, ids[i],
				)
			}
			p := phasefind.Particle{ ID: uint64(ids[i]) }
			for k := 0; k < 3; k++ {
				p.X[k] = wrapPosition(
					cols[1+k][i] * con.LengthUnit, params.BoxSize,
				)
				p.V[k] = cols[4+k][i]
			}
			ps = append(ps, p)
		}
	}

	params.TotalParticles = int64(len(ps))
	return ps, params, nil
}

// ReadGroups reads a friends-of-friends membership file whose lines hold a
// particle index followed by a group id. Particles with negative group ids
// belong to no group. Groups are returned in increasing order of group id
// and list their members in file order.
func ReadGroups(path string) ([]phasefind.Group, error) {
	cols, err := table.ReadTable(path, []int{ indexCol, groupCol }, nil)
	if err != nil { return nil, err }

	idxs, gids := cols[0], cols[1]
	members := map[int64][]int{}
	for i := range idxs {
		if idxs[i] < 0 || idxs[i] != float64(int(idxs[i])) {
			return nil, fmt.Errorf(
				"Line %d of %s has the invalid particle index %g.",
				i + 1, path, idxs[i],
			)
		}
		gid := int64(gids[i])
		if gid < 0 { continue }
		members[gid] = append(members[gid], int(idxs[i]))
	}

	order := make([]int64, 0, len(members))
	for gid := range members { order = append(order, gid) }
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	groups := make([]phasefind.Group, len(order))
	for i, gid := range order { groups[i].Index = members[gid] }
	return groups, nil
}

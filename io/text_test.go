package io

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/phasefind"
)

func writeText(t *testing.T, dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	text := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func textSnapshot() *SnapshotConfig {
	con := &DefaultRunWrapper().Snapshot
	con.Format = TextFormat
	con.BoxSize, con.Scale, con.ParticleMass = 10, 1, 1e9
	con.OmegaM, con.OmegaL, con.H100 = 0.3, 0.7, 0.7
	return con
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	a := writeText(t, dir, "a.txt",
		"4 1 2 3 10 20 30",
		"9 9.5 10.5 -0.5 0 0 -1",
	)
	b := writeText(t, dir, "b.txt", "2 0 0 0 1 1 1")

	ps, p, err := ReadText([]string{a, b}, textSnapshot())
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, int64(3), p.TotalParticles)
	assert.Equal(t, 10.0, p.BoxSize)

	assert.Equal(t, phasefind.Particle{
		ID: 4, X: [3]float64{1, 2, 3}, V: [3]float64{10, 20, 30},
	}, ps[0])
	assert.Equal(t, [3]float64{9.5, 0.5, 9.5}, ps[1].X)
	assert.Equal(t, uint64(2), ps[2].ID)
}

func TestReadTextErrors(t *testing.T) {
	dir := t.TempDir()
	bad := writeText(t, dir, "bad.txt", "1.5 0 0 0 0 0 0")
	_, _, err := ReadText([]string{bad}, textSnapshot())
	assert.Error(t, err)

	good := writeText(t, dir, "good.txt", "1 0 0 0 0 0 0")
	con := textSnapshot()
	con.ParticleMass = 0
	_, _, err = ReadText([]string{good}, con)
	assert.Error(t, err)
}

func TestReadGroups(t *testing.T) {
	dir := t.TempDir()
	path := writeText(t, dir, "groups.txt",
		"0 7", "1 3", "2 7", "3 -1", "4 3", "5 3", "6 12",
	)
	gs, err := ReadGroups(path)
	require.NoError(t, err)
	require.Len(t, gs, 3)
	assert.Equal(t, []int{1, 4, 5}, gs[0].Index)
	assert.Equal(t, []int{0, 2}, gs[1].Index)
	assert.Equal(t, []int{6}, gs[2].Index)

	bad := writeText(t, dir, "bad.txt", "-1 2")
	_, err = ReadGroups(bad)
	assert.Error(t, err)
}

func TestWriteCatalog(t *testing.T) {
	ps := make([]phasefind.Particle, 30)
	g := phasefind.Group{ Index: make([]int, len(ps)) }
	for i := range ps {
		ps[i] = phasefind.Particle{ ID: uint64(i),
			X: [3]float64{5 + float64(i % 3) / 64, 5 + float64(i / 3) / 64, 5} }
		g.Index[i] = i
	}
	params, err := textSnapshot().TextParams()
	require.NoError(t, err)

	f, err := phasefind.NewFinder(phasefind.DefaultConfig(), params, ps)
	require.NoError(t, err)
	cat, err := f.Run([]phasefind.Group{g})
	require.NoError(t, err)
	require.Equal(t, 1, cat.Len())

	out := &strings.Builder{}
	require.NoError(t, WriteCatalog(out, cat))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "# RunID " + cat.RunID))
	assert.Contains(t, lines[1], "MVir RVir")
	fields := strings.Fields(lines[2])
	assert.Equal(t, []string{"0", "-1", "30"}, fields[:3])
	assert.Len(t, fields, 13 + 2*len(cat.MassDefs))
	assert.Equal(t, "0", fields[12])

	members := &strings.Builder{}
	require.NoError(t, WriteMembers(members, cat))
	assert.Equal(t, 31, len(strings.Fields(members.String())))
}

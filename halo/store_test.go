package halo

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/phasefind/cosmo"
)

func shell(id0 int, center [3]float64, rs []float64) []Copy {
	cs := make([]Copy, len(rs))
	for i, r := range rs {
		cs[i].ID = uint64(id0 + i)
		cs[i].X = center
		cs[i].X[i % 3] += r
	}
	return cs
}

func TestAddNewHalo(t *testing.T) {
	s := NewStore(100, 0)
	for i := 0; i < 100; i++ {
		assert.Equal(t, i, s.AddNewHalo())
	}
	assert.Equal(t, 100, s.Len())
	assert.Equal(t, -1, s.Halos[57].Parent)
	assert.Equal(t, Growing, s.Halos[57].State())
	require.NoError(t, s.Check())

	s.FreeHalos()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.Arena.Slots())
}

func TestMaxHaloRadius(t *testing.T) {
	s := NewStore(100, 0)
	i := s.AddNewHalo()
	assert.Equal(t, 0.0, s.MaxHaloRadius(i))

	s.Halos[i].X = [3]float64{99, 50, 50}
	cs := shell(0, [3]float64{99, 50, 50}, []float64{0.5, 1, 0.25})
	cs[0].X[0] = 0.5 // wraps around the box edge: distance 1.5
	require.NoError(t, s.SetMembers(i, cs))

	assert.InDelta(t, 1.5, s.MaxHaloRadius(i), 1e-12)
	assert.Equal(t, 3, s.Halos[i].N)
}

func TestEnclosedMass(t *testing.T) {
	vol := func(r float64) float64 { return 4*math.Pi/3*r*r*r }

	table := []struct {
		rs []float64
		rho, m, r float64
	}{
		{[]float64{0}, 1e10, 1, 0},
		{[]float64{1, 2}, 0, 2, 2},
		{[]float64{1, 2, 3}, 1 / vol(1) + 1e-9, 0, 0},
		{[]float64{1, 2, 3}, 2 / vol(2), 2, 2},
		{[]float64{1, 10}, 1 / vol(2), 1, 2},
		{[]float64{0, 0, 100}, 1, 2, math.Cbrt(2 / vol(1))},
	}

	for i, test := range table {
		m, r := EnclosedMass(test.rs, 1, test.rho)
		if m != test.m || math.Abs(r - test.r) > 1e-9 {
			t.Errorf(
				"%d) EnclosedMass(%v, 1, %g) = %g, %g, expected %g, %g",
				i + 1, test.rs, test.rho, m, r, test.m, test.r,
			)
		}
	}
}

func TestPropertyMassMonotonicity(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("looser thresholds never lose mass", prop.ForAll(
		func(raw []float64, lo, hi float64) bool {
			if lo > hi { lo, hi = hi, lo }
			rs := append([]float64{}, raw...)
			for i := 1; i < len(rs); i++ {
				rs[i] += rs[i-1]
			}
			mLoose, _ := EnclosedMass(rs, 1, lo)
			mStrict, _ := EnclosedMass(rs, 1, hi)
			return mLoose >= mStrict
		},
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}

func massStore(t *testing.T) *Store {
	s := NewStore(0, 0)
	for j := 0; j < 3; j++ {
		i := s.AddNewHalo()
		rs := make([]float64, 50 * (j + 1))
		for k := range rs { rs[k] = 0.01 * float64(k) }
		require.NoError(t, s.SetMembers(i, shell(1000*j, [3]float64{}, rs)))
	}
	s.Halos[1].Delete()
	return s
}

func TestCalcMassDefinition(t *testing.T) {
	s := massStore(t)
	p := &MassParams{
		Cosmo: cosmo.Cosmology{ OmegaM: 0.27, OmegaL: 0.73, Scale: 1 },
		ParticleMass: 1e10,
		Workers: 2,
	}
	defs := []cosmo.MassDef{ cosmo.M200m, cosmo.MVir, cosmo.M200c, cosmo.M500c }
	s.CalcMassDefinition(defs, p)

	assert.Nil(t, s.Halos[1].Ms, "deleted halos are untouched")
	for _, i := range []int{ 0, 2 } {
		h := &s.Halos[i]
		require.Len(t, h.Ms, len(defs))
		for j := 1; j < len(defs); j++ {
			assert.GreaterOrEqual(t, h.Ms[j-1], h.Ms[j])
		}
		assert.Greater(t, h.Ms[0], 0.0)
		assert.Greater(t, h.Vmax, 0.0)
		assert.Greater(t, h.RVmax, 0.0)
		assert.Equal(t, 0.0, h.Vrms)
	}
}

func TestCalcMassDefinitionIdempotent(t *testing.T) {
	s := massStore(t)
	p := &MassParams{
		Cosmo: cosmo.Cosmology{ OmegaM: 0.3, OmegaL: 0.7, Scale: 0.5 },
		ParticleMass: 1e9,
	}
	defs := cosmo.MassDefs()

	s.CalcMassDefinition(defs, p)
	first := []Halo{}
	for _, h := range s.Halos {
		h.Ms = append([]float64(nil), h.Ms...)
		h.Rs = append([]float64(nil), h.Rs...)
		first = append(first, h)
	}
	s.CalcMassDefinition(defs, p)

	for i := range s.Halos {
		assert.Equal(t, first[i].Ms, s.Halos[i].Ms)
		assert.Equal(t, first[i].Rs, s.Halos[i].Rs)
		assert.Equal(t, first[i].Vmax, s.Halos[i].Vmax)
	}
}

func TestDescendants(t *testing.T) {
	s := NewStore(0, 0)
	// 0 <- 1 <- 2, 0 <- 3 and 4 on its own, with 1 deleted.
	parents := []int{ -1, 0, 1, 0, -1 }
	for _, p := range parents {
		i := s.AddNewHalo()
		s.Halos[i].Parent = p
	}
	s.Halos[1].Delete()

	expected := [][]int{ {2, 3}, {2}, nil, nil, nil }
	assert.Equal(t, expected, s.Descendants())
}

func TestCalcMassDefinitionIncludesSubhalos(t *testing.T) {
	p := &MassParams{
		Cosmo: cosmo.Cosmology{ OmegaM: 0.27, OmegaL: 0.73, Scale: 1 },
		ParticleMass: 1e10,
	}
	defs := []cosmo.MassDef{ cosmo.M200m, cosmo.MVir, cosmo.M200c }

	table := []struct {
		linked bool
	}{
		{false}, {true},
	}
	hosts := make([]Halo, len(table))
	for n, test := range table {
		s := NewStore(0, 0)
		host, sub := s.AddNewHalo(), s.AddNewHalo()
		rs := make([]float64, 50)
		for k := range rs { rs[k] = 0.01 * float64(k + 1) }
		require.NoError(t, s.SetMembers(host, shell(0, [3]float64{}, rs)))
		require.NoError(t, s.SetMembers(
			sub, shell(1000, [3]float64{}, make([]float64, 30)),
		))
		if test.linked { s.Halos[sub].Parent = host }

		s.CalcMassDefinition(defs, p)
		assert.Equal(t, 30.0 * p.ParticleMass, s.Halos[sub].Ms[0], "%d)", n)
		assert.Equal(t, 50, s.Halos[host].N, "%d)", n)
		hosts[n] = s.Halos[host]
	}

	for j := range defs {
		assert.GreaterOrEqual(t, hosts[1].Ms[j],
			hosts[0].Ms[j] + 30 * p.ParticleMass, "mass definition %d", j)
	}
	assert.Greater(t, hosts[1].Vmax, hosts[0].Vmax)
	assert.Equal(t, hosts[0].Vrms, hosts[1].Vrms)
}

func TestCompact(t *testing.T) {
	s := NewStore(0, 0)
	// 0 <- 1 <- 2 <- 3, and 4 on its own.
	for i := 0; i < 5; i++ {
		j := s.AddNewHalo()
		require.NoError(t, s.SetMembers(j, copies(10*j, j+1)))
		if j > 0 && j < 4 { s.Halos[j].Parent = j - 1 }
	}
	s.Halos[1].Delete()
	s.Halos[2].Delete()

	s.Compact()
	require.NoError(t, s.Check())
	require.Equal(t, 3, s.Len())
	for i := range s.Halos {
		assert.NotEqual(t, PendingDelete, s.Halos[i].State())
	}

	assert.Equal(t, -1, s.Halos[0].Parent)
	assert.Equal(t, 0, s.Halos[1].Parent, "grandchild reattached to root")
	assert.Equal(t, -1, s.Halos[2].Parent)
	assert.Equal(t, []uint64{30, 31, 32, 33}, ids(s.Members(1)))
	assert.Equal(t, s.Arena.Occupied(), 1 + 4 + 5)
}

func TestMerge(t *testing.T) {
	a, b := NewStore(0, 0), NewStore(0, 0)
	for _, s := range []*Store{ a, b } {
		p := s.AddNewHalo()
		c := s.AddNewHalo()
		s.Halos[c].Parent = p
		require.NoError(t, s.SetMembers(p, copies(0, 3)))
		require.NoError(t, s.SetMembers(c, copies(3, 2)))
	}

	require.NoError(t, a.Merge(b))
	require.NoError(t, a.Check())
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, 2, a.Halos[3].Parent)
	assert.Equal(t, int64(3), a.Halos[3].ID)
	assert.Equal(t, []uint64{3, 4}, ids(a.Members(3)))
}

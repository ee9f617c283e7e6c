/*package rand provides small, seedable pseudo-random number generators. The
generators are deliberately simple so that runs with a fixed seed reproduce
bit-for-bit across machines and Go releases.
*/
package rand

import (
	"math"
	"time"
)

type GeneratorType int

const (
	Tausworthe GeneratorType = iota
	Xorshift
)

func (t GeneratorType) String() string {
	switch t {
	case Tausworthe:
		return "Tausworthe"
	case Xorshift:
		return "Xorshift"
	}
	panic(":3")
}

// Generator is a stream of uniform deviates. A Generator is not safe for
// concurrent use; give each goroutine its own.
type Generator struct {
	t GeneratorType
	s1, s2, s3 uint32
	x uint64
}

// NewSeed returns a Generator of the given type seeded with seed.
func NewSeed(t GeneratorType, seed uint64) *Generator {
	gen := &Generator{t: t}
	gen.Seed(seed)
	return gen
}

// NewTimeSeed returns a Generator seeded with the current time.
func NewTimeSeed(t GeneratorType) *Generator {
	return NewSeed(t, uint64(time.Now().UnixNano()))
}

// splitMix expands a single seed into well-mixed state words.
func splitMix(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Seed resets the generator's state.
func (gen *Generator) Seed(seed uint64) {
	sm := seed
	switch gen.t {
	case Tausworthe:
		// taus88 requires s1 > 1, s2 > 7, s3 > 15.
		gen.s1 = uint32(splitMix(&sm)) | 2
		gen.s2 = uint32(splitMix(&sm)) | 8
		gen.s3 = uint32(splitMix(&sm)) | 16
	case Xorshift:
		gen.x = splitMix(&sm)
		if gen.x == 0 { gen.x = 0x2545f4914f6cdd1d }
	default:
		panic(":3")
	}
}

// Uint32 returns the next 32 random bits.
func (gen *Generator) Uint32() uint32 {
	switch gen.t {
	case Tausworthe:
		b := ((gen.s1 << 13) ^ gen.s1) >> 19
		gen.s1 = ((gen.s1 & 4294967294) << 12) ^ b
		b = ((gen.s2 << 2) ^ gen.s2) >> 25
		gen.s2 = ((gen.s2 & 4294967288) << 4) ^ b
		b = ((gen.s3 << 3) ^ gen.s3) >> 11
		gen.s3 = ((gen.s3 & 4294967280) << 17) ^ b
		return gen.s1 ^ gen.s2 ^ gen.s3
	case Xorshift:
		gen.x ^= gen.x << 13
		gen.x ^= gen.x >> 7
		gen.x ^= gen.x << 17
		return uint32(gen.x >> 32)
	}
	panic(":3")
}

// Unit returns a uniform deviate in [0, 1).
func (gen *Generator) Unit() float64 {
	hi := uint64(gen.Uint32()) >> 5
	lo := uint64(gen.Uint32()) >> 6
	return float64(hi<<26 | lo) / (1 << 53)
}

// Uniform returns a uniform deviate in [low, high).
func (gen *Generator) Uniform(low, high float64) float64 {
	return low + (high - low) * gen.Unit()
}

// UniformAt fills target with uniform deviates in [low, high).
func (gen *Generator) UniformAt(low, high float64, target []float64) {
	for i := range target { target[i] = gen.Uniform(low, high) }
}

// Gaussian returns a deviate from the unit normal distribution, using the
// Box-Muller transform.
func (gen *Generator) Gaussian() float64 {
	u := 1 - gen.Unit()
	v := gen.Unit()
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}

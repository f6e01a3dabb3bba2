package active

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

// Per-particle randomness is counter-based: every draw site builds a
// fresh generator keyed by (seed, tag, timestep), so identical keys
// reproduce identical output regardless of run, partition, or the
// order particles are processed in. Keying by tag rather than local
// index keeps the stream stable across spatial sorting.

// splitmix64 is the reference finalizer from Steele et al., used to
// spread the key bits before seeding the generator.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// mix folds a sequence of key words into one seed word.
func mix(vals ...uint64) uint64 {
	h := uint64(0x9E3779B97F4A7C15)
	for _, v := range vals {
		h = splitmix64(h ^ v)
	}
	return h
}

// newStream returns the deterministic generator for one particle at
// one timestep. No state is shared between streams.
func newStream(seed uint64, tag uint32, step uint64) *rand.Rand {
	lo := mix(seed, uint64(tag), step)
	hi := mix(step, uint64(tag)<<32, ^seed)
	return rand.New(rand.NewPCG(lo, hi))
}

// unitOnSphere draws a uniformly distributed unit vector.
func unitOnSphere(r *rand.Rand) mgl64.Vec3 {
	z := 2*r.Float64() - 1
	phi := 2 * math.Pi * r.Float64()
	s := math.Sqrt(1 - z*z)
	return mgl64.Vec3{s * math.Cos(phi), s * math.Sin(phi), z}
}

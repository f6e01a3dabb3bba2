package active

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Store holds the active force and torque state for every particle,
// indexed by tag. Direction vectors are unit length (or zero for a
// zero-magnitude channel); magnitudes are fixed at initialization and
// never change afterwards — only directions rotate.
type Store struct {
	fVec []mgl64.Vec3
	fMag []float64
	tVec []mgl64.Vec3
	tMag []float64
	seen []bool
}

// newStore allocates empty state sized to the global particle count.
func newStore(nGlobal int) *Store {
	return &Store{
		fVec: make([]mgl64.Vec3, nGlobal),
		fMag: make([]float64, nGlobal),
		tVec: make([]mgl64.Vec3, nGlobal),
		tMag: make([]float64, nGlobal),
		seen: make([]bool, nGlobal),
	}
}

// splitDir decomposes a raw active vector into a unit direction and a
// magnitude. A zero vector yields a zero direction with zero magnitude.
func splitDir(v mgl64.Vec3) (mgl64.Vec3, float64) {
	m := v.Len()
	if m == 0 {
		return mgl64.Vec3{}, 0
	}
	return v.Mul(1 / m), m
}

// reinitialize resizes the store to nGlobal and repacks state for the
// new group tag list. Tags already present keep their direction and
// magnitude bit-for-bit; tags never seen before take their value from
// init (raw vectors, one per group member, aligned with tags).
func (s *Store) reinitialize(nGlobal int, tags []uint32, initF, initT []mgl64.Vec3) error {
	if initF != nil && len(initF) != len(tags) {
		return fmt.Errorf("active: initial force list has %d entries for group of %d", len(initF), len(tags))
	}
	if initT != nil && len(initT) != len(tags) {
		return fmt.Errorf("active: initial torque list has %d entries for group of %d", len(initT), len(tags))
	}

	next := newStore(nGlobal)
	for i, tag := range tags {
		if int(tag) >= nGlobal {
			return fmt.Errorf("active: tag %d out of range (N=%d)", tag, nGlobal)
		}
		if int(tag) < len(s.seen) && s.seen[tag] {
			next.fVec[tag] = s.fVec[tag]
			next.fMag[tag] = s.fMag[tag]
			next.tVec[tag] = s.tVec[tag]
			next.tMag[tag] = s.tMag[tag]
		} else {
			if initF == nil {
				return fmt.Errorf("active: tag %d has no prior state and no initial force list was given", tag)
			}
			next.fVec[tag], next.fMag[tag] = splitDir(initF[i])
			if initT != nil {
				next.tVec[tag], next.tMag[tag] = splitDir(initT[i])
			}
		}
		next.seen[tag] = true
	}

	*s = *next
	return nil
}

// ForceDir returns the stored unit force direction for tag.
func (s *Store) ForceDir(tag uint32) mgl64.Vec3 { return s.fVec[tag] }

// ForceMag returns the fixed force magnitude for tag.
func (s *Store) ForceMag(tag uint32) float64 { return s.fMag[tag] }

// TorqueDir returns the stored unit torque direction for tag.
func (s *Store) TorqueDir(tag uint32) mgl64.Vec3 { return s.tVec[tag] }

// TorqueMag returns the fixed torque magnitude for tag.
func (s *Store) TorqueMag(tag uint32) float64 { return s.tMag[tag] }

// setDirs writes rotated directions back. The only callers are the
// alignment/diffusion and constraint passes; magnitudes are not
// touched.
func (s *Store) setDirs(tag uint32, f, t mgl64.Vec3) {
	s.fVec[tag] = f
	s.tVec[tag] = t
}

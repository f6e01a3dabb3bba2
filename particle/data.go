// Package particle holds the particle working arrays and the tag
// indirection that keeps per-particle identity stable across spatial
// sorting.
//
// Every particle carries a permanent tag. The working arrays (positions,
// orientations, forces) are addressed by a volatile local index that
// changes whenever the storage is re-sorted; RTag maps a tag back to the
// current local index in O(1). State keyed by tag therefore survives any
// reordering of the working arrays.
package particle

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// NotLocal marks a tag with no local index, e.g. a particle owned by
// another partition in a distributed run.
const NotLocal = ^uint32(0)

// Data holds the particle working arrays, addressed by local index.
type Data struct {
	box Box

	// Per-particle state, indexed by local index.
	Pos    []mgl64.Vec3
	Vel    []mgl64.Vec3
	Orient []mgl64.Quat
	Force  []mgl64.Vec3
	Torque []mgl64.Vec3

	// tags[idx] is the tag of the particle at local index idx.
	// rtag[tag] is the local index of the particle with that tag,
	// or NotLocal.
	tags []uint32
	rtag []uint32
}

// NewData creates particle storage for n particles with identity
// tag ordering (tag i at local index i).
func NewData(n int, box Box) (*Data, error) {
	if n <= 0 {
		return nil, fmt.Errorf("particle: count must be positive, got %d", n)
	}
	d := &Data{
		box:    box,
		Pos:    make([]mgl64.Vec3, n),
		Vel:    make([]mgl64.Vec3, n),
		Orient: make([]mgl64.Quat, n),
		Force:  make([]mgl64.Vec3, n),
		Torque: make([]mgl64.Vec3, n),
		tags:   make([]uint32, n),
		rtag:   make([]uint32, n),
	}
	for i := 0; i < n; i++ {
		d.tags[i] = uint32(i)
		d.rtag[i] = uint32(i)
		d.Orient[i] = mgl64.QuatIdent()
	}
	return d, nil
}

// N returns the number of locally stored particles.
func (d *Data) N() int { return len(d.tags) }

// NGlobal returns the global particle count. Equal to N for
// single-partition runs.
func (d *Data) NGlobal() int { return len(d.rtag) }

// Box returns the simulation box.
func (d *Data) Box() Box { return d.box }

// Dimensions returns the dimensionality of the simulation (2 or 3).
func (d *Data) Dimensions() int { return d.box.Dimensions }

// Tag returns the tag of the particle at local index idx.
func (d *Data) Tag(idx int) uint32 { return d.tags[idx] }

// Index returns the current local index for tag, or NotLocal if the
// particle is not stored locally.
func (d *Data) Index(tag uint32) uint32 {
	if int(tag) >= len(d.rtag) {
		return NotLocal
	}
	return d.rtag[tag]
}

// RTags exposes the tag -> local index map, read-only by convention.
func (d *Data) RTags() []uint32 { return d.rtag }

// RemoveLocal drops the particle with the given tag from the local
// working arrays, as happens when a particle migrates to another
// partition. The tag keeps its slot in the rtag map, marked NotLocal,
// so tag-keyed state elsewhere stays valid.
func (d *Data) RemoveLocal(tag uint32) error {
	idx := d.Index(tag)
	if idx == NotLocal {
		return fmt.Errorf("particle: tag %d is not local", tag)
	}
	last := d.N() - 1
	i := int(idx)

	d.Pos[i] = d.Pos[last]
	d.Vel[i] = d.Vel[last]
	d.Orient[i] = d.Orient[last]
	d.Force[i] = d.Force[last]
	d.Torque[i] = d.Torque[last]
	d.tags[i] = d.tags[last]

	d.Pos = d.Pos[:last]
	d.Vel = d.Vel[:last]
	d.Orient = d.Orient[:last]
	d.Force = d.Force[:last]
	d.Torque = d.Torque[:last]
	d.tags = d.tags[:last]

	if i < last {
		d.rtag[d.tags[i]] = uint32(i)
	}
	d.rtag[tag] = NotLocal
	return nil
}

// ApplyPermutation reorders the working arrays so that the particle
// previously at local index perm[i] lands at local index i, then
// rebuilds the tag map. Tag-keyed state is untouched.
func (d *Data) ApplyPermutation(perm []int) error {
	n := d.N()
	if len(perm) != n {
		return fmt.Errorf("particle: permutation length %d != %d", len(perm), n)
	}

	pos := make([]mgl64.Vec3, n)
	vel := make([]mgl64.Vec3, n)
	orient := make([]mgl64.Quat, n)
	force := make([]mgl64.Vec3, n)
	torque := make([]mgl64.Vec3, n)
	tags := make([]uint32, n)

	for i, src := range perm {
		pos[i] = d.Pos[src]
		vel[i] = d.Vel[src]
		orient[i] = d.Orient[src]
		force[i] = d.Force[src]
		torque[i] = d.Torque[src]
		tags[i] = d.tags[src]
	}

	d.Pos, d.Vel, d.Orient, d.Force, d.Torque, d.tags = pos, vel, orient, force, torque, tags

	for i, t := range d.tags {
		d.rtag[t] = uint32(i)
	}
	return nil
}

// SortSpatial reorders particles into cell order for memory locality,
// the same role the upstream sorter plays in a full simulation. The
// tag map is rebuilt; all tag-keyed state remains valid.
func (d *Data) SortSpatial(cellSize float64) error {
	if cellSize <= 0 {
		return fmt.Errorf("particle: cell size must be positive, got %g", cellSize)
	}
	n := d.N()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	keys := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = d.cellKey(d.Pos[i], cellSize)
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return keys[perm[a]] < keys[perm[b]]
	})
	return d.ApplyPermutation(perm)
}

// cellKey flattens a position into a cell index for spatial sorting.
func (d *Data) cellKey(p mgl64.Vec3, cellSize float64) int {
	p = d.box.Wrap(p)
	key := 0
	for i := 0; i < d.box.Dimensions; i++ {
		l := d.box.L[i]
		c := int(math.Floor((p[i] + l/2) / cellSize))
		max := int(math.Ceil(l / cellSize))
		if max < 1 {
			max = 1
		}
		if c < 0 {
			c = 0
		} else if c >= max {
			c = max - 1
		}
		key = key*max + c
	}
	return key
}

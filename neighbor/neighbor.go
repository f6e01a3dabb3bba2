// Package neighbor builds per-particle neighbor lists over a periodic
// cell grid. Consumers read the flattened layout: Count[i] neighbors
// for local index i, stored in Flat starting at Head[i].
package neighbor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/devitrification/activematter/particle"
)

// List is a flattened neighbor list, read-only for consumers.
type List struct {
	Count []int // Count[i]: neighbors of local index i
	Head  []int // Head[i]: offset of i's neighbors in Flat
	Flat  []int // neighbor local indices, grouped per particle
}

// CellList is a periodic cell grid used to rebuild a List. Cells hold
// local indices and are reused across rebuilds to avoid allocations.
type CellList struct {
	box      particle.Box
	cellSize float64
	dims     [3]int // cells per axis (z = 1 in 2D)
	cells    [][]int

	rcut   float64
	rcutSq float64
}

// NewCellList creates a cell list for the given box and cutoff. The
// cell size never drops below the cutoff so a single-shell sweep finds
// every neighbor.
func NewCellList(box particle.Box, rcut float64) (*CellList, error) {
	if rcut <= 0 {
		return nil, fmt.Errorf("neighbor: cutoff must be positive, got %g", rcut)
	}
	c := &CellList{box: box, cellSize: rcut, rcut: rcut, rcutSq: rcut * rcut}

	total := 1
	for i := 0; i < 3; i++ {
		c.dims[i] = 1
		if i < box.Dimensions {
			n := int(math.Floor(box.L[i] / rcut))
			if n < 1 {
				n = 1
			}
			c.dims[i] = n
		}
		total *= c.dims[i]
	}
	c.cells = make([][]int, total)
	for i := range c.cells {
		c.cells[i] = make([]int, 0, 8)
	}
	return c, nil
}

// Cutoff returns the neighbor cutoff distance the list is built with.
func (c *CellList) Cutoff() float64 { return c.rcut }

// Build rebuilds dst from the current particle positions. dst slices
// are reused when large enough.
func (c *CellList) Build(dst *List, pd *particle.Data) {
	n := pd.N()

	for i := range c.cells {
		c.cells[i] = c.cells[i][:0]
	}
	for i := 0; i < n; i++ {
		idx := c.cellIndex(pd.Pos[i])
		c.cells[idx] = append(c.cells[idx], i)
	}

	if cap(dst.Count) < n {
		dst.Count = make([]int, n)
		dst.Head = make([]int, n)
	}
	dst.Count = dst.Count[:n]
	dst.Head = dst.Head[:n]
	dst.Flat = dst.Flat[:0]

	box := pd.Box()
	for i := 0; i < n; i++ {
		dst.Head[i] = len(dst.Flat)
		count := 0
		c.forEachShellCell(pd.Pos[i], func(cell []int) {
			for _, j := range cell {
				if j == i {
					continue
				}
				d := box.MinImage(pd.Pos[i], pd.Pos[j])
				if d.Dot(d) <= c.rcutSq {
					dst.Flat = append(dst.Flat, j)
					count++
				}
			}
		})
		dst.Count[i] = count
	}
}

// cellIndex flattens a wrapped position into a cell index.
func (c *CellList) cellIndex(p mgl64.Vec3) int {
	p = c.box.Wrap(p)
	idx := 0
	for i := 0; i < 3; i++ {
		ci := 0
		if i < c.box.Dimensions {
			l := c.box.L[i]
			ci = int(math.Floor((p[i] + l/2) / l * float64(c.dims[i])))
			if ci < 0 {
				ci = 0
			} else if ci >= c.dims[i] {
				ci = c.dims[i] - 1
			}
		}
		idx = idx*c.dims[i] + ci
	}
	return idx
}

// forEachShellCell visits the 3^d cells around p with periodic wrap.
// Cells are deduplicated when an axis has fewer than three cells.
func (c *CellList) forEachShellCell(p mgl64.Vec3, fn func(cell []int)) {
	p = c.box.Wrap(p)
	var center [3]int
	for i := 0; i < 3; i++ {
		center[i] = 0
		if i < c.box.Dimensions {
			l := c.box.L[i]
			ci := int(math.Floor((p[i] + l/2) / l * float64(c.dims[i])))
			if ci < 0 {
				ci = 0
			} else if ci >= c.dims[i] {
				ci = c.dims[i] - 1
			}
			center[i] = ci
		}
	}

	seen := make(map[int]struct{}, 27)
	zRange := 1
	if c.box.Dimensions == 2 {
		zRange = 0
	}
	for dz := -zRange; dz <= zRange; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				cx := mod(center[0]+dx, c.dims[0])
				cy := mod(center[1]+dy, c.dims[1])
				cz := mod(center[2]+dz, c.dims[2])
				idx := (cx*c.dims[1]+cy)*c.dims[2] + cz
				if _, dup := seen[idx]; dup {
					continue
				}
				seen[idx] = struct{}{}
				fn(c.cells[idx])
			}
		}
	}
}

func mod(a, m int) int {
	a %= m
	if a < 0 {
		a += m
	}
	return a
}

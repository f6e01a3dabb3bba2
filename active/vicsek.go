package active

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/devitrification/activematter/neighbor"
	"github.com/devitrification/activematter/parallel"
	"github.com/devitrification/activematter/particle"
)

// VicsekForce extends the active force compute with local alignment:
// each step a particle's direction relaxes toward the coupling-weighted
// average direction of its neighbors before the rotational noise is
// applied.
type VicsekForce struct {
	*Force

	nlist    *neighbor.List
	radiusSq float64
	coupling float64

	// backup snapshots every stored direction (by tag) at the start of
	// a step so neighbor reads see pre-update values regardless of how
	// the group is partitioned across workers.
	backup []mgl64.Vec3
}

// NewVicsekForce creates an alignment-driven active force compute. The
// neighbor list is consumed read-only and must be rebuilt upstream.
func NewVicsekForce(ctx *parallel.Context, pd *particle.Data, group *particle.Group,
	nlist *neighbor.List, radius, coupling float64, p Params) (*VicsekForce, error) {

	if nlist == nil {
		return nil, fmt.Errorf("active: a neighbor list is required for vicsek alignment")
	}
	if radius <= 0 {
		return nil, fmt.Errorf("active: interaction radius must be positive, got %g", radius)
	}

	base, err := NewForce(ctx, pd, group, p)
	if err != nil {
		return nil, err
	}
	return &VicsekForce{
		Force:    base,
		nlist:    nlist,
		radiusSq: radius * radius,
		coupling: coupling,
	}, nil
}

// SetCoupling updates the alignment coupling strength.
func (v *VicsekForce) SetCoupling(c float64) { v.coupling = c }

// Coupling returns the alignment coupling strength.
func (v *VicsekForce) Coupling() float64 { return v.coupling }

// Compute runs the alignment/diffusion pass and then emits forces. The
// alignment term runs every step even with zero noise.
func (v *VicsekForce) Compute(step uint64) {
	if v.computed && v.lastStep == step {
		return
	}
	v.lastStep, v.computed = step, true

	v.RotationalDiffusion(step)
	v.SetForces()
}

// RotationalDiffusion performs the Vicsek update for every group
// member: gather the coupling-weighted neighborhood direction from the
// pre-step snapshot, compose it with the particle's own direction,
// apply the stochastic rotation, and write back. The torque direction
// follows the same rotations exactly. All reads come from the snapshot
// and every member writes only its own tag, so partitions never race.
func (v *VicsekForce) RotationalDiffusion(step uint64) {
	n := v.pd.NGlobal()
	if cap(v.backup) < n {
		v.backup = make([]mgl64.Vec3, n)
	}
	v.backup = v.backup[:n]
	copy(v.backup, v.store.fVec)

	box := v.pd.Box()
	weight := v.coupling * v.dt

	v.ctx.ForEach(v.group.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			tag := v.group.MemberTag(i)
			idx := v.pd.Index(tag)
			if idx == particle.NotLocal {
				continue
			}
			pos := v.pd.Pos[int(idx)]
			own := v.backup[tag]

			sum := own
			inRange := 0
			head := v.nlist.Head[idx]
			for k := 0; k < v.nlist.Count[idx]; k++ {
				j := v.nlist.Flat[head+k]
				d := box.MinImage(pos, v.pd.Pos[j])
				if d.Dot(d) < v.radiusSq {
					sum = sum.Add(v.backup[v.pd.Tag(j)].Mul(weight))
					inRange++
				}
			}

			// Zero neighbors in range: no alignment pull.
			aligned := own
			if inRange > 0 {
				if l := sum.Len(); l > 0 {
					aligned = sum.Mul(1 / l)
				}
			}

			// Rotate the torque direction by the same rotation that
			// carried own onto aligned, keeping their angle fixed.
			tdir := v.store.TorqueDir(tag)
			if inRange > 0 && own.Len() > 0 && tdir.Len() > 0 && aligned != own {
				q := mgl64.QuatBetweenVectors(own, aligned)
				tdir = q.Rotate(tdir)
			}

			stream := newStream(v.seed, tag, step)
			fdir, tnew := v.perturb(stream, aligned, tdir, pos)

			if v.constrained {
				fdir = v.man.Project(fdir, pos)
				tnew = v.man.Project(tnew, pos)
			}
			v.store.setDirs(tag, fdir, tnew)
		}
	})
}

// Package active computes self-propulsion forces and torques for a
// group of particles. Directions live in a tag-indexed store so they
// survive spatial re-sorting of the particle arrays; each step the
// alignment/diffusion pass rotates the stored directions and the
// emitter materializes them into the global force and torque arrays.
package active

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/devitrification/activematter/manifold"
	"github.com/devitrification/activematter/parallel"
	"github.com/devitrification/activematter/particle"
)

// xAxis is the body-frame reference axis used by the orientation link
// modes.
var xAxis = mgl64.Vec3{1, 0, 0}

// Params configures a Force.
type Params struct {
	Seed         uint64
	DT           float64
	RotationDiff float64

	// OrientationLink applies stored vectors in the particle's body
	// frame, rotating them into the box frame by the particle's
	// orientation quaternion at emission time.
	OrientationLink bool
	// OrientationReverseLink overwrites the particle orientation so its
	// body x-axis matches the active force direction. Intended for
	// point-like particles; not recommended for anisotropic ones.
	OrientationReverseLink bool

	// Force and Torque are raw per-member active vectors, one entry per
	// group member in group order. Magnitude is the vector length.
	// Torque may be nil.
	Force  []mgl64.Vec3
	Torque []mgl64.Vec3
}

// Force computes active forces and torques for one particle group.
type Force struct {
	ctx   *parallel.Context
	pd    *particle.Data
	group *particle.Group
	store *Store

	seed         uint64
	dt           float64
	rotationDiff float64

	orientationLink        bool
	orientationReverseLink bool

	man         manifold.Manifold
	constrained bool

	lastStep uint64
	computed bool
}

// NewForce creates an active force compute. The execution context is
// required: without it the per-step kernels cannot run, so a nil ctx is
// a fatal configuration error.
func NewForce(ctx *parallel.Context, pd *particle.Data, group *particle.Group, p Params) (*Force, error) {
	if ctx == nil {
		return nil, fmt.Errorf("active: creating a force compute with no execution context")
	}
	if pd == nil || group == nil {
		return nil, fmt.Errorf("active: particle data and group are required")
	}
	if p.DT <= 0 {
		return nil, fmt.Errorf("active: timestep size must be positive, got %g", p.DT)
	}
	if len(p.Force) != group.Len() {
		return nil, fmt.Errorf("active: initial force list has %d entries for group of %d", len(p.Force), group.Len())
	}
	if p.Torque != nil && len(p.Torque) != group.Len() {
		return nil, fmt.Errorf("active: initial torque list has %d entries for group of %d", len(p.Torque), group.Len())
	}

	f := &Force{
		ctx:                    ctx,
		pd:                     pd,
		group:                  group,
		store:                  newStore(pd.NGlobal()),
		seed:                   p.Seed,
		dt:                     p.DT,
		rotationDiff:           p.RotationDiff,
		orientationLink:        p.OrientationLink,
		orientationReverseLink: p.OrientationReverseLink,
	}
	if err := f.store.reinitialize(pd.NGlobal(), group.Tags(), p.Force, p.Torque); err != nil {
		return nil, err
	}
	return f, nil
}

// Store exposes the tag-indexed active state.
func (f *Force) Store() *Store { return f.store }

// Group returns the active group.
func (f *Force) Group() *particle.Group { return f.group }

// Reinitialize swaps in a new group tag list. State for retained tags
// is carried forward by tag; tags never seen before take their values
// from the initial lists (group order, may be nil if every tag was
// seen before).
func (f *Force) Reinitialize(group *particle.Group, initF, initT []mgl64.Vec3) error {
	if group == nil {
		return fmt.Errorf("active: group is required")
	}
	if err := f.store.reinitialize(f.pd.NGlobal(), group.Tags(), initF, initT); err != nil {
		return err
	}
	f.group = group
	return nil
}

// AttachManifold constrains active directions to the surface.
func (f *Force) AttachManifold(m manifold.Manifold) {
	f.man = m
	f.constrained = true
}

// DetachManifold removes the constraint.
func (f *Force) DetachManifold() {
	f.man = manifold.Manifold{}
	f.constrained = false
}

// Constrained reports whether a manifold is attached.
func (f *Force) Constrained() bool { return f.constrained }

// SetRotationDiff updates the rotational diffusion constant.
func (f *Force) SetRotationDiff(d float64) { f.rotationDiff = d }

// RotationDiff returns the rotational diffusion constant.
func (f *Force) RotationDiff() float64 { return f.rotationDiff }

// Compute is the standard per-step force-contribution entry point.
// After it returns, the global force/torque arrays carry this
// subsystem's contribution for the step.
func (f *Force) Compute(step uint64) {
	if f.computed && f.lastStep == step {
		return
	}
	f.lastStep, f.computed = step, true

	if f.rotationDiff != 0 {
		f.RotationalDiffusion(step)
	}
	f.SetForces()
}

// SetForces writes magnitude·direction into the global force and torque
// arrays for every group member, overwriting any previous contribution
// there. Particles outside the group are untouched. When a manifold is
// attached the stored direction is re-projected at the particle's
// current position first, since positions may have moved since the
// diffusion pass.
func (f *Force) SetForces() {
	f.ctx.ForEach(f.group.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			tag := f.group.MemberTag(i)
			idx := f.pd.Index(tag)
			if idx == particle.NotLocal {
				continue
			}

			dir := f.store.ForceDir(tag)
			if f.constrained {
				dir = f.man.Project(dir, f.pd.Pos[idx])
				f.store.setDirs(tag, dir, f.store.TorqueDir(tag))
			}

			fi := dir.Mul(f.store.ForceMag(tag))
			ti := f.store.TorqueDir(tag).Mul(f.store.TorqueMag(tag))

			if f.orientationLink {
				q := f.pd.Orient[idx]
				fi = q.Rotate(fi)
				ti = q.Rotate(ti)
			}
			if f.orientationReverseLink && dir.Len() > 0 {
				f.pd.Orient[idx] = mgl64.QuatBetweenVectors(xAxis, dir)
			}

			f.pd.Force[idx] = fi
			f.pd.Torque[idx] = ti
		}
	})
}

// SetConstraint projects the stored force directions onto the tangent
// plane at each particle's current position. No neighbors are read and
// no randomness is drawn; the torque channel is left alone.
func (f *Force) SetConstraint() {
	if !f.constrained {
		return
	}
	f.ctx.ForEach(f.group.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			tag := f.group.MemberTag(i)
			idx := f.pd.Index(tag)
			if idx == particle.NotLocal {
				continue
			}
			dir := f.man.Project(f.store.ForceDir(tag), f.pd.Pos[idx])
			f.store.setDirs(tag, dir, f.store.TorqueDir(tag))
		}
	})
}

// RotationalDiffusion applies one step of rotational noise to every
// group member. The torque direction receives the identical rotation,
// so the angle between force and torque never changes.
func (f *Force) RotationalDiffusion(step uint64) {
	f.ctx.ForEach(f.group.Len(), func(start, end int) {
		for i := start; i < end; i++ {
			tag := f.group.MemberTag(i)
			idx := f.pd.Index(tag)
			if idx == particle.NotLocal {
				continue
			}

			stream := newStream(f.seed, tag, step)
			fdir := f.store.ForceDir(tag)
			tdir := f.store.TorqueDir(tag)
			fdir, tdir = f.perturb(stream, fdir, tdir, f.pd.Pos[idx])

			if f.constrained {
				fdir = f.man.Project(fdir, f.pd.Pos[idx])
				tdir = f.man.Project(tdir, f.pd.Pos[idx])
			}
			f.store.setDirs(tag, fdir, tdir)
		}
	})
}

// rotationConst is the per-step angular noise scale.
func (f *Force) rotationConst() float64 {
	return math.Sqrt(2 * f.rotationDiff * f.dt)
}

// perturb rotates fdir by the stochastic perturbation for this stream
// and applies the same rotation to tdir. In 2D the rotation stays in
// the simulation plane; in 3D it is taken about an axis orthogonal to
// the current direction (the surface normal when constrained, so the
// rotation stays in the tangent plane).
func (f *Force) perturb(stream *rand.Rand, fdir, tdir, pos mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	if fdir.Len() == 0 {
		return fdir, tdir
	}

	var delta float64
	var axis mgl64.Vec3
	switch {
	case f.pd.Dimensions() == 2:
		delta = stream.NormFloat64() * f.rotationConst()
		axis = mgl64.Vec3{0, 0, 1}
	case f.constrained:
		axis = f.man.Normal(pos)
		delta = stream.NormFloat64() * f.rotationConst()
	default:
		u := unitOnSphere(stream)
		axis = fdir.Cross(u)
		al := axis.Len()
		if al < 1e-12 {
			// Drawn vector is (anti)parallel to the direction; leave
			// both channels unchanged for this step.
			return fdir, tdir
		}
		axis = axis.Mul(1 / al)
		delta = stream.NormFloat64() * f.rotationConst()
	}
	if delta == 0 {
		return fdir, tdir
	}

	q := mgl64.QuatRotate(delta, axis)
	return q.Rotate(fdir), q.Rotate(tdir)
}

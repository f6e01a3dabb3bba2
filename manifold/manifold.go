// Package manifold evaluates implicit constraint surfaces. A Manifold
// is a closed tagged variant over the supported geometries; every
// evaluation is a pure function of the position and the surface
// parameters.
package manifold

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind identifies the surface geometry.
type Kind int

const (
	// Sphere is the degenerate ellipsoid with equal radii.
	Sphere Kind = iota
	// Ellipsoid is an axis-aligned ellipsoid with radii Rx, Ry, Rz.
	Ellipsoid
	// Plane is the z = Center.Z plane.
	Plane
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Sphere:
		return "sphere"
	case Ellipsoid:
		return "ellipsoid"
	case Plane:
		return "plane"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Manifold describes one implicit surface. The zero value is not valid;
// use one of the constructors.
type Manifold struct {
	Kind   Kind
	Radii  mgl64.Vec3
	Center mgl64.Vec3
}

// NewSphere creates a sphere of radius r centered at center.
func NewSphere(r float64, center mgl64.Vec3) (Manifold, error) {
	if r <= 0 {
		return Manifold{}, fmt.Errorf("manifold: sphere radius must be positive, got %g", r)
	}
	return Manifold{Kind: Sphere, Radii: mgl64.Vec3{r, r, r}, Center: center}, nil
}

// NewEllipsoid creates an axis-aligned ellipsoid with the given radii.
func NewEllipsoid(radii, center mgl64.Vec3) (Manifold, error) {
	for i := 0; i < 3; i++ {
		if radii[i] <= 0 {
			return Manifold{}, fmt.Errorf("manifold: ellipsoid radii must be positive, got %v", radii)
		}
	}
	return Manifold{Kind: Ellipsoid, Radii: radii, Center: center}, nil
}

// NewPlane creates the plane z = center.Z.
func NewPlane(center mgl64.Vec3) Manifold {
	return Manifold{Kind: Plane, Center: center}
}

// Implicit returns the signed implicit-surface value at p: zero on the
// surface, positive outside, negative inside.
func (m Manifold) Implicit(p mgl64.Vec3) float64 {
	d := p.Sub(m.Center)
	switch m.Kind {
	case Sphere:
		r := m.Radii[0]
		return d.Dot(d)/(r*r) - 1
	case Ellipsoid:
		x := d[0] / m.Radii[0]
		y := d[1] / m.Radii[1]
		z := d[2] / m.Radii[2]
		return x*x + y*y + z*z - 1
	case Plane:
		return d[2]
	}
	panic(fmt.Sprintf("manifold: unknown kind %d", int(m.Kind)))
}

// Normal returns the outward unit normal at p, evaluated from the
// gradient of the implicit function. For points off the surface this is
// the gradient direction at p itself.
func (m Manifold) Normal(p mgl64.Vec3) mgl64.Vec3 {
	d := p.Sub(m.Center)
	var grad mgl64.Vec3
	switch m.Kind {
	case Sphere:
		grad = d
	case Ellipsoid:
		grad = mgl64.Vec3{
			d[0] / (m.Radii[0] * m.Radii[0]),
			d[1] / (m.Radii[1] * m.Radii[1]),
			d[2] / (m.Radii[2] * m.Radii[2]),
		}
	case Plane:
		return mgl64.Vec3{0, 0, 1}
	default:
		panic(fmt.Sprintf("manifold: unknown kind %d", int(m.Kind)))
	}
	n := grad.Len()
	if n == 0 {
		// Gradient vanishes at the center; no meaningful normal.
		return mgl64.Vec3{0, 0, 1}
	}
	return grad.Mul(1 / n)
}

// Project removes the component of v along the surface normal at p and
// rescales the result to v's original magnitude. A vector that would
// vanish under projection (v parallel to the normal) is returned
// unchanged.
func (m Manifold) Project(v, p mgl64.Vec3) mgl64.Vec3 {
	n := m.Normal(p)
	t := v.Sub(n.Mul(v.Dot(n)))
	tl := t.Len()
	if tl == 0 {
		return v
	}
	return t.Mul(v.Len() / tl)
}

// ClosestPoint pulls p back onto the surface. Exact for Sphere and
// Plane; for Ellipsoid the point is found along the ray through the
// center, which is exact to the surface's local curvature for small
// excursions.
func (m Manifold) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	d := p.Sub(m.Center)
	switch m.Kind {
	case Sphere:
		l := d.Len()
		if l == 0 {
			return m.Center.Add(mgl64.Vec3{m.Radii[0], 0, 0})
		}
		return m.Center.Add(d.Mul(m.Radii[0] / l))
	case Ellipsoid:
		x := d[0] / m.Radii[0]
		y := d[1] / m.Radii[1]
		z := d[2] / m.Radii[2]
		s := math.Sqrt(x*x + y*y + z*z)
		if s == 0 {
			return m.Center.Add(mgl64.Vec3{m.Radii[0], 0, 0})
		}
		return m.Center.Add(d.Mul(1 / s))
	case Plane:
		return mgl64.Vec3{p[0], p[1], m.Center[2]}
	}
	panic(fmt.Sprintf("manifold: unknown kind %d", int(m.Kind)))
}

// FromConfig builds a Manifold from its configuration triplet. An empty
// kind returns ok=false, meaning no constraint.
func FromConfig(kind string, radii, center [3]float64) (Manifold, bool, error) {
	c := mgl64.Vec3{center[0], center[1], center[2]}
	switch kind {
	case "":
		return Manifold{}, false, nil
	case "sphere":
		m, err := NewSphere(radii[0], c)
		return m, err == nil, err
	case "ellipsoid":
		m, err := NewEllipsoid(mgl64.Vec3{radii[0], radii[1], radii[2]}, c)
		return m, err == nil, err
	case "plane":
		return NewPlane(c), true, nil
	}
	return Manifold{}, false, fmt.Errorf("manifold: unknown kind %q", kind)
}

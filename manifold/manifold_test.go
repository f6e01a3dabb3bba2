package manifold

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

const tol = 1e-12

func TestKindString(t *testing.T) {
	require.Equal(t, "sphere", Sphere.String())
	require.Equal(t, "ellipsoid", Ellipsoid.String())
	require.Equal(t, "plane", Plane.String())
	require.Equal(t, "Kind(7)", Kind(7).String())
}

func TestConstructorValidation(t *testing.T) {
	_, err := NewSphere(0, mgl64.Vec3{})
	require.Error(t, err)
	_, err = NewSphere(-1, mgl64.Vec3{})
	require.Error(t, err)
	_, err = NewEllipsoid(mgl64.Vec3{1, 0, 1}, mgl64.Vec3{})
	require.Error(t, err)

	m, err := NewSphere(3, mgl64.Vec3{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, Sphere, m.Kind)
	require.Equal(t, mgl64.Vec3{3, 3, 3}, m.Radii)
}

func TestImplicitSign(t *testing.T) {
	sphere, err := NewSphere(2, mgl64.Vec3{})
	require.NoError(t, err)
	ell, err := NewEllipsoid(mgl64.Vec3{2, 3, 4}, mgl64.Vec3{})
	require.NoError(t, err)
	plane := NewPlane(mgl64.Vec3{0, 0, 1})

	tests := []struct {
		name string
		m    Manifold
		p    mgl64.Vec3
		sign int // -1 inside, 0 on surface, +1 outside
	}{
		{"sphere on surface", sphere, mgl64.Vec3{2, 0, 0}, 0},
		{"sphere inside", sphere, mgl64.Vec3{1, 0, 0}, -1},
		{"sphere outside", sphere, mgl64.Vec3{0, 3, 0}, 1},
		{"ellipsoid on surface", ell, mgl64.Vec3{0, 3, 0}, 0},
		{"ellipsoid inside", ell, mgl64.Vec3{0, 0, 1}, -1},
		{"ellipsoid outside", ell, mgl64.Vec3{3, 0, 0}, 1},
		{"plane on surface", plane, mgl64.Vec3{5, -2, 1}, 0},
		{"plane below", plane, mgl64.Vec3{0, 0, 0}, -1},
		{"plane above", plane, mgl64.Vec3{0, 0, 2}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.m.Implicit(tc.p)
			switch tc.sign {
			case 0:
				require.InDelta(t, 0, v, tol)
			case -1:
				require.Less(t, v, 0.0)
			case 1:
				require.Greater(t, v, 0.0)
			}
		})
	}
}

// TestNormalMatchesGradient checks the analytic normal against a
// central-difference gradient of the implicit function.
func TestNormalMatchesGradient(t *testing.T) {
	ell, err := NewEllipsoid(mgl64.Vec3{2, 3, 4}, mgl64.Vec3{1, -1, 0.5})
	require.NoError(t, err)
	sphere, err := NewSphere(2.5, mgl64.Vec3{-1, 0, 2})
	require.NoError(t, err)

	const h = 1e-6
	for _, m := range []Manifold{ell, sphere} {
		p := m.ClosestPoint(mgl64.Vec3{3, 2, 1})
		var grad mgl64.Vec3
		for i := 0; i < 3; i++ {
			hi, lo := p, p
			hi[i] += h
			lo[i] -= h
			grad[i] = (m.Implicit(hi) - m.Implicit(lo)) / (2 * h)
		}
		grad = grad.Normalize()
		n := m.Normal(p)
		require.InDelta(t, 1, n.Len(), tol)
		require.InDelta(t, 1, grad.Dot(n), 1e-6)
	}
}

func TestNormalDegenerateCenter(t *testing.T) {
	m, err := NewSphere(1, mgl64.Vec3{})
	require.NoError(t, err)
	require.Equal(t, mgl64.Vec3{0, 0, 1}, m.Normal(mgl64.Vec3{}))
}

func TestProject(t *testing.T) {
	m, err := NewSphere(4, mgl64.Vec3{})
	require.NoError(t, err)
	p := mgl64.Vec3{4, 0, 0}

	// A direction with a normal component loses it and keeps its length:
	// (1,1,0) at (R,0,0) projects onto (0,1,0) scaled back to |v|.
	v := mgl64.Vec3{1, 1, 0}
	got := m.Project(v, p)
	require.InDelta(t, 0, got[0], tol)
	require.InDelta(t, v.Len(), got[1], tol)
	require.InDelta(t, 0, got[2], tol)

	// Already tangent: unchanged up to roundoff.
	tv := mgl64.Vec3{0, 2, 1}
	got = m.Project(tv, p)
	require.InDelta(t, 0, got.Sub(tv).Len(), tol)

	// Projecting twice equals projecting once.
	again := m.Project(got, p)
	require.InDelta(t, 0, again.Sub(got).Len(), tol)

	// Parallel to the normal: projection would vanish, vector returned
	// unchanged.
	nv := mgl64.Vec3{3, 0, 0}
	require.Equal(t, nv, m.Project(nv, p))

	// Zero vector passes through.
	require.Equal(t, mgl64.Vec3{}, m.Project(mgl64.Vec3{}, p))
}

func TestClosestPoint(t *testing.T) {
	sphere, err := NewSphere(2, mgl64.Vec3{1, 0, 0})
	require.NoError(t, err)
	ell, err := NewEllipsoid(mgl64.Vec3{2, 3, 4}, mgl64.Vec3{})
	require.NoError(t, err)
	plane := NewPlane(mgl64.Vec3{0, 0, -1})

	tests := []struct {
		name string
		m    Manifold
		p    mgl64.Vec3
	}{
		{"sphere outside", sphere, mgl64.Vec3{5, 1, -2}},
		{"sphere inside", sphere, mgl64.Vec3{1.5, 0.2, 0}},
		{"ellipsoid outside", ell, mgl64.Vec3{4, 4, 4}},
		{"ellipsoid inside", ell, mgl64.Vec3{0.5, 0.5, 0.5}},
		{"plane above", plane, mgl64.Vec3{7, -3, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := tc.m.ClosestPoint(tc.p)
			require.InDelta(t, 0, tc.m.Implicit(q), 1e-9)
			// Pulling back a surface point is the identity.
			require.InDelta(t, 0, tc.m.ClosestPoint(q).Sub(q).Len(), 1e-9)
		})
	}

	// Degenerate center falls back to a fixed surface point.
	require.InDelta(t, 0, sphere.Implicit(sphere.ClosestPoint(sphere.Center)), tol)
}

func TestClosestPointSphereExact(t *testing.T) {
	m, err := NewSphere(3, mgl64.Vec3{})
	require.NoError(t, err)
	q := m.ClosestPoint(mgl64.Vec3{0, 8, 0})
	require.InDelta(t, 0, q.Sub(mgl64.Vec3{0, 3, 0}).Len(), tol)
}

func TestFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		radii   [3]float64
		ok      bool
		wantErr bool
	}{
		{"empty disables", "", [3]float64{}, false, false},
		{"sphere", "sphere", [3]float64{2, 0, 0}, true, false},
		{"ellipsoid", "ellipsoid", [3]float64{1, 2, 3}, true, false},
		{"plane", "plane", [3]float64{}, true, false},
		{"bad sphere radius", "sphere", [3]float64{0, 0, 0}, false, true},
		{"unknown kind", "torus", [3]float64{1, 1, 1}, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok, err := FromConfig(tc.kind, tc.radii, [3]float64{})
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.ok, ok)
			if ok && tc.kind != "plane" {
				require.InDelta(t, 0, math.Abs(m.Implicit(m.ClosestPoint(mgl64.Vec3{5, 5, 5}))), 1e-9)
			}
		})
	}
}

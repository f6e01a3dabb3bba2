package engine

import (
	"math"
	"testing"

	"github.com/devitrification/activematter/config"
	"github.com/devitrification/activematter/particle"
)

func initTestConfig(t *testing.T) *config.Config {
	t.Helper()
	if err := config.Init(""); err != nil {
		t.Fatal(err)
	}
	cfg := config.Cfg()
	cfg.Particles.Count = 128
	cfg.Telemetry.StatsWindow = 10
	return cfg
}

func TestSimulationRunsHeadless(t *testing.T) {
	initTestConfig(t)

	sim, err := New(Options{Seed: 42, Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	for i := 0; i < 30; i++ {
		sim.Step()
	}
	if sim.StepCount() != 30 {
		t.Fatalf("step count = %d", sim.StepCount())
	}

	order := sim.Order()
	if order < 0 || order > 1+1e-12 {
		t.Fatalf("order = %g outside [0, 1]", order)
	}

	pd := sim.Particles()
	box := pd.Box()
	for i := 0; i < pd.N(); i++ {
		for d := 0; d < box.Dimensions; d++ {
			if math.Abs(pd.Pos[i][d]) > box.L[d]/2 {
				t.Fatalf("particle %d left the box: %v", i, pd.Pos[i])
			}
		}
	}
}

// With positive coupling and low noise the flock orders over time.
func TestSimulationOrders(t *testing.T) {
	cfg := initTestConfig(t)
	cfg.World.Lx, cfg.World.Ly = 40, 40
	cfg.Active.Coupling = 5
	cfg.Active.RotationDiff = 0.01

	sim, err := New(Options{Seed: 7, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	initial := sim.Order()
	for i := 0; i < 400; i++ {
		sim.Step()
	}
	final := sim.Order()

	if final < initial {
		t.Fatalf("order decreased under strong coupling: %g -> %g", initial, final)
	}
	if final < 0.5 {
		t.Fatalf("flock failed to order: %g", final)
	}
}

func TestSimulationConstrainedToSphere(t *testing.T) {
	cfg := initTestConfig(t)
	cfg.World.Dimensions = 3
	cfg.Manifold.Kind = "sphere"
	cfg.Manifold.Radii = [3]float64{20, 0, 0}

	sim, err := New(Options{Seed: 3, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	for i := 0; i < 50; i++ {
		sim.Step()
	}

	pd := sim.Particles()
	store := sim.Force().Store()
	for i := 0; i < pd.N(); i++ {
		r := pd.Pos[i].Len()
		if math.Abs(r-20) > 1e-9 {
			t.Fatalf("particle %d off the sphere: |p| = %g", i, r)
		}
		n := pd.Pos[i].Mul(1 / r)
		dir := store.ForceDir(pd.Tag(i))
		if math.Abs(dir.Dot(n)) > 1e-9 {
			t.Fatalf("particle %d direction not tangent: n·e = %g", i, dir.Dot(n))
		}
	}
}

// Identical seeds reproduce the identical trajectory bit-for-bit.
func TestSimulationSeedDeterminism(t *testing.T) {
	run := func() ([]float64, *particle.Data) {
		initTestConfig(t)
		sim, err := New(Options{Seed: 99, Workers: 4})
		if err != nil {
			t.Fatal(err)
		}
		defer sim.Close()

		for i := 0; i < 20; i++ {
			sim.Step()
		}
		store := sim.Force().Store()
		dirs := make([]float64, 0, 3*sim.Particles().NGlobal())
		for tag := uint32(0); int(tag) < sim.Particles().NGlobal(); tag++ {
			d := store.ForceDir(tag)
			dirs = append(dirs, d[0], d[1], d[2])
		}
		return dirs, sim.Particles()
	}

	a, pdA := run()
	b, pdB := run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("direction component %d diverged between identical runs", i)
		}
	}
	for tag := uint32(0); int(tag) < pdA.NGlobal(); tag++ {
		if pdA.Pos[pdA.Index(tag)] != pdB.Pos[pdB.Index(tag)] {
			t.Fatalf("tag %d position diverged between identical runs", tag)
		}
	}
}

func TestSimulationRejectsBadManifold(t *testing.T) {
	cfg := initTestConfig(t)
	cfg.Manifold.Kind = "sphere"
	cfg.Manifold.Radii = [3]float64{0, 0, 0}

	if _, err := New(Options{Seed: 1}); err == nil {
		t.Fatal("expected error for invalid sphere radius")
	}
}

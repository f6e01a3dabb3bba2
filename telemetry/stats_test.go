package telemetry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPolarOrder(t *testing.T) {
	tests := []struct {
		name  string
		dirs  []mgl64.Vec3
		order float64
	}{
		{"empty", nil, 0},
		{"single", []mgl64.Vec3{{1, 0, 0}}, 1},
		{"aligned", []mgl64.Vec3{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}}, 1},
		{"opposed", []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}}, 0},
		{"orthogonal pair", []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}}, math.Sqrt2 / 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order, _ := PolarOrder(tc.dirs)
			if math.Abs(order-tc.order) > 1e-12 {
				t.Fatalf("order = %g, want %g", order, tc.order)
			}
		})
	}

	_, mean := PolarOrder([]mgl64.Vec3{{2, 0, 0}, {0, 2, 0}})
	if mean != (mgl64.Vec3{1, 1, 0}) {
		t.Fatalf("mean = %v", mean)
	}
}

func TestCollectorWindow(t *testing.T) {
	c := NewCollector()
	c.Record([]mgl64.Vec3{{1, 0, 0}, {1, 0, 0}})  // order 1
	c.Record([]mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}}) // order 0
	c.Record([]mgl64.Vec3{{0, 1, 0}, {0, 1, 0}})  // order 1

	s := c.Flush(30, 2, 0.3)
	if s.WindowStartStep != 0 || s.WindowEndStep != 30 {
		t.Fatalf("window [%d, %d]", s.WindowStartStep, s.WindowEndStep)
	}
	if s.N != 2 || s.SimTime != 0.3 {
		t.Fatalf("n=%d sim_time=%g", s.N, s.SimTime)
	}
	if math.Abs(s.OrderMean-2.0/3.0) > 1e-12 {
		t.Fatalf("order mean = %g", s.OrderMean)
	}
	if s.OrderMin != 0 || s.OrderMax != 1 {
		t.Fatalf("order range [%g, %g]", s.OrderMin, s.OrderMax)
	}
	if s.OrderStd <= 0 {
		t.Fatalf("order std = %g", s.OrderStd)
	}
	// Heading from the last sample's mean direction, +y.
	if math.Abs(s.Heading-math.Pi/2) > 1e-12 {
		t.Fatalf("heading = %g", s.Heading)
	}

	// Flush rolls the window forward and clears the samples.
	s2 := c.Flush(60, 2, 0.6)
	if s2.WindowStartStep != 30 {
		t.Fatalf("next window start = %d", s2.WindowStartStep)
	}
	if s2.OrderMean != 0 {
		t.Fatalf("empty window mean = %g", s2.OrderMean)
	}
}

func TestPerfCollector(t *testing.T) {
	p := NewPerfCollector(4)

	for i := 0; i < 6; i++ {
		p.StartStep()
		p.StartPhase(PhaseNeighbor)
		p.StartPhase(PhaseDiffusion)
		p.EndStep()
	}

	s := p.Stats()
	if s.AvgStepDuration <= 0 {
		t.Fatalf("avg step = %v", s.AvgStepDuration)
	}
	if s.MinStepDuration > s.MaxStepDuration {
		t.Fatalf("min %v > max %v", s.MinStepDuration, s.MaxStepDuration)
	}
	if s.StepsPerSecond <= 0 {
		t.Fatalf("steps/sec = %g", s.StepsPerSecond)
	}
	for _, phase := range []string{PhaseNeighbor, PhaseDiffusion} {
		if _, ok := s.PhaseAvg[phase]; !ok {
			t.Fatalf("phase %q missing from stats", phase)
		}
	}
	if _, ok := s.PhaseAvg[PhaseSort]; ok {
		t.Fatal("unvisited phase appeared in stats")
	}

	csvRow := s.ToCSV(100)
	if csvRow.WindowEnd != 100 {
		t.Fatalf("window end = %d", csvRow.WindowEnd)
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	p := NewPerfCollector(0) // clamps to default window
	s := p.Stats()
	if s.AvgStepDuration != 0 || s.StepsPerSecond != 0 {
		t.Fatalf("empty collector stats = %+v", s)
	}
	if s.PhaseAvg == nil || s.PhasePct == nil {
		t.Fatal("empty stats maps should be non-nil")
	}
}

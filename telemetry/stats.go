// Package telemetry collects simulation observables and step timing.
package telemetry

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated observables for a window of steps.
type WindowStats struct {
	WindowStartStep int     `csv:"-"`
	WindowEndStep   int     `csv:"window_end"`
	SimTime         float64 `csv:"sim_time"`

	N int `csv:"n"`

	// Polar order parameter |<e_i>| over the window.
	OrderMean float64 `csv:"order_mean"`
	OrderStd  float64 `csv:"order_std"`
	OrderMin  float64 `csv:"order_min"`
	OrderMax  float64 `csv:"order_max"`

	// Mean heading (radians, in-plane) at window end.
	Heading float64 `csv:"heading"`
}

// PolarOrder computes the Vicsek order parameter |mean direction| and
// the (unnormalized) mean direction of the given unit vectors.
func PolarOrder(dirs []mgl64.Vec3) (float64, mgl64.Vec3) {
	if len(dirs) == 0 {
		return 0, mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, d := range dirs {
		sum = sum.Add(d)
	}
	mean := sum.Mul(1 / float64(len(dirs)))
	return mean.Len(), mean
}

// Collector accumulates per-step order samples over a window.
type Collector struct {
	startStep int
	samples   []float64
	lastMean  mgl64.Vec3
}

// NewCollector creates an empty collector starting at step 0.
func NewCollector() *Collector {
	return &Collector{samples: make([]float64, 0, 256)}
}

// Record adds one step's directions to the current window.
func (c *Collector) Record(dirs []mgl64.Vec3) {
	order, mean := PolarOrder(dirs)
	c.samples = append(c.samples, order)
	c.lastMean = mean
}

// Flush aggregates the current window into a WindowStats and resets the
// collector for the next window.
func (c *Collector) Flush(endStep, n int, simTime float64) WindowStats {
	s := WindowStats{
		WindowStartStep: c.startStep,
		WindowEndStep:   endStep,
		SimTime:         simTime,
		N:               n,
		Heading:         math.Atan2(c.lastMean[1], c.lastMean[0]),
	}
	if len(c.samples) > 0 {
		s.OrderMean = stat.Mean(c.samples, nil)
		s.OrderStd = stat.StdDev(c.samples, nil)
		s.OrderMin, s.OrderMax = c.samples[0], c.samples[0]
		for _, v := range c.samples {
			if v < s.OrderMin {
				s.OrderMin = v
			}
			if v > s.OrderMax {
				s.OrderMax = v
			}
		}
	}

	c.startStep = endStep
	c.samples = c.samples[:0]
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartStep),
		slog.Int("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("n", s.N),
		slog.Float64("order_mean", s.OrderMean),
		slog.Float64("order_std", s.OrderStd),
		slog.Float64("order_min", s.OrderMin),
		slog.Float64("order_max", s.OrderMax),
		slog.Float64("heading", s.Heading),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTime,
		"n", s.N,
		"order_mean", s.OrderMean,
		"order_std", s.OrderStd,
		"order_min", s.OrderMin,
		"order_max", s.OrderMax,
		"heading", s.Heading,
	)
}

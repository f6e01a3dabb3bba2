// Package engine wires the particle store, neighbor list, and active
// force compute into a runnable simulation loop.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/devitrification/activematter/active"
	"github.com/devitrification/activematter/config"
	"github.com/devitrification/activematter/manifold"
	"github.com/devitrification/activematter/neighbor"
	"github.com/devitrification/activematter/parallel"
	"github.com/devitrification/activematter/particle"
	"github.com/devitrification/activematter/telemetry"
)

// Options holds runtime settings that are not part of the config file.
type Options struct {
	Seed      uint64
	LogStats  bool
	OutputDir string
	Workers   int
}

// Simulation owns the full state of one run.
type Simulation struct {
	cfg  *config.Config
	opts Options

	ctx   *parallel.Context
	pd    *particle.Data
	group *particle.Group
	cells *neighbor.CellList
	nlist neighbor.List
	force *active.VicsekForce

	man         manifold.Manifold
	constrained bool

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	output    *telemetry.OutputManager

	step uint64
	dirs []mgl64.Vec3 // scratch for telemetry sampling
}

// New builds a simulation from the loaded config and options.
func New(opts Options) (*Simulation, error) {
	cfg := config.Cfg()

	box := particle.NewBox(cfg.World.Lx, cfg.World.Ly, cfg.World.Lz, cfg.World.Dimensions)
	pd, err := particle.NewData(cfg.Particles.Count, box)
	if err != nil {
		return nil, err
	}

	man, constrained, err := manifold.FromConfig(cfg.Manifold.Kind, cfg.Manifold.Radii, cfg.Manifold.Center)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x5bf03635d3d5b2a5))
	seedPositions(pd, rng, man, constrained)

	group := particle.NewGroupAll(pd)
	initF, initT := seedActiveVectors(group.Len(), rng, cfg, box.Dimensions)

	ctx := parallel.NewContext(opts.Workers)
	cells, err := neighbor.NewCellList(box, cfg.Active.Radius)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	s := &Simulation{
		cfg:         cfg,
		opts:        opts,
		ctx:         ctx,
		pd:          pd,
		group:       group,
		cells:       cells,
		man:         man,
		constrained: constrained,
		collector:   telemetry.NewCollector(),
		perf:        telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		dirs:        make([]mgl64.Vec3, 0, group.Len()),
	}

	force, err := active.NewVicsekForce(ctx, pd, group, &s.nlist,
		cfg.Active.Radius, cfg.Active.Coupling, active.Params{
			Seed:                   opts.Seed,
			DT:                     cfg.Run.DT,
			RotationDiff:           cfg.Active.RotationDiff,
			OrientationLink:        cfg.Active.OrientationLink,
			OrientationReverseLink: cfg.Active.OrientationReverseLink,
			Force:                  initF,
			Torque:                 initT,
		})
	if err != nil {
		ctx.Close()
		return nil, err
	}
	if constrained {
		force.AttachManifold(man)
	}
	s.force = force

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}
	s.output = output
	if err := s.output.WriteConfig(cfg); err != nil {
		s.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	return s, nil
}

// seedPositions scatters particles uniformly in the box, or on the
// constraint surface when one is configured.
func seedPositions(pd *particle.Data, rng *rand.Rand, man manifold.Manifold, constrained bool) {
	box := pd.Box()
	for i := 0; i < pd.N(); i++ {
		var p mgl64.Vec3
		for d := 0; d < box.Dimensions; d++ {
			p[d] = (rng.Float64() - 0.5) * box.L[d]
		}
		if constrained {
			p = man.ClosestPoint(p)
		}
		pd.Pos[i] = p
	}
}

// seedActiveVectors draws the initial per-member active force and
// torque vectors: uniformly random directions scaled by the configured
// magnitudes, confined to the plane in 2D.
func seedActiveVectors(n int, rng *rand.Rand, cfg *config.Config, dimensions int) ([]mgl64.Vec3, []mgl64.Vec3) {
	initF := make([]mgl64.Vec3, n)
	var initT []mgl64.Vec3
	if cfg.Active.TorqueMagnitude != 0 {
		initT = make([]mgl64.Vec3, n)
	}
	for i := 0; i < n; i++ {
		dir := randomDir(rng, dimensions)
		initF[i] = dir.Mul(cfg.Active.ForceMagnitude)
		if initT != nil {
			initT[i] = dir.Mul(cfg.Active.TorqueMagnitude)
		}
	}
	return initF, initT
}

func randomDir(rng *rand.Rand, dimensions int) mgl64.Vec3 {
	if dimensions == 2 {
		theta := 2 * math.Pi * rng.Float64()
		return mgl64.Vec3{math.Cos(theta), math.Sin(theta), 0}
	}
	for {
		v := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		if l := v.Len(); l > 1e-12 {
			return v.Mul(1 / l)
		}
	}
}

// Step advances the simulation by one timestep.
func (s *Simulation) Step() {
	cfg := s.cfg
	s.perf.StartStep()

	s.perf.StartPhase(telemetry.PhaseNeighbor)
	s.cells.Build(&s.nlist, s.pd)

	s.perf.StartPhase(telemetry.PhaseDiffusion)
	s.force.RotationalDiffusion(s.step)

	s.perf.StartPhase(telemetry.PhaseEmit)
	s.force.SetForces()

	s.perf.StartPhase(telemetry.PhaseIntegrate)
	s.integrate()

	if cfg.Run.SortEvery > 0 && s.step > 0 && s.step%uint64(cfg.Run.SortEvery) == 0 {
		s.perf.StartPhase(telemetry.PhaseSort)
		if err := s.pd.SortSpatial(cfg.Derived.CellSize); err == nil && s.constrained {
			// Positions may have drifted off the surface numerically;
			// the projection-only pass restores tangency after a sort.
			s.force.SetConstraint()
		}
	}

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.recordTelemetry()

	s.perf.EndStep()
	s.step++
}

// integrate applies the overdamped position update from the emitted
// forces, then wraps into the box (and pulls back onto the manifold).
func (s *Simulation) integrate() {
	dt := s.cfg.Run.DT
	drag := s.cfg.Run.Drag
	if drag <= 0 {
		drag = 1
	}
	box := s.pd.Box()

	s.ctx.ForEach(s.pd.N(), func(start, end int) {
		for i := start; i < end; i++ {
			v := s.pd.Force[i].Mul(1 / drag)
			s.pd.Vel[i] = v
			p := s.pd.Pos[i].Add(v.Mul(dt))
			if s.constrained {
				p = s.man.ClosestPoint(p)
			}
			s.pd.Pos[i] = box.Wrap(p)
		}
	})
}

// recordTelemetry samples the group's current directions and flushes
// the window when due.
func (s *Simulation) recordTelemetry() {
	s.dirs = s.dirs[:0]
	store := s.force.Store()
	for i := 0; i < s.group.Len(); i++ {
		s.dirs = append(s.dirs, store.ForceDir(s.group.MemberTag(i)))
	}
	s.collector.Record(s.dirs)

	window := s.cfg.Telemetry.StatsWindow
	if window > 0 && s.step > 0 && s.step%uint64(window) == 0 {
		stats := s.collector.Flush(int(s.step), s.group.Len(), float64(s.step)*s.cfg.Run.DT)
		if s.opts.LogStats {
			stats.LogStats()
			s.perf.Stats().LogStats()
		}
		if err := s.output.WriteStats(stats); err != nil {
			slog.Warn("stats output failed", "error", err)
		}
		if err := s.output.WritePerf(s.perf.Stats(), int(s.step)); err != nil {
			slog.Warn("perf output failed", "error", err)
		}
	}
}

// StepCount returns the number of completed steps.
func (s *Simulation) StepCount() uint64 { return s.step }

// Particles returns the particle data (read-only by convention).
func (s *Simulation) Particles() *particle.Data { return s.pd }

// Force returns the active force compute.
func (s *Simulation) Force() *active.VicsekForce { return s.force }

// Order returns the instantaneous polar order parameter.
func (s *Simulation) Order() float64 {
	s.dirs = s.dirs[:0]
	store := s.force.Store()
	for i := 0; i < s.group.Len(); i++ {
		s.dirs = append(s.dirs, store.ForceDir(s.group.MemberTag(i)))
	}
	order, _ := telemetry.PolarOrder(s.dirs)
	return order
}

// Close releases the worker pool and output files.
func (s *Simulation) Close() {
	if s.output != nil {
		_ = s.output.Close()
	}
	s.ctx.Close()
}

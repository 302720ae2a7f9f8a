package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/arte/internal/expansion"
	"github.com/san-kum/arte/internal/reactor"
	"github.com/san-kum/arte/internal/report"
)

// Runner drives one core through a schedule of time nodes, expanding the
// fuel once per node and generating the assembly report at end of life.
type Runner struct {
	core      *reactor.Core
	engine    *expansion.Engine
	fuel      []*reactor.Assembly
	metrics   []Metric
	observers []Observer
	logger    *zap.Logger

	schedule Schedule
	loaded   bool
	step     int
	result   *Result
}

func New(core *reactor.Core, cfg expansion.Config, logger *zap.Logger) (*Runner, error) {
	if core == nil {
		return nil, expansion.ErrNilCore
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := expansion.New(hostCore{core}, cfg, logger.Named("expansion"))
	if err != nil {
		return nil, fmt.Errorf("core %s: %w", core.Name, err)
	}

	cached := engine.Assemblies()
	fuel := make([]*reactor.Assembly, len(cached))
	for i, a := range cached {
		fuel[i] = a.(hostAssembly).Assembly
	}

	return &Runner{
		core:      core,
		engine:    engine,
		fuel:      fuel,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    logger,
	}, nil
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Core() *reactor.Core       { return r.core }
func (r *Runner) Engine() *expansion.Engine { return r.engine }

// Locations lists the fuel assemblies the engine expands, in order.
func (r *Runner) Locations() []string {
	locs := make([]string, len(r.fuel))
	for i, a := range r.fuel {
		locs[i] = a.Location()
	}
	return locs
}

// Growth is the accumulated growth of a, 0 when a holds no fuel.
func (r *Runner) Growth(a *reactor.Assembly) float64 {
	if a == nil {
		return 0
	}
	return r.engine.TotalAssemblyGrowth(hostAssembly{a})
}

// Start loads a schedule and resets metrics. The core keeps its expanded
// state: starting again continues from the current heights.
func (r *Runner) Start(s Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.schedule = s
	r.loaded = true
	r.step = 0
	r.result = &Result{
		Core:      r.core.Name,
		Locations: r.Locations(),
		Samples:   make([]NodeSample, 0, s.TotalNodes()),
		Metrics:   make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	r.logger.Info("schedule loaded",
		zap.String("core", r.core.Name),
		zap.Int("cycles", s.Cycles),
		zap.Int("nodes_per_cycle", s.NodesPerCycle()),
		zap.Int("fuel_assemblies", len(r.fuel)))
	return nil
}

func (r *Runner) Done() bool {
	return !r.loaded || r.step >= r.schedule.TotalNodes()
}

// Position returns the cycle and node the next Step will run.
func (r *Runner) Position() (cycle, node int) {
	n := r.schedule.NodesPerCycle()
	if n == 0 {
		return 0, 0
	}
	return r.step / n, r.step % n
}

// Step runs the next time node: set power, expand, observe.
func (r *Runner) Step(ctx context.Context) (NodeSample, error) {
	if !r.loaded {
		return NodeSample{}, ErrScheduleNotLoaded
	}
	if r.Done() {
		return NodeSample{}, ErrScheduleComplete
	}
	select {
	case <-ctx.Done():
		return NodeSample{}, ctx.Err()
	default:
	}

	cycle, node := r.Position()
	power := r.schedule.PowerFractions[node]

	r.core.SetPowerFraction(power)
	if err := r.engine.ExpandFuelBlocks(); err != nil {
		r.logger.Error("expansion failed",
			zap.Int("cycle", cycle),
			zap.Int("node", node),
			zap.Error(err))
		return NodeSample{}, fmt.Errorf("cycle %d node %d: %w", cycle, node, err)
	}
	r.step++

	sample := r.sample(cycle, node, power)
	r.result.Samples = append(r.result.Samples, sample)

	for _, m := range r.metrics {
		m.Observe(sample)
	}
	for _, obs := range r.observers {
		obs.OnNode(sample)
	}

	r.logger.Debug("node complete",
		zap.Int("cycle", cycle),
		zap.Int("node", node),
		zap.Float64("power", power))

	return sample, nil
}

func (r *Runner) sample(cycle, node int, power float64) NodeSample {
	s := NodeSample{
		Cycle:         cycle,
		Node:          node,
		PowerFraction: power,
		Growth:        make([]float64, len(r.fuel)),
		Height:        make([]float64, len(r.fuel)),
	}
	for i, a := range r.fuel {
		s.Growth[i] = r.Growth(a)
		s.Height[i] = a.Height()
	}
	return s
}

// Finish is the end-of-life hook: it generates the assembly report and
// records metrics and the reference assembly growth.
func (r *Runner) Finish() *Result {
	if r.result == nil {
		r.result = &Result{
			Core:      r.core.Name,
			Locations: r.Locations(),
			Metrics:   make(map[string]float64),
		}
	}

	var rows report.Collector
	r.result.ReportErr = r.engine.GenerateAssemblyReport(&rows)
	r.result.Rows = rows.Rows
	if r.result.ReportErr != nil {
		r.logger.Error("assembly report incomplete", zap.Error(r.result.ReportErr))
	}

	for _, m := range r.metrics {
		r.result.Metrics[m.Name()] = m.Value()
	}

	if ref := r.core.ReferenceAssembly(); ref != nil {
		r.result.Reference = ref.Location()
		r.result.ReferenceGrowth = r.Growth(ref)
	}
	r.logger.Info("Total axial growth of the active fuel stack in the central assembly",
		zap.String("location", r.result.Reference),
		zap.String("growth_cm", fmt.Sprintf("%.2f", r.result.ReferenceGrowth)))

	return r.result
}

// Run executes every node of s and then Finish.
func (r *Runner) Run(ctx context.Context, s Schedule) (*Result, error) {
	if err := r.Start(s); err != nil {
		return nil, err
	}
	for !r.Done() {
		if _, err := r.Step(ctx); err != nil {
			return r.result, err
		}
	}
	return r.Finish(), nil
}

package expansion

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/arte/internal/report"
)

// DefaultColdTemperatureC is the reference temperature every component starts
// from unless configured otherwise.
const DefaultColdTemperatureC = 20.0

type Core interface {
	FuelAssemblies() []Assembly
	HasAxialMesh() bool
	UpdateAxialMesh()
}

type Assembly interface {
	Location() string
	FuelBlocks() []Block
}

type Block interface {
	Name() string
	HeightBOL() float64
	Height() float64
	SetHeight(h float64)
	FuelComponents() []Component
}

type Component interface {
	Name() string
	TemperatureC() float64
	InputTemperatureC() float64
	// ThermalExpansionFactor is the length ratio between the component's
	// current temperature and t0.
	ThermalExpansionFactor(t0 float64) float64
}

type Config struct {
	// ColdTemperatureC seeds the previous temperature of every component.
	// Nil uses each component's input temperature instead.
	ColdTemperatureC *float64
}

func DefaultConfig() Config {
	t := DefaultColdTemperatureC
	return Config{ColdTemperatureC: &t}
}

type assemblyEntry struct {
	ref    Assembly
	blocks []int
	growth float64
}

type blockEntry struct {
	ref        Block
	assembly   int
	components []int
	prevHeight float64
	seeded     bool
}

type componentEntry struct {
	ref      Component
	block    int
	prevTemp float64
	seeded   bool
}

type Engine struct {
	core   Core
	logger *zap.Logger

	coldC    float64
	useInput bool

	assemblies []assemblyEntry
	blocks     []blockEntry
	components []componentEntry

	assemblyIndex map[Assembly]int
	nodes         int
}

// New scans core once and builds the handle-indexed caches. Assembly, Block
// and Component implementations must be comparable.
func New(core Core, cfg Config, logger *zap.Logger) (*Engine, error) {
	if core == nil {
		return nil, ErrNilCore
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		core:          core,
		logger:        logger,
		useInput:      cfg.ColdTemperatureC == nil,
		assemblyIndex: make(map[Assembly]int),
	}
	if cfg.ColdTemperatureC != nil {
		e.coldC = *cfg.ColdTemperatureC
	}

	if err := e.populate(); err != nil {
		return nil, err
	}

	logger.Debug("expansion caches built",
		zap.Int("assemblies", len(e.assemblies)),
		zap.Int("blocks", len(e.blocks)),
		zap.Int("components", len(e.components)))

	return e, nil
}

func (e *Engine) populate() error {
	blockIndex := make(map[Block]int)
	componentIndex := make(map[Component]int)

	for _, a := range e.core.FuelAssemblies() {
		if a == nil {
			return fmt.Errorf("%w: assembly", ErrNilEntity)
		}
		if _, ok := e.assemblyIndex[a]; ok {
			return fmt.Errorf("%w: assembly %s", ErrDuplicateEntity, a.Location())
		}
		ah := len(e.assemblies)
		e.assemblyIndex[a] = ah
		e.assemblies = append(e.assemblies, assemblyEntry{ref: a})

		for _, b := range a.FuelBlocks() {
			if b == nil {
				return fmt.Errorf("%w: block in assembly %s", ErrNilEntity, a.Location())
			}
			if owner, ok := blockIndex[b]; ok {
				return fmt.Errorf("%w: block %s in assemblies %s and %s", ErrDuplicateEntity,
					b.Name(), e.assemblies[e.blocks[owner].assembly].ref.Location(), a.Location())
			}
			bh := len(e.blocks)
			blockIndex[b] = bh
			e.blocks = append(e.blocks, blockEntry{ref: b, assembly: ah})
			e.assemblies[ah].blocks = append(e.assemblies[ah].blocks, bh)

			for _, c := range b.FuelComponents() {
				if c == nil {
					return fmt.Errorf("%w: component in block %s", ErrNilEntity, b.Name())
				}
				if _, ok := componentIndex[c]; ok {
					return fmt.Errorf("%w: component %s", ErrDuplicateEntity, c.Name())
				}
				ch := len(e.components)
				componentIndex[c] = ch
				e.components = append(e.components, componentEntry{ref: c, block: bh})
				e.blocks[bh].components = append(e.blocks[bh].components, ch)
			}
		}
	}
	return nil
}

// Assemblies returns the cached fuel assemblies in expansion order.
func (e *Engine) Assemblies() []Assembly {
	out := make([]Assembly, len(e.assemblies))
	for i, a := range e.assemblies {
		out[i] = a.ref
	}
	return out
}

// Nodes is the number of time nodes expanded so far.
func (e *Engine) Nodes() int { return e.nodes }

// TotalAssemblyGrowth returns the accumulated growth of a in cm, or 0 for an
// assembly the engine never cached.
func (e *Engine) TotalAssemblyGrowth(a Assembly) float64 {
	h, ok := e.assemblyIndex[a]
	if !ok {
		return 0.0
	}
	return e.assemblies[h].growth
}

type tempUpdate struct {
	component int
	tempC     float64
}

type blockStep struct {
	block    int
	previous float64
	height   float64
	temps    []tempUpdate
}

func (s blockStep) delta() float64 { return s.height - s.previous }

// ExpandFuelBlocks resizes every cached fuel block for the current time node
// and refreshes the core's axial mesh when one is defined. The node is
// planned in full before anything is written: on error no block, cache or
// accumulator has changed.
func (e *Engine) ExpandFuelBlocks() error {
	plans := make([][]blockStep, len(e.assemblies))
	for a := range e.assemblies {
		steps, err := e.planAssembly(a)
		if err != nil {
			return err
		}
		plans[a] = steps
	}

	total := 0.0
	for a, steps := range plans {
		total += e.commitAssembly(a, steps)
	}
	e.nodes++

	meshUpdated := false
	if e.core.HasAxialMesh() {
		e.core.UpdateAxialMesh()
		meshUpdated = true
	}

	e.logger.Debug("expanded fuel blocks",
		zap.Int("node", e.nodes),
		zap.Int("assemblies", len(e.assemblies)),
		zap.Float64("growth_cm", total),
		zap.Bool("mesh_updated", meshUpdated))

	return nil
}

func (e *Engine) expandAssembly(a int) (float64, error) {
	steps, err := e.planAssembly(a)
	if err != nil {
		return 0, err
	}
	return e.commitAssembly(a, steps), nil
}

func (e *Engine) expandBlock(b int) (float64, error) {
	step, err := e.planBlock(b)
	if err != nil {
		return 0, err
	}
	return e.commitBlock(step), nil
}

func (e *Engine) planAssembly(a int) ([]blockStep, error) {
	steps := make([]blockStep, 0, len(e.assemblies[a].blocks))
	for _, b := range e.assemblies[a].blocks {
		step, err := e.planBlock(b)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (e *Engine) commitAssembly(a int, steps []blockStep) float64 {
	growth := 0.0
	for _, s := range steps {
		growth += e.commitBlock(s)
	}
	e.assemblies[a].growth += growth

	e.logger.Debug("expanded assembly",
		zap.String("location", e.assemblies[a].ref.Location()),
		zap.Float64("growth_cm", growth),
		zap.Float64("total_growth_cm", e.assemblies[a].growth))

	return growth
}

func (e *Engine) planBlock(b int) (blockStep, error) {
	entry := &e.blocks[b]

	previous, err := e.previousHeight(b)
	if err != nil {
		return blockStep{}, e.blockError(b, "", err)
	}

	step := blockStep{
		block:    b,
		previous: previous,
		height:   previous,
		temps:    make([]tempUpdate, 0, len(entry.components)),
	}

	for _, c := range entry.components {
		comp := e.components[c].ref

		t0, err := e.previousTemperature(c)
		if err != nil {
			return blockStep{}, e.blockError(b, comp.Name(), err)
		}
		tc := comp.TemperatureC()
		if !finite(tc) {
			return blockStep{}, e.blockError(b, comp.Name(),
				fmt.Errorf("%w: current %g °C", ErrInvalidTemperature, tc))
		}

		factor := comp.ThermalExpansionFactor(t0)
		if !finite(factor) || factor <= 0 {
			return blockStep{}, e.blockError(b, comp.Name(),
				fmt.Errorf("%w: %g from %g °C to %g °C", ErrInvalidFactor, factor, t0, tc))
		}

		step.temps = append(step.temps, tempUpdate{component: c, tempC: tc})
		step.height = math.Max(step.height, previous*factor)
	}

	return step, nil
}

func (e *Engine) commitBlock(s blockStep) float64 {
	entry := &e.blocks[s.block]
	entry.ref.SetHeight(s.height)
	entry.prevHeight = s.height
	entry.seeded = true

	for _, t := range s.temps {
		e.components[t.component].prevTemp = t.tempC
		e.components[t.component].seeded = true
	}
	return s.delta()
}

func (e *Engine) previousHeight(b int) (float64, error) {
	entry := &e.blocks[b]
	if entry.seeded {
		return entry.prevHeight, nil
	}
	h := entry.ref.HeightBOL()
	if !finite(h) || h < 0 {
		return 0, fmt.Errorf("%w: beginning-of-life height %g cm", ErrInvalidGeometry, h)
	}
	return h, nil
}

func (e *Engine) previousTemperature(c int) (float64, error) {
	entry := &e.components[c]
	if entry.seeded {
		return entry.prevTemp, nil
	}
	if !e.useInput {
		return e.coldC, nil
	}
	t := entry.ref.InputTemperatureC()
	if !finite(t) {
		return 0, fmt.Errorf("%w: input %g °C", ErrInvalidTemperature, t)
	}
	return t, nil
}

func (e *Engine) blockError(b int, component string, err error) error {
	entry := e.blocks[b]
	return &BlockError{
		Node:      e.nodes + 1,
		Assembly:  e.assemblies[entry.assembly].ref.Location(),
		Block:     entry.ref.Name(),
		Component: component,
		Err:       err,
	}
}

// GenerateAssemblyReport writes one row per cached fuel assembly to sink,
// computed from the live block heights rather than the growth accumulator.
// Assemblies that fail are skipped; their errors are returned together as
// *AssemblyError values combined with multierr.
func (e *Engine) GenerateAssemblyReport(sink report.Sink) error {
	var errs error
	for a := range e.assemblies {
		loc := e.assemblies[a].ref.Location()

		row, err := e.assemblyRow(a)
		if err == nil {
			err = sink.WriteRow(row)
		}
		if err != nil {
			e.logger.Warn("assembly report failed", zap.String("location", loc), zap.Error(err))
			errs = multierr.Append(errs, &AssemblyError{Location: loc, Err: err})
		}
	}
	return errs
}

func (e *Engine) assemblyRow(a int) (report.Row, error) {
	cold, warm := 0.0, 0.0
	for _, b := range e.assemblies[a].blocks {
		cold += e.blocks[b].ref.HeightBOL()
		warm += e.blocks[b].ref.Height()
	}

	if !finite(cold) || !finite(warm) || cold <= 0 {
		return report.Row{}, fmt.Errorf("%w: cold height %g cm, warm height %g cm", ErrInvalidGeometry, cold, warm)
	}

	growth := warm - cold
	strain := growth / cold * 100.0

	return report.Row{
		Label:     "Assembly " + e.assemblies[a].ref.Location(),
		ColdCM:    report.Round(cold, 2),
		WarmCM:    report.Round(warm, 2),
		GrowthCM:  report.Round(growth, 2),
		StrainPct: report.Round(strain, 3),
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Package sweep runs one core definition over a grid of parameter values and
// collects the end-of-life metrics of every point.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/arte/internal/config"
	"github.com/san-kum/arte/internal/metrics"
	"github.com/san-kum/arte/internal/sim"
)

var ErrInvalidGrid = errors.New("sweep: invalid grid")

type Param string

const (
	// ColdTemperature sets the cold reference temperature in °C.
	ColdTemperature Param = "cold_temperature"
	// PowerScale multiplies every power fraction of the schedule.
	PowerScale Param = "power_scale"
	// Cycles sets the number of cycles.
	Cycles Param = "cycles"
)

var known = map[Param]bool{ColdTemperature: true, PowerScale: true, Cycles: true}

// ReferenceGrowthMetric names the reference assembly growth in Point.Metrics.
const ReferenceGrowthMetric = "reference_growth_cm"

type Grid struct {
	params []Param
	ranges [][]float64
}

func NewGrid(params []Param, ranges [][]float64) (*Grid, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d params for %d ranges", ErrInvalidGrid, len(params), len(ranges))
	}
	seen := make(map[Param]bool, len(params))
	for i, p := range params {
		if !known[p] {
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrInvalidGrid, p)
		}
		if seen[p] {
			return nil, fmt.Errorf("%w: parameter %q given twice", ErrInvalidGrid, p)
		}
		seen[p] = true
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("%w: no values for %q", ErrInvalidGrid, p)
		}
	}
	return &Grid{params: params, ranges: ranges}, nil
}

// Points enumerates the cartesian product of the grid, last parameter
// varying fastest.
func (g *Grid) Points() []map[Param]float64 {
	var out []map[Param]float64
	g.collect(0, make(map[Param]float64), &out)
	return out
}

func (g *Grid) collect(depth int, current map[Param]float64, out *[]map[Param]float64) {
	if depth == len(g.params) {
		*out = append(*out, current)
		return
	}
	for _, val := range g.ranges[depth] {
		next := make(map[Param]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[g.params[depth]] = val
		g.collect(depth+1, next, out)
	}
}

type Point struct {
	Params  map[Param]float64
	Metrics map[string]float64
	Err     error
}

// Apply returns a copy of base with params set.
func Apply(base *config.Config, params map[Param]float64) (*config.Config, error) {
	cfg, err := base.Clone()
	if err != nil {
		return nil, err
	}
	for p, v := range params {
		switch p {
		case ColdTemperature:
			t := v
			cfg.ColdTemperature = &t
		case PowerScale:
			for i := range cfg.Schedule.PowerFractions {
				cfg.Schedule.PowerFractions[i] *= v
			}
		case Cycles:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("%w: cycles must be whole, got %g", ErrInvalidGrid, v)
			}
			cfg.Schedule.Cycles = int(v)
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrInvalidGrid, p)
		}
	}
	return cfg, nil
}

// Run expands base at every grid point. Points that fail keep their error
// and do not stop the others; only cancellation aborts the sweep.
func (g *Grid) Run(ctx context.Context, base *config.Config, logger *zap.Logger) ([]Point, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	points := g.Points()
	results := make([]Point, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, params := range points {
		eg.Go(func() error {
			results[i] = runPoint(ctx, base, params)
			if results[i].Err != nil {
				logger.Warn("sweep point failed", zap.Any("params", params), zap.Error(results[i].Err))
			}
			return ctx.Err()
		})
	}

	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runPoint(ctx context.Context, base *config.Config, params map[Param]float64) Point {
	pt := Point{Params: params}

	cfg, err := Apply(base, params)
	if err != nil {
		pt.Err = err
		return pt
	}
	core, err := cfg.Build(nil)
	if err != nil {
		pt.Err = err
		return pt
	}
	runner, err := sim.New(core, cfg.EngineConfig(), nil)
	if err != nil {
		pt.Err = err
		return pt
	}
	for _, m := range metrics.Defaults() {
		runner.AddMetric(m)
	}

	res, err := runner.Run(ctx, cfg.SimSchedule())
	if err != nil {
		pt.Err = err
		return pt
	}

	pt.Metrics = make(map[string]float64, len(res.Metrics)+1)
	for k, v := range res.Metrics {
		pt.Metrics[k] = v
	}
	pt.Metrics[ReferenceGrowthMetric] = res.ReferenceGrowth
	return pt
}

// Best returns the successful point with the largest (or smallest) value of
// metric.
func Best(points []Point, metric string, maximize bool) (Point, bool) {
	var best Point
	found := false
	for _, p := range points {
		if p.Err != nil {
			continue
		}
		v, ok := p.Metrics[metric]
		if !ok {
			continue
		}
		if !found || (maximize && v > best.Metrics[metric]) || (!maximize && v < best.Metrics[metric]) {
			best, found = p, true
		}
	}
	return best, found
}

// MetricNames lists the metrics every successful point carries.
func MetricNames() []string {
	names := []string{ReferenceGrowthMetric}
	for _, m := range metrics.Defaults() {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

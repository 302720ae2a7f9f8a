package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/arte/internal/report"
)

var (
	ErrInvalidSchedule   = errors.New("sim: invalid schedule")
	ErrScheduleComplete  = errors.New("sim: schedule complete")
	ErrScheduleNotLoaded = errors.New("sim: no schedule loaded")
)

// Schedule lists the time nodes of every cycle. Each node holds a power
// fraction that sets component temperatures between input (0) and hot (1).
type Schedule struct {
	Cycles         int
	PowerFractions []float64
}

func DefaultSchedule() Schedule {
	return Schedule{Cycles: 1, PowerFractions: []float64{1.0}}
}

func (s Schedule) NodesPerCycle() int { return len(s.PowerFractions) }
func (s Schedule) TotalNodes() int    { return s.Cycles * len(s.PowerFractions) }

func (s Schedule) Validate() error {
	if s.Cycles <= 0 {
		return fmt.Errorf("%w: cycles must be positive, got %d", ErrInvalidSchedule, s.Cycles)
	}
	if len(s.PowerFractions) == 0 {
		return fmt.Errorf("%w: at least one node per cycle", ErrInvalidSchedule)
	}
	for i, p := range s.PowerFractions {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return fmt.Errorf("%w: power fraction %d is %g", ErrInvalidSchedule, i, p)
		}
	}
	return nil
}

// NodeSample is the state of every cached fuel assembly after one node.
type NodeSample struct {
	Cycle         int
	Node          int
	PowerFraction float64
	// Growth and Height follow Result.Locations.
	Growth []float64
	Height []float64
}

type Metric interface {
	Name() string
	Observe(s NodeSample)
	Value() float64
	Reset()
}

type Observer interface {
	OnNode(s NodeSample)
}

type Result struct {
	Core            string
	Locations       []string
	Samples         []NodeSample
	Rows            []report.Row
	ReportErr       error
	Metrics         map[string]float64
	Reference       string
	ReferenceGrowth float64
}

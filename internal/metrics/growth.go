package metrics

import (
	"math"

	"github.com/san-kum/arte/internal/sim"
)

// MaxGrowth tracks the largest accumulated assembly growth (cm).
type MaxGrowth struct {
	name string
	max  float64
}

func NewMaxGrowth() *MaxGrowth {
	return &MaxGrowth{name: "max_growth_cm"}
}

func (m *MaxGrowth) Name() string { return m.name }

func (m *MaxGrowth) Observe(s sim.NodeSample) {
	for _, g := range s.Growth {
		m.max = math.Max(m.max, g)
	}
}

func (m *MaxGrowth) Value() float64 { return m.max }
func (m *MaxGrowth) Reset()         { m.max = 0 }

// CoreGrowth is the summed assembly growth after the latest node (cm).
type CoreGrowth struct {
	name  string
	total float64
}

func NewCoreGrowth() *CoreGrowth {
	return &CoreGrowth{name: "core_growth_cm"}
}

func (c *CoreGrowth) Name() string { return c.name }

func (c *CoreGrowth) Observe(s sim.NodeSample) {
	total := 0.0
	for _, g := range s.Growth {
		total += g
	}
	c.total = total
}

func (c *CoreGrowth) Value() float64 { return c.total }
func (c *CoreGrowth) Reset()         { c.total = 0 }

// StalledNodes counts nodes after which no assembly grew. At constant power
// every node after the first stalls.
type StalledNodes struct {
	name    string
	last    []float64
	stalled int
}

func NewStalledNodes() *StalledNodes {
	return &StalledNodes{name: "stalled_nodes"}
}

func (s *StalledNodes) Name() string { return s.name }

func (s *StalledNodes) Observe(n sim.NodeSample) {
	if s.last != nil {
		grew := false
		for i, g := range n.Growth {
			if i < len(s.last) && g > s.last[i] {
				grew = true
				break
			}
		}
		if !grew {
			s.stalled++
		}
	}
	s.last = append(s.last[:0], n.Growth...)
}

func (s *StalledNodes) Value() float64 { return float64(s.stalled) }

func (s *StalledNodes) Reset() {
	s.last = nil
	s.stalled = 0
}

// Defaults returns the metrics every run records.
func Defaults() []sim.Metric {
	return []sim.Metric{NewMaxGrowth(), NewCoreGrowth(), NewStalledNodes()}
}

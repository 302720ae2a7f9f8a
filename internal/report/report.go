// Package report carries per-assembly axial growth rows from the expansion
// engine to their destinations: an in-memory collector, CSV, JSON, YAML, or a
// rendered terminal table.
package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	Title    = "Thermal Axial Expansion per Assembly"
	Subtitle = "ARTE Results"
)

// Header is the column layout shared by every writer.
var Header = []string{"Assembly ID", "L0 (cm)", "L (cm)", "ΔL (cm)", "Strain (%)"}

// Row is one assembly's cold height, warm height, growth and strain.
type Row struct {
	Label     string  `json:"label" yaml:"label"`
	ColdCM    float64 `json:"cold_cm" yaml:"cold_cm"`
	WarmCM    float64 `json:"warm_cm" yaml:"warm_cm"`
	GrowthCM  float64 `json:"growth_cm" yaml:"growth_cm"`
	StrainPct float64 `json:"strain_pct" yaml:"strain_pct"`
}

// Sink receives report rows.
type Sink interface {
	WriteRow(Row) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Row) error

func (f SinkFunc) WriteRow(r Row) error { return f(r) }

// Collector keeps rows in memory.
type Collector struct {
	Rows []Row
}

func (c *Collector) WriteRow(r Row) error {
	c.Rows = append(c.Rows, r)
	return nil
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

type Summary struct {
	Assemblies    int     `json:"assemblies" yaml:"assemblies"`
	TotalGrowthCM float64 `json:"total_growth_cm" yaml:"total_growth_cm"`
	MeanStrainPct float64 `json:"mean_strain_pct" yaml:"mean_strain_pct"`
	MaxStrainPct  float64 `json:"max_strain_pct" yaml:"max_strain_pct"`
	StdStrainPct  float64 `json:"std_strain_pct" yaml:"std_strain_pct"`
}

func Summarize(rows []Row) Summary {
	s := Summary{Assemblies: len(rows)}
	if len(rows) == 0 {
		return s
	}

	growth := make([]float64, len(rows))
	strain := make([]float64, len(rows))
	for i, r := range rows {
		growth[i] = r.GrowthCM
		strain[i] = r.StrainPct
	}

	s.TotalGrowthCM = floats.Sum(growth)
	s.MaxStrainPct = floats.Max(strain)
	if len(rows) > 1 {
		s.MeanStrainPct, s.StdStrainPct = stat.MeanStdDev(strain, nil)
	} else {
		s.MeanStrainPct = strain[0]
	}
	return s
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/san-kum/arte/internal/config"
	"github.com/san-kum/arte/internal/report"
	"github.com/san-kum/arte/internal/sim"
)

var ErrUnknownFormat = errors.New("storage: unknown export format")

const (
	metadataFile = "metadata.json"
	growthFile   = "growth.csv"
	reportFile   = "report.csv"
	coreFile     = "core.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID              string             `json:"id"`
	Core            string             `json:"core"`
	Timestamp       time.Time          `json:"timestamp"`
	Cycles          int                `json:"cycles"`
	PowerFractions  []float64          `json:"power_fractions"`
	ColdTemperature *float64           `json:"cold_temperature"`
	Locations       []string           `json:"locations"`
	Reference       string             `json:"reference"`
	ReferenceGrowth float64            `json:"reference_growth_cm"`
	Metrics         map[string]float64 `json:"metrics"`
	ReportErrors    []string           `json:"report_errors,omitempty"`
}

// GrowthSeries is the per-node history stored in growth.csv.
type GrowthSeries struct {
	Locations []string
	Cycle     []int
	Node      []int
	Power     []float64
	// Growth[i][j] is the growth of Locations[j] after node i.
	Growth [][]float64
}

func newRunID(core string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", core, now.Unix(), uuid.NewString()[:8])
}

// Save writes a finished run: metadata, node history, the assembly report
// and the core definition it ran from.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	now := time.Now()
	runID := newRunID(result.Core, now)
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Core:            result.Core,
		Timestamp:       now,
		Cycles:          cfg.Schedule.Cycles,
		PowerFractions:  cfg.Schedule.PowerFractions,
		ColdTemperature: cfg.ColdTemperature,
		Locations:       result.Locations,
		Reference:       result.Reference,
		ReferenceGrowth: result.ReferenceGrowth,
		Metrics:         result.Metrics,
	}
	for _, err := range multierr.Errors(result.ReportErr) {
		meta.ReportErrors = append(meta.ReportErrors, err.Error())
	}

	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, growthFile), func(w io.Writer) error {
		return writeGrowth(w, result)
	}); err != nil {
		return "", err
	}

	if err := writeFile(filepath.Join(runDir, reportFile), func(w io.Writer) error {
		return report.WriteCSV(w, result.Rows)
	}); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, coreFile), cfg); err != nil {
		return "", err
	}

	return runID, nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeGrowth(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"cycle", "node", "power"}
	header = append(header, result.Locations...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, sample := range result.Samples {
		row := []string{
			strconv.Itoa(sample.Cycle),
			strconv.Itoa(sample.Node),
			strconv.FormatFloat(sample.PowerFraction, 'f', 6, 64),
		}
		for _, g := range sample.Growth {
			row = append(row, strconv.FormatFloat(g, 'f', 6, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, coreFile))
}

func (s *Store) LoadReport(runID string) ([]report.Row, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, reportFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return report.ReadCSV(f)
}

func (s *Store) LoadGrowth(runID string) (*GrowthSeries, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, growthFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty growth history", runID)
	}

	series := &GrowthSeries{Locations: records[0][3:]}
	for i, record := range records[1:] {
		cycle, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", growthFile, i+2, err)
		}
		node, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", growthFile, i+2, err)
		}
		power, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", growthFile, i+2, err)
		}

		growth := make([]float64, 0, len(record)-3)
		for _, field := range record[3:] {
			g, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", growthFile, i+2, err)
			}
			growth = append(growth, g)
		}

		series.Cycle = append(series.Cycle, cycle)
		series.Node = append(series.Node, node)
		series.Power = append(series.Power, power)
		series.Growth = append(series.Growth, growth)
	}

	return series, nil
}

// Column returns the growth history of one location.
func (g *GrowthSeries) Column(location string) ([]float64, bool) {
	for j, loc := range g.Locations {
		if loc != location {
			continue
		}
		col := make([]float64, len(g.Growth))
		for i, row := range g.Growth {
			col[i] = row[j]
		}
		return col, true
	}
	return nil, false
}

// Export writes the stored assembly report as json, yaml or csv.
func (s *Store) Export(w io.Writer, runID, format string) error {
	rows, err := s.LoadReport(runID)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return report.WriteJSON(w, rows)
	case "yaml":
		return report.WriteYAML(w, rows)
	case "csv":
		return report.WriteCSV(w, rows)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

type document struct {
	Title   string  `json:"title" yaml:"title"`
	Rows    []Row   `json:"rows" yaml:"rows"`
	Summary Summary `json:"summary" yaml:"summary"`
}

func cells(r Row) []string {
	return []string{
		r.Label,
		strconv.FormatFloat(r.ColdCM, 'f', 2, 64),
		strconv.FormatFloat(r.WarmCM, 'f', 2, 64),
		strconv.FormatFloat(r.GrowthCM, 'f', 2, 64),
		strconv.FormatFloat(r.StrainPct, 'f', 3, 64),
	}
}

func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(cells(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		vals := make([]float64, 4)
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("report: line %d column %q: %w", i+2, Header[j+1], err)
			}
			vals[j] = v
		}
		rows = append(rows, Row{
			Label:     rec[0],
			ColdCM:    vals[0],
			WarmCM:    vals[1],
			GrowthCM:  vals[2],
			StrainPct: vals[3],
		})
	}
	return rows, nil
}

func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(document{Title: Title, Rows: rows, Summary: Summarize(rows)})
}

func WriteYAML(w io.Writer, rows []Row) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Title: Title, Rows: rows, Summary: Summarize(rows)}); err != nil {
		return err
	}
	return enc.Close()
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Foreground(lipgloss.Color("#00ccff")).Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
)

// RenderTable formats rows as a bordered terminal table followed by a
// one-line summary.
func RenderTable(rows []Row) string {
	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = cells(r)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Header...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})

	s := Summarize(rows)
	summary := fmt.Sprintf("%d assemblies  total ΔL %.2f cm  mean strain %.3f%%  max strain %.3f%%",
		s.Assemblies, s.TotalGrowthCM, s.MeanStrainPct, s.MaxStrainPct)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(Title),
		t.Render(),
		mutedStyle.Render(summary),
	)
}

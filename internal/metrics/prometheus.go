package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/arte/internal/sim"
)

// Exporter publishes assembly growth as Prometheus metrics. It observes a
// runner and writes the text exposition format on demand.
type Exporter struct {
	registry  *prometheus.Registry
	locations []string

	growth *prometheus.GaugeVec
	height *prometheus.GaugeVec
	power  prometheus.Gauge
	nodes  prometheus.Counter
}

func NewExporter(core string, locations []string) *Exporter {
	labels := prometheus.Labels{"core": core}

	e := &Exporter{
		registry:  prometheus.NewRegistry(),
		locations: locations,
		growth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "arte",
			Name:        "assembly_growth_cm",
			Help:        "Accumulated axial growth of the fuel stack per assembly.",
			ConstLabels: labels,
		}, []string{"location"}),
		height: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "arte",
			Name:        "assembly_height_cm",
			Help:        "Current height of every block in the assembly.",
			ConstLabels: labels,
		}, []string{"location"}),
		power: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "arte",
			Name:        "power_fraction",
			Help:        "Power fraction of the latest time node.",
			ConstLabels: labels,
		}),
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "arte",
			Name:        "expansion_nodes_total",
			Help:        "Time nodes expanded.",
			ConstLabels: labels,
		}),
	}

	e.registry.MustRegister(e.growth, e.height, e.power, e.nodes)
	return e
}

func (e *Exporter) OnNode(s sim.NodeSample) {
	for i, loc := range e.locations {
		if i < len(s.Growth) {
			e.growth.WithLabelValues(loc).Set(s.Growth[i])
		}
		if i < len(s.Height) {
			e.height.WithLabelValues(loc).Set(s.Height[i])
		}
	}
	e.power.Set(s.PowerFraction)
	e.nodes.Inc()
}

func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// WriteTextfile writes the current values in the node-exporter textfile format.
func (e *Exporter) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, e.registry)
}

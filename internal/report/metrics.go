package report

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nozo-moto/connwatch/internal/errors"
	"github.com/nozo-moto/connwatch/pkg/types"
)

// MetricsWriter saves per-run counts in the Prometheus text format so a
// node_exporter textfile collector can pick them up.
type MetricsWriter struct {
	path string
}

func NewMetricsWriter(path string) *MetricsWriter {
	return &MetricsWriter{path: path}
}

func (m *MetricsWriter) Report(_ context.Context, rep *types.Report) error {
	if err := prometheus.WriteToTextfile(m.path, Registry(rep)); err != nil {
		return errors.Attr(errors.Wrap(err, errors.KindIO, "failed to write metrics file"), "path", m.path)
	}
	return nil
}

// Registry returns a fresh registry holding the gauges for rep.
func Registry(rep *types.Report) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	byState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "connwatch",
		Name:      "connections",
		Help:      "IPv4 TCP connections observed in the last run, by state.",
	}, []string{"state"})
	for state, n := range rep.CountByState() {
		byState.WithLabelValues(string(state)).Set(float64(n))
	}

	byVerdict := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "connwatch",
		Name:      "results",
		Help:      "Analysis results of the last run, by verdict.",
	}, []string{"verdict"})
	for _, v := range []types.Verdict{types.VerdictBenign, types.VerdictSuspicious, types.VerdictUnknown} {
		byVerdict.WithLabelValues(string(v)).Set(0)
	}
	for v, n := range rep.CountByVerdict() {
		byVerdict.WithLabelValues(string(v)).Set(float64(n))
	}

	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "connwatch",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last report was generated.",
	})
	lastRun.Set(float64(rep.GeneratedAt.Unix()))

	reg.MustRegister(byState, byVerdict, lastRun)
	return reg
}

package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestCollectorObserveIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveDecision()
	c.ObserveDecision()
	c.ObserveConflict()
	c.SetNogoodCount(5)

	metrics, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range metrics {
		for _, m := range mf.Metric {
			switch {
			case m.Counter != nil:
				values[mf.GetName()] = m.Counter.GetValue()
			case m.Gauge != nil:
				values[mf.GetName()] = m.Gauge.GetValue()
			}
		}
	}
	require.Equal(t, 2.0, values["hexsolve_decisions_total"])
	require.Equal(t, 1.0, values["hexsolve_conflicts_total"])
	require.Equal(t, 5.0, values["hexsolve_nogoods"])
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "things_total", Help: "things"}

	first, err := Register(reg, prometheus.NewCounter(opts))
	require.NoError(t, err)
	second, err := Register(reg, prometheus.NewCounter(opts))
	require.NoError(t, err)

	second.Inc()
	assert.Same(t, first, second)
}

func TestRegister_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := Register(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: "x_total", Help: "a"}))
	require.NoError(t, err)

	_, err = Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: "x_total", Help: "b"}))

	assert.Error(t, err)
}

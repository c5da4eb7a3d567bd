package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers_BeforeInitAreNoops(t *testing.T) {
	if batchesTotal != nil {
		t.Skip("collectors already registered by another test")
	}
	assert.NotPanics(t, func() {
		ObserveBatch("ok", time.Millisecond)
		IncOutlier("temperature", "iqr")
		IncCommandDropped("")
	})
}

func TestInit_RegistersCollectors(t *testing.T) {
	Init(nil)
	Init(nil)

	IncOutlier("co2", "range")
	IncCommandEmitted("hvac_system")
	IncCommandSuppressed("override")
	ObserveBatch("ok", 2*time.Millisecond)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["hearth_outliers_total"])
	assert.True(t, names["hearth_commands_emitted_total"])
	assert.True(t, names["hearth_commands_suppressed_total"])
	assert.True(t, names["hearth_batches_total"])
}

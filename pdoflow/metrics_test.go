package pdoflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterWorkerMetrics_OnlyRegistersOnce(t *testing.T) {
	fm := newFakeMetrics()
	registerWorkerMetrics(fm)
	registerWorkerMetrics(fm)

	assert.Equal(t, "Counter", fm.registered[metricRecordsClaimed])
	assert.Equal(t, "Counter", fm.registered[metricClaimErrors])
	assert.Equal(t, "Counter", fm.registered[metricIdleSleeps])
	assert.Equal(t, "Histogram", fm.registered[metricBatchSize])
}

func TestRegisterPoolMetrics_OnlyRegistersOnce(t *testing.T) {
	fm := newFakeMetrics()
	registerPoolMetrics(fm)
	registerPoolMetrics(fm)

	assert.Equal(t, "Gauge", fm.registered[metricActiveWorkers])
	assert.Equal(t, "Counter", fm.registered[metricRespawns])
}

package backend

import (
	"github.com/prometheus/client_golang/prometheus"

	"ocm.software/open-component-model/managerproxy/metrics"
)

const component = "backend"

// QueueSizeGauge tracks the number of calls waiting for the backend worker.
var QueueSizeGauge = metrics.MustRegisterGauge(
	component,
	"queue_size",
	"Number of calls waiting for the backend worker.",
)

// CallDurationHistogram tracks how long calls occupy the backend worker.
var CallDurationHistogram = metrics.MustRegisterHistogram(
	component,
	"call_duration_seconds",
	"Duration of calls executed on the backend worker.",
	prometheus.DefBuckets,
)

// PanicsCounterTotal counts recovered panics of backend calls.
var PanicsCounterTotal = metrics.MustRegisterCounter(
	component,
	"panics_total",
	"Number of panics recovered from backend calls.",
)

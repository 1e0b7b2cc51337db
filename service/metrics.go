package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"ocm.software/open-component-model/managerproxy/metrics"
)

const (
	component = "service"

	// MethodLabel is the name of the label for the called RPC method.
	MethodLabel = "method"
	// CodeLabel is the name of the label for the gRPC status code of a call.
	CodeLabel = "code"
)

// CallsCounterTotal counts handled calls.
// [method, code].
var CallsCounterTotal = metrics.MustRegisterCounterVec(
	component,
	"calls_total",
	"Number of handled calls.",
	MethodLabel, CodeLabel,
)

// CallDurationHistogram tracks the duration of handled calls.
// [method].
var CallDurationHistogram = metrics.MustRegisterHistogramVec(
	component,
	"call_duration_seconds",
	"Duration of handled calls.",
	prometheus.DefBuckets,
	MethodLabel,
)

// LiveInstancesGauge tracks the number of live manager instances.
var LiveInstancesGauge = metrics.MustRegisterGauge(
	component,
	"live_instances",
	"Number of live manager instances.",
)

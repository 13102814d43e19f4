package telemetry

// SLI metric names used for instrumentation.
const (
	// Latency
	MetricAPILatencyP50 = "api.latency.p50"
	MetricAPILatencyP95 = "api.latency.p95"
	MetricAPILatencyP99 = "api.latency.p99"

	// Throughput
	MetricRequestsPerSec = "api.requests_per_second"

	// Data freshness
	MetricFeedFreshness = "feeds.data_age_seconds"
	MetricDecodeLatency = "decode.latency"

	// Availability
	MetricUptime = "service.uptime_percentage"

	// Business
	MetricShapesIngested = "business.shapes_ingested"
	MetricDecodeFailures = "business.decode_failures"
)

package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricHealthScore     = "HealthScore"
	MetricSinkPublish     = "SinkPublish"

	// Dimension Keys
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimSink     = "Sink"
	DimResult   = "Result"
	DimMood     = "Mood"

	// Metric Namespace
	MetricNamespace = "Verdant"
)

package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"verdant/internal/types"
)

// metricPutTimeout bounds one PutMetricData call made off a request context.
const metricPutTimeout = 2 * time.Second

// CloudWatchClient is the subset of the CloudWatch API the collector uses.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ MetricsCollector = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics emits API and domain metrics to CloudWatch.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Method, Endpoint, Status}
//   - HealthScore: Dims {Mood}, one datum per scored reading
//   - SinkPublish: Dims {Sink, Result}
//
// Put failures are logged and never surface to callers.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics publishes to namespace, or types.MetricNamespace when
// namespace is empty.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordRequest implements MetricsCollector.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimMethod, method),
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimStatus, status),
	}

	ctx, cancel := context.WithTimeout(context.Background(), metricPutTimeout)
	defer cancel()

	m.put(ctx, "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordHealthScore emits one scored reading.
func (m *CloudWatchMetrics) RecordHealthScore(ctx context.Context, mood string, score int) {
	m.put(ctx, "health score", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricHealthScore),
		Value:      aws.Float64(float64(score)),
		Unit:       cwtypes.StandardUnitNone,
		Dimensions: []cwtypes.Dimension{dimension(types.DimMood, mood)},
	})
}

// RecordSinkPublish emits one publish outcome ("success", "failure",
// "dropped").
func (m *CloudWatchMetrics) RecordSinkPublish(ctx context.Context, sink, result string) {
	m.put(ctx, "sink publish", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricSinkPublish),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dimension(types.DimSink, sink),
			dimension(types.DimResult, result),
		},
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to record "+what+" metric", "error", err.Error())
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

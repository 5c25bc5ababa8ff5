package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metrics publishes application metrics to CloudWatch.
// A nil client turns every call into a no-op, which is what tests
// and local development use.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client
}

// NewMetrics creates a new metrics instance
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
	}
}

// RecordSweep records the outcome of one reconciliation sweep tick
func (m *Metrics) RecordSweep(ctx context.Context, processed, failed, skipped int, duration time.Duration) {
	if m.client == nil {
		return
	}

	now := time.Now()
	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("SweepProcessed"),
			Value:      aws.Float64(float64(processed)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		{
			MetricName: aws.String("SweepFailed"),
			Value:      aws.Float64(float64(failed)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		{
			MetricName: aws.String("SweepSkipped"),
			Value:      aws.Float64(float64(skipped)),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(now),
		},
		{
			MetricName: aws.String("SweepDuration"),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
			Timestamp:  aws.Time(now),
		},
	}

	m.put(ctx, metricData)
}

// RecordReconcile records a single reconciliation and its outcome
func (m *Metrics) RecordReconcile(ctx context.Context, trigger string, delayed bool, duration time.Duration) {
	if m.client == nil {
		return
	}

	outcome := "not_delayed"
	if delayed {
		outcome = "delayed"
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("ReconcileCount"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Trigger"), Value: aws.String(trigger)},
				{Name: aws.String("Outcome"), Value: aws.String(outcome)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("ReconcileLatency"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Trigger"), Value: aws.String(trigger)},
			},
			Value:     aws.Float64(float64(duration.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.put(ctx, metricData)
}

// RecordError records error occurrences by type
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m.client == nil {
		return
	}

	m.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Dimensions: []types.Dimension{
				{Name: aws.String("ErrorType"), Value: aws.String(errorType)},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	})
}

func (m *Metrics) put(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	// Metric delivery is best-effort; failures never affect the operation.
	m.client.PutMetricData(ctx, input)
}

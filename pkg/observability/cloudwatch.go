package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// cloudWatchBatchSize is the number of datums sent per PutMetricData call.
const cloudWatchBatchSize = 20

// MetricsAPI is the part of the CloudWatch client the recorder uses.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder buffers metrics in memory and ships them on Flush.
// Lambda handlers flush once per invocation.
type CloudWatchRecorder struct {
	namespace string
	client    MetricsAPI
	now       func() time.Time

	mu     sync.Mutex
	buffer []types.MetricDatum
}

// NewCloudWatchRecorder creates a recorder for the given namespace
func NewCloudWatchRecorder(namespace string, client MetricsAPI) *CloudWatchRecorder {
	return &CloudWatchRecorder{
		namespace: namespace,
		client:    client,
		now:       time.Now,
	}
}

func (r *CloudWatchRecorder) add(name string, value float64, unit types.StandardUnit, dims ...string) {
	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(r.now()),
	}
	for i := 0; i+1 < len(dims); i += 2 {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}

	r.mu.Lock()
	r.buffer = append(r.buffer, datum)
	r.mu.Unlock()
}

// HTTPRequest records a served request.
func (r *CloudWatchRecorder) HTTPRequest(method, route string, status int, duration time.Duration) {
	r.add("RequestLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		"Method", method, "Route", route, "Status", strconv.Itoa(status))
}

// GraphQuery records a graph database call.
func (r *CloudWatchRecorder) GraphQuery(operation string, duration time.Duration, err error) {
	r.add("GraphQueryLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		"Operation", operation, "Status", Outcome(err))
}

// Lookup records an autocomplete lookup.
func (r *CloudWatchRecorder) Lookup(field, outcome string, duration time.Duration) {
	r.add("AutocompleteLookup", 1, types.StandardUnitCount, "Field", field, "Outcome", outcome)
	if outcome != OutcomeSkipped {
		r.add("AutocompleteLookupLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, "Field", field)
	}
}

// Render records a finished render.
func (r *CloudWatchRecorder) Render(outcome string, recordCount int, duration time.Duration) {
	r.add("RenderLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, "Outcome", outcome)
	r.add("RenderRecords", float64(recordCount), types.StandardUnitCount, "Outcome", outcome)
}

// CacheAccess records a cache hit or miss.
func (r *CloudWatchRecorder) CacheAccess(name string, hit bool) {
	metric := "CacheMiss"
	if hit {
		metric = "CacheHit"
	}
	r.add(metric, 1, types.StandardUnitCount, "Cache", name)
}

// ViewsOpen records the number of open views.
func (r *CloudWatchRecorder) ViewsOpen(n int) {
	r.add("ViewsOpen", float64(n), types.StandardUnitCount)
}

// Pending returns the number of buffered datums.
func (r *CloudWatchRecorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Flush sends every buffered datum. Datums of failed batches are dropped.
func (r *CloudWatchRecorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	data := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if r.client == nil || len(data) == 0 {
		return nil
	}

	var firstErr error
	for start := 0; start < len(data); start += cloudWatchBatchSize {
		end := start + cloudWatchBatchSize
		if end > len(data) {
			end = len(data)
		}
		_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(r.namespace),
			MetricData: data[start:end],
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return firstErr
}

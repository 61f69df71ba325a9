package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "timely"
	serviceVersion = "1.0.0"
)

// OTLPRecorder ships counters to an OTLP collector over gRPC.
type OTLPRecorder struct {
	provider   *sdkmetric.MeterProvider
	heartbeats metric.Int64Counter
	segments   metric.Int64Counter
	extends    metric.Int64Counter
	pushes     metric.Int64Counter
	accepted   metric.Int64Counter
	duplicates metric.Int64Counter
}

// NewOTLPRecorder connects to the collector at endpoint (host:port).
func NewOTLPRecorder(ctx context.Context, endpoint string, insecureConn bool) (*OTLPRecorder, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(endpoint)}
	if insecureConn {
		opts = append(opts,
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	r := &OTLPRecorder{provider: provider}
	for _, c := range []struct {
		dest *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&r.heartbeats, "timely_heartbeats_total", "Snapshots processed by the segmenter", "{heartbeat}"},
		{&r.segments, "timely_events_started_total", "New events started", "{event}"},
		{&r.extends, "timely_events_extended_total", "In-place event extensions", "{event}"},
		{&r.pushes, "timely_sync_pushes_total", "Completed sync pushes", "{push}"},
		{&r.accepted, "timely_sync_accepted_total", "Events accepted by the hub", "{event}"},
		{&r.duplicates, "timely_sync_duplicates_total", "Events deduplicated by the hub", "{event}"},
	} {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("creating counter %s: %w", c.name, err)
		}
		*c.dest = counter
	}
	return r, nil
}

func (r *OTLPRecorder) RecordHeartbeat(ctx context.Context) { r.heartbeats.Add(ctx, 1) }
func (r *OTLPRecorder) RecordSegment(ctx context.Context)   { r.segments.Add(ctx, 1) }
func (r *OTLPRecorder) RecordExtend(ctx context.Context)    { r.extends.Add(ctx, 1) }

func (r *OTLPRecorder) RecordPush(ctx context.Context, accepted, duplicates int64) {
	r.pushes.Add(ctx, 1)
	r.accepted.Add(ctx, accepted)
	r.duplicates.Add(ctx, duplicates)
}

// Close shuts the provider down, flushing pending metrics.
func (r *OTLPRecorder) Close(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

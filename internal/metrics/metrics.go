// Package metrics exports daemon counters to an OTLP collector. When no
// endpoint is configured the no-op recorder keeps the call sites unchanged.
package metrics

import "context"

// Recorder receives the daemon's operational counters.
type Recorder interface {
	// RecordHeartbeat counts one processed snapshot.
	RecordHeartbeat(ctx context.Context)
	// RecordSegment counts one newly started event.
	RecordSegment(ctx context.Context)
	// RecordExtend counts one extended event.
	RecordExtend(ctx context.Context)
	// RecordPush records the outcome of one completed sync push.
	RecordPush(ctx context.Context, accepted, duplicates int64)
	// Close flushes pending metrics.
	Close(ctx context.Context) error
}

// NoOp is a Recorder that does nothing.
type NoOp struct{}

func NewNoOp() *NoOp { return &NoOp{} }

func (*NoOp) RecordHeartbeat(context.Context)           {}
func (*NoOp) RecordSegment(context.Context)             {}
func (*NoOp) RecordExtend(context.Context)              {}
func (*NoOp) RecordPush(context.Context, int64, int64)  {}
func (*NoOp) Close(context.Context) error               { return nil }

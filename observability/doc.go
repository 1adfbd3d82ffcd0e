// Package observability wires OpenTelemetry tracing and metrics for the API
// and worker processes.
//
//	shutdown, err := observability.Setup(ctx, cfg, "transcriber-worker", version.GetVersion(), "production")
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "worker.handle", observability.AttrTaskID.String(id))
//	defer func() { observability.EndSpan(span, err) }()
//
//	metrics, err := observability.NewMetrics(observability.Meter("transcriber"))
//	metrics.RecordTaskEnd(ctx, "COMPLETED", elapsed)
//
// A nil *Metrics is valid and records nothing.
package observability

// Package observability provides OpenTelemetry tracing and metrics for
// tracectl's engines, following cloud-native production practices.
//
// # Tracing and metrics
//
// Initialize a provider at application startup:
//
//	p, err := observability.New(ctx, &observability.Config{
//		ServiceName:  "tracectl",
//		OTLPEndpoint: "otel-collector:4317",
//		SampleRate:   0.1, // 10% sampling in production
//	})
//	defer p.Shutdown(ctx)
//
// Track an operation from start to finish:
//
//	ctx, finish := p.TrackOperation(ctx, "items.resolve", observability.ItemOperation(dfid, itemType)...)
//	defer finish(err)
//
// # SLIs and SLOs
//
// SLIRegistry and SLOTracker let an operator define indicators and
// objectives per operation and evaluate burn rate against an error budget:
//
//	tracker := observability.NewSLOTracker()
//	tracker.SetTarget(&observability.SLOTarget{Operation: "items.resolve", SuccessRate: 0.995})
//	tracker.Record(observability.SLOObservation{Operation: "items.resolve", Success: true})
//
// # Audit timeline
//
// AuditTimeline records a content-hashed, queryable log of actions,
// decisions, proofs, and conflict reconciliations, independent of the
// tracing backend's retention window.
package observability

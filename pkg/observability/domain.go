package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Domain semantic convention attributes, following the same dotted
// namespace style as OpenTelemetry's own semconv packages.
var (
	AttrDFID     = attribute.Key("tracectl.item.dfid")
	AttrItemType = attribute.Key("tracectl.item.type")

	AttrEventID   = attribute.Key("tracectl.event.id")
	AttrEventType = attribute.Key("tracectl.event.type")

	AttrCircuitID = attribute.Key("tracectl.circuit.id")
	AttrCircuitOp = attribute.Key("tracectl.circuit.operation")

	AttrAdapterVariant = attribute.Key("tracectl.adapter.variant")
	AttrStorageKind    = attribute.Key("tracectl.storage.kind")

	AttrAnchorChain   = attribute.Key("tracectl.anchor.chain")
	AttrAnchorTxID    = attribute.Key("tracectl.anchor.tx_id")
	AttrAnchorMode    = attribute.Key("tracectl.anchor.mode")
	AttrVerifyOutcome = attribute.Key("tracectl.verify.outcome")
)

// ItemOperation creates attributes for an item read/write operation.
func ItemOperation(dfid, itemType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDFID.String(dfid),
		AttrItemType.String(itemType),
	}
}

// EventOperation creates attributes for an event append.
func EventOperation(dfid, eventID, eventType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDFID.String(dfid),
		AttrEventID.String(eventID),
		AttrEventType.String(eventType),
	}
}

// CircuitOperation creates attributes for a circuit membership or sharing
// operation.
func CircuitOperation(circuitID, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrCircuitID.String(circuitID),
		AttrCircuitOp.String(operation),
	}
}

// StorageOperation creates attributes for a storage adapter call.
func StorageOperation(variant, storageKind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAdapterVariant.String(variant),
		AttrStorageKind.String(storageKind),
	}
}

// AnchorOperation creates attributes for a blockchain anchoring call.
func AnchorOperation(chain, txID, mode string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrAnchorChain.String(chain),
		AttrAnchorTxID.String(txID),
		AttrAnchorMode.String(mode),
	}
}

// VerificationOperation creates attributes for a snapshot/proof
// verification outcome.
func VerificationOperation(dfid, outcome string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDFID.String(dfid),
		AttrVerifyOutcome.String(outcome),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records err, if any, on the current span.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}

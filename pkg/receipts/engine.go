package receipts

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/defarm/tracectl/pkg/canonicalize"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// Engine implements spec §4.3's receipt-ingest half: Create hashes and
// stores the bytes' identity, then enqueues a Pending DataLakeEntry for
// the Verification Engine.
type Engine struct {
	store   Store
	entries EntryQueue
	schema  *IdentifierSchema
	log     *slog.Logger
	nowFunc func() time.Time
}

// New returns an Engine backed by store and entries.
func New(store Store, entries EntryQueue, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, entries: entries, log: log, nowFunc: time.Now}
}

// WithIdentifierSchema attaches a compiled IdentifierSchema; Create then
// rejects identifiers that are structurally well-typed Go but violate the
// wire-level schema (empty namespace, unrecognized kind, ...). An Engine
// with none skips schema validation.
func (e *Engine) WithIdentifierSchema(s *IdentifierSchema) *Engine {
	e.schema = s
	return e
}

// Create hashes data, persists a Receipt, and enqueues a Pending
// DataLakeEntry referencing it. Identifiers are the receipt's sole
// indexing substrate and must be non-empty per spec.
func (e *Engine) Create(ctx context.Context, data []byte, identifiers []types.Identifier) (*types.Receipt, *types.DataLakeEntry, error) {
	if len(identifiers) == 0 {
		return nil, nil, traceerr.Validation("receipt requires at least one identifier")
	}
	if e.schema != nil {
		if err := e.schema.Validate(identifiers); err != nil {
			return nil, nil, err
		}
	}

	receipt := &types.Receipt{
		ID:          uuid.NewString(),
		ContentHash: canonicalize.ContentHash(data),
		Timestamp:   e.nowFunc().UTC(),
		DataSize:    len(data),
		Identifiers: identifiers,
	}
	if err := e.store.PutReceipt(ctx, receipt); err != nil {
		return nil, nil, traceerr.Storage(err, "persisting receipt %s", receipt.ID)
	}

	entry := &types.DataLakeEntry{
		EntryID:     uuid.NewString(),
		ReceiptID:   receipt.ID,
		Identifiers: identifiers,
		ContentHash: receipt.ContentHash,
		Status:      types.EntryPending,
	}
	if err := e.entries.PutEntry(ctx, entry); err != nil {
		return nil, nil, traceerr.Storage(err, "enqueueing entry for receipt %s", receipt.ID)
	}

	e.log.Debug("receipt created", "receipt_id", receipt.ID, "entry_id", entry.EntryID)
	return receipt, entry, nil
}

// Get fetches a receipt by id.
func (e *Engine) Get(ctx context.Context, id string) (*types.Receipt, error) {
	return e.store.GetReceipt(ctx, id)
}

// VerifyResult is the outcome of hash-matching a receipt against
// caller-supplied bytes.
type VerifyResult struct {
	IsValid      bool   `json:"is_valid"`
	OriginalHash string `json:"original_hash"`
	ProvidedHash string `json:"provided_hash"`
}

// Verify recomputes the content hash of data and compares it against the
// receipt's stored hash. It never mutates the receipt: a receipt is
// immutable once stored.
func (e *Engine) Verify(ctx context.Context, id string, data []byte) (VerifyResult, error) {
	receipt, err := e.store.GetReceipt(ctx, id)
	if err != nil {
		return VerifyResult{}, err
	}
	provided := canonicalize.ContentHash(data)
	return VerifyResult{
		IsValid:      provided == receipt.ContentHash,
		OriginalHash: receipt.ContentHash,
		ProvidedHash: provided,
	}, nil
}

// Search looks up receipts by identifier. At least one of
// namespace/key/value must be non-empty.
func (e *Engine) Search(ctx context.Context, namespace, key, value string) ([]*types.Receipt, error) {
	if namespace == "" && key == "" && value == "" {
		return nil, traceerr.Validation("search requires at least one of namespace, key, or value")
	}
	return e.store.SearchReceipts(ctx, namespace, key, value)
}

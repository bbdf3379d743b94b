package types

import "time"

// StorageKind names a closed set of storage backends an item or event's
// bytes may be replicated to. The pair (read adapter, write adapter) that
// handles a given kind is resolved by the storage adapter registry, not here.
type StorageKind string

const (
	StorageLocal    StorageKind = "local"
	StorageIPFS     StorageKind = "ipfs"
	StorageStellar  StorageKind = "stellar"
	StorageEthereum StorageKind = "ethereum"
	StorageArweave  StorageKind = "arweave"
)

// StorageLocation identifies one physical copy of an item's or event's data.
type StorageLocation struct {
	Kind       StorageKind `json:"kind"`
	Reference  string      `json:"reference"` // path, CID, tx hash, or contract/NFT id depending on Kind
	Network    string      `json:"network,omitempty"`  // e.g. "testnet" / "mainnet" for Stellar/Ethereum
	RecordedAt time.Time   `json:"recorded_at"`
}

// StorageRecord is one adapter write: the location it produced plus whether
// it is the currently-primary copy for retrieval.
type StorageRecord struct {
	Location    StorageLocation `json:"location"`
	IsPrimary   bool            `json:"is_primary"`
	AdapterID   string          `json:"adapter_id"`
	TriggeredBy string          `json:"triggered_by,omitempty"`
}

// ItemStorageHistory is the append-only log of every storage location an
// item's (or its events') bytes have ever been written to, plus which one
// is primary for reads right now.
type ItemStorageHistory struct {
	DFID    string          `json:"dfid"`
	Records []StorageRecord `json:"records"`
}

// PrimaryLocation returns the currently-primary record, if any.
func (h *ItemStorageHistory) PrimaryLocation() (StorageRecord, bool) {
	for _, r := range h.Records {
		if r.IsPrimary {
			return r, true
		}
	}
	return StorageRecord{}, false
}

// Locations returns every distinct StorageLocation recorded, in write order.
func (h *ItemStorageHistory) Locations() []StorageLocation {
	out := make([]StorageLocation, 0, len(h.Records))
	for _, r := range h.Records {
		out = append(out, r.Location)
	}
	return out
}

// SetPrimary marks the record matching loc as primary and demotes all
// others. Returns false if no matching record was found.
func (h *ItemStorageHistory) SetPrimary(loc StorageLocation) bool {
	found := false
	for i := range h.Records {
		if h.Records[i].Location == loc {
			h.Records[i].IsPrimary = true
			found = true
		} else {
			h.Records[i].IsPrimary = false
		}
	}
	return found
}

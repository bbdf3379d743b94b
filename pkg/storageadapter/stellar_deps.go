package storageadapter

import "context"

// StellarNetwork names which Stellar network a Stellar-backed adapter
// anchors to.
type StellarNetwork string

const (
	StellarTestnet StellarNetwork = "testnet"
	StellarMainnet StellarNetwork = "mainnet"
)

// StellarClient is the minimal chain-write surface the Stellar-backed
// adapters need. pkg/bridge implements this against the IPCM and NFT
// contracts; tests use an in-memory fake.
type StellarClient interface {
	// EmitEvent anchors a chain event referencing dfid and cid without a
	// contract storage write (AnchorEventOnly mode).
	EmitEvent(ctx context.Context, dfid, cid string) (txHash string, err error)
	// WriteStorage writes (dfid, cid) into contract storage via the IPCM
	// contract and emits the corresponding event (AnchorFullStorage mode).
	WriteStorage(ctx context.Context, dfid, cid string) (txHash string, err error)
	// ReadStorage reads the last (dfid, cid) pair written for dfid.
	ReadStorage(ctx context.Context, dfid string) (cid string, ok bool, err error)
	// MintNFT mints a one-time NFT for dfid carrying the canonical
	// identifiers and first CID.
	MintNFT(ctx context.Context, dfid, cid, creator string, canonicalIDs []string) (tokenID string, err error)
	// Healthy reports whether the chain RPC endpoint is currently reachable.
	Healthy(ctx context.Context) bool
}

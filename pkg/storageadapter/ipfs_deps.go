package storageadapter

import "context"

// IPFSClient is the minimal pin-service surface the IPFS-backed adapters
// need. pkg/ipfsclient implements this against a Pinata-compatible pinning
// API; tests use an in-memory fake.
type IPFSClient interface {
	// Add uploads data and returns its content identifier.
	Add(ctx context.Context, data []byte) (cid string, err error)
	// Get retrieves the bytes behind cid.
	Get(ctx context.Context, cid string) (data []byte, err error)
	// Pin requests the pinning service keep cid available.
	Pin(ctx context.Context, cid string) error
	// Healthy reports whether the backing service is currently reachable.
	Healthy(ctx context.Context) bool
}

package storageadapter

import (
	"sync"

	"github.com/defarm/tracectl/pkg/config"
	"github.com/defarm/tracectl/pkg/traceerr"
)

// compile-time interface satisfaction checks.
var (
	_ Adapter       = (*LocalLocal)(nil)
	_ Adapter       = (*IpfsIpfs)(nil)
	_ Adapter       = (*LocalIpfs)(nil)
	_ Adapter       = (*StellarTestnetIpfs)(nil)
	_ Adapter       = (*StellarMainnetIpfs)(nil)
	_ Adapter       = (*StellarMainnetStellarMainnet)(nil)
	_ NewItemStorer = (*StellarTestnetIpfs)(nil)
)

// VariantName identifies one of the six closed-set adapter variants.
type VariantName string

const (
	VariantLocalLocal                   VariantName = "local_local"
	VariantIpfsIpfs                     VariantName = "ipfs_ipfs"
	VariantLocalIpfs                    VariantName = "local_ipfs"
	VariantStellarTestnetIpfs           VariantName = "stellar_testnet_ipfs"
	VariantStellarMainnetIpfs           VariantName = "stellar_mainnet_ipfs"
	VariantStellarMainnetStellarMainnet VariantName = "stellar_mainnet_stellar_mainnet"
)

// Registry resolves a circuit's configured adapter variant to a live
// Adapter instance. Registration is per-circuit: a circuit's tier
// determines which variants it may register, enforced by the caller
// (pkg/circuits) before calling Register.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter // circuitID -> adapter
	variants map[string]VariantName
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		variants: make(map[string]VariantName),
	}
}

// Register binds circuitID to adapter under the given variant name.
// Overwrites any prior registration for the same circuit.
func (r *Registry) Register(circuitID string, variant VariantName, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[circuitID] = adapter
	r.variants[circuitID] = variant
}

// RegisterWithProfile wraps adapter in a TimeoutRetryAdapter bound to
// profile's connection budget before registering it, so every call a
// circuit's adapter makes is subject to the operator-configured
// timeout and retry bound named by the circuit's AdapterConfigID.
func (r *Registry) RegisterWithProfile(circuitID string, profile config.AdapterProfile, adapter Adapter) {
	r.Register(circuitID, VariantName(profile.Variant), WithAdapterID(adapter, profile.Connection, profile.ID))
}

// Get returns the adapter registered for circuitID.
func (r *Registry) Get(circuitID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[circuitID]
	if !ok {
		return nil, traceerr.NotFound("no storage adapter registered for circuit %s", circuitID)
	}
	return adapter, nil
}

// Variant returns the variant name registered for circuitID.
func (r *Registry) Variant(circuitID string) (VariantName, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variants[circuitID]
	return v, ok
}

package types

import "time"

// SyncStatus reports a storage adapter's replication health.
type SyncStatus struct {
	IsSynced         bool      `json:"is_synced"`
	PendingOperations int      `json:"pending_operations"`
	LastSync         time.Time `json:"last_sync"`
	ErrorCount       int       `json:"error_count"`
}

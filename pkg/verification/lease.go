package verification

import (
	"context"
	"time"
)

// EntryLeaser claims a pending entry for exclusive processing by one
// Engine instance, so multiple tracectl replicas running ProcessBatch
// against the same database never double-process the same entry. An
// Engine with no leaser processes every entry PendingEntries returns,
// which is only correct when a single instance runs ProcessBatch.
type EntryLeaser interface {
	TryAcquire(ctx context.Context, entryID string, ttl time.Duration) (bool, error)
}

// entryLeaseTTL bounds how long a claimed entry stays unavailable to
// other instances if the claiming instance crashes mid-process.
const entryLeaseTTL = 30 * time.Second

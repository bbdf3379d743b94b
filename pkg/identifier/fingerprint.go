package identifier

import (
	"sort"

	"github.com/defarm/tracectl/pkg/canonicalize"
	"github.com/defarm/tracectl/pkg/types"
)

// fingerprintInput is the canonicalized composite hashed into a contextual
// dedup fingerprint. Time is deliberately excluded: a fingerprint keyed on
// wall-clock nanoseconds would make two pushes of the same item at
// different moments fingerprint differently, defeating the dedup it
// exists for.
type fingerprintInput struct {
	IdentifierKeys []string `json:"identifier_keys"`
	RequesterID    string   `json:"requester_id"`
	LocalID        string   `json:"local_id"`
}

// Fingerprint computes the BLAKE3 contextual dedup key for a set of
// identifiers pushed by requesterID under localID, scoped per-circuit by
// the caller (the circuit id is not part of the hash itself; callers key
// their fingerprint index by (fingerprint, circuit_id)).
func Fingerprint(identifiers []types.Identifier, requesterID, localID string) (string, error) {
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		keys = append(keys, id.UniqueKey())
	}
	sort.Strings(keys)

	return canonicalize.CanonicalContentHash(fingerprintInput{
		IdentifierKeys: keys,
		RequesterID:    requesterID,
		LocalID:        localID,
	})
}

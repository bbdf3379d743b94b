package verification

import "github.com/defarm/tracectl/pkg/types"

// AutoResolveConflict picks the winning item among candidates competing for
// the same identifiers: the one with the most source_entries wins, ties
// broken by earliest created_at. Returns ok=false if candidates is empty
// or if the top two candidates are still tied after both criteria — an
// ambiguity left for manual review rather than an arbitrary pick.
//
// A pure function over loaded items, independent of any store or graph, so
// the tie-break policy is unit testable without a running engine.
func AutoResolveConflict(candidates []*types.Item) (winner *types.Item, ok bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	winner = candidates[0]
	tied := false
	for _, c := range candidates[1:] {
		switch {
		case len(c.SourceEntries) > len(winner.SourceEntries):
			winner = c
			tied = false
		case len(c.SourceEntries) < len(winner.SourceEntries):
			// stays behind winner
		case c.CreatedAt.Before(winner.CreatedAt):
			winner = c
			tied = false
		case c.CreatedAt.Equal(winner.CreatedAt):
			tied = true
		}
	}
	if tied {
		return nil, false
	}
	return winner, true
}

package circuits

import (
	"fmt"

	"context"

	"github.com/defarm/tracectl/pkg/dfid"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// ShareItem grants recipientID direct visibility into dfid, independent of
// any circuit. This supplements the circuit push/pull path for one-off
// sharing outside a shared workspace. sharerID must own or already be able
// to read dfid; ownership is enforced by the caller's read path (the
// Circuits Engine itself does not gate who may call ShareItem beyond
// requiring a non-empty recipient distinct from the sharer).
func (e *Engine) ShareItem(ctx context.Context, dfidStr, sharerID, recipientID string, permissions []string) (*types.ItemShare, error) {
	if recipientID == "" {
		return nil, traceerr.Validation("share requires a recipient")
	}
	if recipientID == sharerID {
		return nil, traceerr.Validation("cannot share an item with yourself")
	}
	if e.itemReader != nil {
		if _, err := e.itemReader.Get(ctx, dfidStr); err != nil {
			return nil, traceerr.NotFound("item %s: %v", dfidStr, err)
		}
	}

	share := &types.ItemShare{
		ShareID:     shareID(),
		DFID:        dfidStr,
		SharedBy:    sharerID,
		RecipientID: recipientID,
		SharedAt:    e.now(),
		Permissions: permissions,
		SourceEntry: fmt.Sprintf("item_share:%s", dfidStr),
	}
	if err := e.shares.Put(ctx, share); err != nil {
		return nil, traceerr.Storage(err, "persisting item share for %s", dfidStr)
	}

	e.emitDirectShareEvent(ctx, dfidStr, sharerID, recipientID, share.ShareID)
	return share, nil
}

// SharesForUser returns every item directly shared with userID.
func (e *Engine) SharesForUser(ctx context.Context, userID string) ([]*types.ItemShare, error) {
	shares, err := e.shares.ByRecipient(ctx, userID)
	if err != nil {
		return nil, traceerr.Storage(err, "listing shares for %s", userID)
	}
	return shares, nil
}

// IsSharedWithUser reports whether dfid has been directly shared with userID.
func (e *Engine) IsSharedWithUser(ctx context.Context, dfidStr, userID string) (bool, error) {
	ok, err := e.shares.IsSharedWith(ctx, dfidStr, userID)
	if err != nil {
		return false, traceerr.Storage(err, "checking share status for %s/%s", dfidStr, userID)
	}
	return ok, nil
}

var shareIDGen = dfid.NewGenerator()

func shareID() string {
	return "SHARE-" + shareIDGen.Generate()
}

func (e *Engine) emitDirectShareEvent(ctx context.Context, dfidStr, sharerID, recipientID, shareID string) {
	if e.events == nil {
		return
	}
	evt := &types.Event{
		DFID:       dfidStr,
		Type:       types.EventUpdated,
		Timestamp:  e.now(),
		Source:     sharerID,
		Metadata:   map[string]interface{}{"recipient_id": recipientID, "share_id": shareID},
		Visibility: types.VisibilityDirect,
	}
	if err := e.events.Emit(ctx, evt); err != nil {
		e.log.Error("failed to emit item share event", "dfid", dfidStr, "share_id", shareID, "error", err)
	}
}

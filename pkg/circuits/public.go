package circuits

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

// PublicView is the read-only projection of a circuit's published items
// exposed to non-members per spec §4.8's public/protected/scheduled modes.
type PublicView struct {
	CircuitID      string
	Name           string
	PublishedItems []string
	ExportLevel    types.ExportPermissionLevel
}

// ViewPublic returns circuitID's public view if it is currently accessible,
// verifying the supplied password for Protected circuits. Every entry in
// PublishedItems must already be linked into the circuit (a published item
// that was never pushed is a configuration error, surfaced here rather
// than silently dropped).
func (e *Engine) ViewPublic(ctx context.Context, circuitID, password string) (*PublicView, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if !circuit.IsPubliclyAccessible(e.now()) {
		return nil, traceerr.PermissionDenied("circuit %s is not publicly accessible", circuitID)
	}

	settings := circuit.PublicSettings
	if settings.AccessMode == types.PublicAccessProtected {
		if err := bcrypt.CompareHashAndPassword([]byte(settings.PasswordHash), []byte(password)); err != nil {
			return nil, traceerr.PermissionDenied("incorrect password for circuit %s", circuitID)
		}
	}

	for _, dfidStr := range settings.PublishedItems {
		if _, exists, err := e.circuitItems.Get(ctx, circuitID, dfidStr); err != nil {
			return nil, traceerr.Storage(err, "checking published item %s", dfidStr)
		} else if !exists {
			return nil, traceerr.Validation("published item %s is not linked into circuit %s", dfidStr, circuitID)
		}
	}

	return &PublicView{
		CircuitID:      circuit.CircuitID,
		Name:           circuit.Name,
		PublishedItems: append([]string(nil), settings.PublishedItems...),
		ExportLevel:    settings.ExportLevel,
	}, nil
}

// SetPublicSettings configures a circuit's public access mode. actorID must
// hold ManagePermissions. password, if non-empty, is bcrypt-hashed before
// storage; pass an empty password to leave an existing hash untouched (e.g.
// when only changing AccessMode or ScheduledDate).
func (e *Engine) SetPublicSettings(ctx context.Context, circuitID, actorID string, settings types.PublicSettings, password string) (*types.Circuit, error) {
	circuit, err := e.loadCircuit(ctx, circuitID)
	if err != nil {
		return nil, err
	}
	if err := e.requirePermission(circuit, actorID, types.PermissionManagePermissions); err != nil {
		return nil, err
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, traceerr.Storage(err, "hashing public access password")
		}
		settings.PasswordHash = string(hash)
	} else if circuit.PublicSettings != nil {
		settings.PasswordHash = circuit.PublicSettings.PasswordHash
	}

	circuit.PublicSettings = &settings
	if err := e.circuits.Put(ctx, circuit); err != nil {
		return nil, traceerr.Storage(err, "persisting public settings for circuit %s", circuitID)
	}
	e.recordActivity(ctx, circuitID, types.ActivitySettingChanged, actorID, map[string]interface{}{"setting": "public_settings", "access_mode": string(settings.AccessMode)})
	return circuit, nil
}

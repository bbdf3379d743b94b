package identifier

import (
	"strings"

	"github.com/defarm/tracectl/pkg/types"
)

// Validate reports whether id's namespace, key/value, and (for canonical
// identifiers) registry-specific format are all well-formed.
func Validate(id types.Identifier) bool {
	if !ValidNamespace(id.Namespace) {
		return false
	}
	if strings.TrimSpace(id.Key) == "" || strings.TrimSpace(id.Value) == "" {
		return false
	}
	if id.IsCanonical() {
		return ValidateRegistryValue(id.Registry, id.Value)
	}
	return true
}

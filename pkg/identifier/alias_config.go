package identifier

// CircuitAliasConfig gates which identifiers a push into a circuit must and
// may carry: required canonical registries, required contextual keys, an
// optional allowlist of namespaces, whether fingerprint-based dedup is used
// when no canonical identifier resolves the push, and whether empty
// namespaces are auto-filled with the circuit's default namespace.
type CircuitAliasConfig struct {
	RequiredCanonical  []string `json:"required_canonical"`
	RequiredContextual []string `json:"required_contextual"`
	UseFingerprint     bool     `json:"use_fingerprint"`
	AllowedNamespaces  []string `json:"allowed_namespaces,omitempty"`
	AutoApplyNamespace bool     `json:"auto_apply_namespace"`

	// Predicate is an optional CEL expression evaluated against the push's
	// canonical_registries, contextual_keys, namespaces, and
	// identifier_count, on top of RequiredCanonical/RequiredContextual/
	// AllowedNamespaces. A push is rejected unless the expression evaluates
	// to true. Empty skips predicate evaluation entirely.
	Predicate string `json:"predicate,omitempty"`
}

// DefaultCircuitAliasConfig mirrors the zero-configuration behavior: no
// required identifiers, fingerprint dedup on, every namespace allowed,
// namespace auto-fill on.
func DefaultCircuitAliasConfig() CircuitAliasConfig {
	return CircuitAliasConfig{
		UseFingerprint:     true,
		AutoApplyNamespace: true,
	}
}

// BovineTraceability requires a verified SISBOV tag, restricts pushes to
// the bovino namespace, and disables fingerprint dedup since SISBOV already
// guarantees identity.
func BovineTraceability() CircuitAliasConfig {
	return CircuitAliasConfig{
		RequiredCanonical:  []string{RegistrySISBOV},
		UseFingerprint:     false,
		AllowedNamespaces:  []string{NamespaceBovino},
		AutoApplyNamespace: true,
	}
}

// GrainLots requires a lot and harvest-year contextual pair and restricts
// pushes to grain namespaces.
func GrainLots() CircuitAliasConfig {
	return CircuitAliasConfig{
		RequiredContextual: []string{"lote", "safra"},
		UseFingerprint:     true,
		AllowedNamespaces:  []string{NamespaceSoja, NamespaceMilho},
		AutoApplyNamespace: true,
	}
}

// Poultry requires a lot and farm-house contextual pair for the aves namespace.
func Poultry() CircuitAliasConfig {
	return CircuitAliasConfig{
		RequiredContextual: []string{"lote", "granja"},
		UseFingerprint:     true,
		AllowedNamespaces:  []string{NamespaceAves},
		AutoApplyNamespace: true,
	}
}

// Open accepts any namespace and never auto-fills, for circuits that want
// callers to be explicit about every identifier's namespace.
func Open() CircuitAliasConfig {
	return CircuitAliasConfig{
		UseFingerprint:     true,
		AutoApplyNamespace: false,
	}
}

// NamespaceAllowed reports whether ns is permitted. A nil/empty
// AllowedNamespaces means every namespace is permitted.
func (c CircuitAliasConfig) NamespaceAllowed(ns string) bool {
	if len(c.AllowedNamespaces) == 0 {
		return true
	}
	for _, allowed := range c.AllowedNamespaces {
		if allowed == ns {
			return true
		}
	}
	return false
}

package circuits

import (
	"github.com/defarm/tracectl/pkg/identifier"
	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

func effectiveAliasConfig(circuit *types.Circuit) identifier.CircuitAliasConfig {
	if circuit.AliasConfig != nil {
		return *circuit.AliasConfig
	}
	return identifier.DefaultCircuitAliasConfig()
}

// applyAutoNamespace fills empty namespaces with the circuit's default
// namespace when the alias config requests it. Returns a new slice; the
// caller's slice is left untouched.
func applyAutoNamespace(ids []types.Identifier, circuit *types.Circuit, cfg identifier.CircuitAliasConfig) []types.Identifier {
	if !cfg.AutoApplyNamespace {
		return ids
	}
	out := make([]types.Identifier, len(ids))
	for i, id := range ids {
		if id.Namespace == "" {
			id.Namespace = circuit.DefaultNamespace
		}
		out[i] = id
	}
	return out
}

// validatePush checks spec §4.8 step 3: required canonical registries,
// required contextual keys, namespace allowlist, per-identifier format, and
// (when the engine carries a predicate evaluator and the config sets one) a
// CEL predicate over the push's identifier shape.
func (e *Engine) validatePush(ids []types.Identifier, cfg identifier.CircuitAliasConfig) error {
	canonicalRegistries := map[string]struct{}{}
	contextualKeys := map[string]struct{}{}
	namespaces := map[string]struct{}{}

	for _, id := range ids {
		if !identifier.Validate(id) {
			return traceerr.Validation("identifier %s is not format-valid", id.UniqueKey())
		}
		if !cfg.NamespaceAllowed(id.Namespace) {
			return traceerr.Validation("namespace %q is not allowed on this circuit", id.Namespace)
		}
		namespaces[id.Namespace] = struct{}{}
		if id.IsCanonical() {
			canonicalRegistries[id.Registry] = struct{}{}
		} else {
			contextualKeys[id.Key] = struct{}{}
		}
	}

	for _, required := range cfg.RequiredCanonical {
		if _, ok := canonicalRegistries[required]; !ok {
			return traceerr.Validation("push is missing required canonical registry %q", required)
		}
	}
	for _, required := range cfg.RequiredContextual {
		if _, ok := contextualKeys[required]; !ok {
			return traceerr.Validation("push is missing required contextual key %q", required)
		}
	}

	if cfg.Predicate == "" || e.predicates == nil {
		return nil
	}
	vars := map[string]interface{}{
		"canonical_registries": setKeys(canonicalRegistries),
		"contextual_keys":      setKeys(contextualKeys),
		"namespaces":           setKeys(namespaces),
		"identifier_count":     int64(len(ids)),
	}
	allowed, err := e.predicates.Evaluate(cfg.Predicate, vars)
	if err != nil {
		return traceerr.Validation("circuit predicate %q failed to evaluate: %v", cfg.Predicate, err)
	}
	if !allowed {
		return traceerr.Validation("push does not satisfy circuit predicate %q", cfg.Predicate)
	}
	return nil
}

func setKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Package identifier validates namespaces and canonical registry values and
// holds the per-circuit alias configuration that gates which identifiers a
// push may carry.
package identifier

// Namespace names the closed set of traceability domains the system
// recognizes. New domains require a code change, not configuration.
const (
	NamespaceBovino   = "bovino"
	NamespaceAves     = "aves"
	NamespaceSuino    = "suino"
	NamespaceSoja     = "soja"
	NamespaceMilho    = "milho"
	NamespaceAlgodao  = "algodao"
	NamespaceCafe     = "cafe"
	NamespaceLeite    = "leite"
	NamespaceGeneric  = "generic"
)

var namespaces = map[string]bool{
	NamespaceBovino:  true,
	NamespaceAves:    true,
	NamespaceSuino:   true,
	NamespaceSoja:    true,
	NamespaceMilho:   true,
	NamespaceAlgodao: true,
	NamespaceCafe:    true,
	NamespaceLeite:   true,
	NamespaceGeneric: true,
}

// ValidNamespace reports whether ns belongs to the closed namespace set.
func ValidNamespace(ns string) bool {
	return namespaces[ns]
}

// Namespaces returns every recognized namespace, for presets and tests.
func Namespaces() []string {
	out := make([]string, 0, len(namespaces))
	for ns := range namespaces {
		out = append(out, ns)
	}
	return out
}

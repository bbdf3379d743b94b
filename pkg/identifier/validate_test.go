package identifier

import (
	"testing"

	"github.com/defarm/tracectl/pkg/types"
)

func TestValidateCanonical(t *testing.T) {
	id := types.NewCanonical(NamespaceBovino, RegistrySISBOV, "BR123456789012")
	if !Validate(id) {
		t.Error("expected valid canonical identifier")
	}
	if !id.IsCanonical() || id.IsContextual() {
		t.Error("expected IsCanonical true, IsContextual false")
	}
}

func TestValidateContextual(t *testing.T) {
	id := types.NewContextual(NamespaceSoja, "lote", "123")
	if !Validate(id) {
		t.Error("expected valid contextual identifier")
	}
	if id.IsCanonical() || !id.IsContextual() {
		t.Error("expected IsCanonical false, IsContextual true")
	}
}

func TestUniqueKeyFormat(t *testing.T) {
	id := types.NewCanonical(NamespaceBovino, RegistrySISBOV, "BR123456789012")
	if got, want := id.UniqueKey(), "bovino:sisbov:BR123456789012"; got != want {
		t.Errorf("UniqueKey() = %q, want %q", got, want)
	}
}

func TestValidateRejectsBadNamespaceOrValue(t *testing.T) {
	bad := types.NewCanonical("invalid_namespace", RegistrySISBOV, "BR123456789012")
	if Validate(bad) {
		t.Error("expected invalid namespace to fail validation")
	}

	badValue := types.NewCanonical(NamespaceBovino, RegistrySISBOV, "not-a-tag")
	if Validate(badValue) {
		t.Error("expected malformed sisbov value to fail validation")
	}

	empty := types.NewContextual(NamespaceSoja, "", "123")
	if Validate(empty) {
		t.Error("expected empty key to fail validation")
	}
}

func TestCircuitAliasConfigPresets(t *testing.T) {
	bovine := BovineTraceability()
	if len(bovine.RequiredCanonical) != 1 || bovine.RequiredCanonical[0] != RegistrySISBOV {
		t.Errorf("unexpected bovine required canonical: %v", bovine.RequiredCanonical)
	}
	if bovine.UseFingerprint {
		t.Error("bovine traceability should disable fingerprint dedup")
	}

	grain := GrainLots()
	if len(grain.RequiredContextual) != 2 {
		t.Errorf("expected 2 required contextual keys, got %v", grain.RequiredContextual)
	}
	if !grain.UseFingerprint {
		t.Error("grain lots should use fingerprint dedup")
	}

	open := Open()
	if len(open.RequiredCanonical) != 0 || !open.NamespaceAllowed("anything") {
		t.Error("open preset should impose no restrictions")
	}
}

package identifier

import "testing"

func TestNamespaceValidation(t *testing.T) {
	for _, ns := range []string{NamespaceBovino, NamespaceSoja, NamespaceGeneric} {
		if !ValidNamespace(ns) {
			t.Errorf("expected %q to be valid", ns)
		}
	}
	if ValidNamespace("invalid") {
		t.Error("expected \"invalid\" to be rejected")
	}
	if ValidNamespace("") {
		t.Error("expected empty namespace to be rejected")
	}
}

func TestSISBOVValidation(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"BR123456789012", true},
		{"12345678901234", false}, // missing BR prefix
		{"BR12345678901", false},  // too short
		{"BR12345678901A", false}, // non-numeric tail
	}
	for _, c := range cases {
		if got := ValidateRegistryValue(RegistrySISBOV, c.value); got != c.want {
			t.Errorf("ValidateRegistryValue(sisbov, %q) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestCPFValidation(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"12345678901", true},
		{"123.456.789-01", true}, // formatting stripped
		{"1234567890", false},    // too short
		{"11111111111", false},   // all identical digits
	}
	for _, c := range cases {
		if got := ValidateRegistryValue(RegistryCPF, c.value); got != c.want {
			t.Errorf("ValidateRegistryValue(cpf, %q) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestUnrecognizedRegistryIsPermissive(t *testing.T) {
	if !ValidateRegistryValue("unknown-registry", "anything") {
		t.Error("unrecognized registries should validate true")
	}
}

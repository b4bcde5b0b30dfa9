package services

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("gpt-4o", "sys", "user", 0.7, false)
	b := Fingerprint("gpt-4o", "sys", "user", 0.7, false)

	if a != b {
		t.Error("identical inputs should produce identical fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, expected 64 hex chars", len(a))
	}
}

func TestFingerprint_SensitiveToEveryField(t *testing.T) {
	base := Fingerprint("gpt-4o", "sys", "user", 0.7, false)

	variants := map[string]string{
		"model":                   Fingerprint("gpt-4o-mini", "sys", "user", 0.7, false),
		"system":                  Fingerprint("gpt-4o", "sys2", "user", 0.7, false),
		"user":                    Fingerprint("gpt-4o", "sys", "user2", 0.7, false),
		"temperature":             Fingerprint("gpt-4o", "sys", "user", 0.8, false),
		"temperature 3rd decimal": Fingerprint("gpt-4o", "sys", "user", 0.701, false),
		"json mode":               Fingerprint("gpt-4o", "sys", "user", 0.7, true),
	}

	for field, fp := range variants {
		if fp == base {
			t.Errorf("changing %s should change the fingerprint", field)
		}
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	// Concatenation across field boundaries must not collide.
	a := Fingerprint("m", "ab", "c", 0.5, false)
	b := Fingerprint("m", "a", "bc", 0.5, false)

	if a == b {
		t.Error("field boundary shift should change the fingerprint")
	}
}

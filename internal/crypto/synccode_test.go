package crypto

import (
	"regexp"
	"testing"
)

var displayCodePattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerateSyncCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateSyncCode()
		if err != nil {
			t.Fatalf("GenerateSyncCode: %v", err)
		}
		if !displayCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match XXXX-XXXX", code)
		}
		seen[code] = true
	}
	// 200 draws from a 36^8 space colliding would mean the generator is broken.
	if len(seen) != 200 {
		t.Errorf("got %d distinct codes out of 200", len(seen))
	}
}

func TestNormalizeSyncCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ABCD-1234", "ABCD1234"},
		{"abcd-1234", "ABCD1234"},
		{" ab cd 12 34 ", "ABCD1234"},
		{"A.B,C;D_1!2@3#4", "ABCD1234"},
		{"ABCD1234", "ABCD1234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSyncCode(tt.in); got != tt.want {
			t.Errorf("NormalizeSyncCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSyncCodeIdempotent(t *testing.T) {
	inputs := []string{"ABCD-1234", "ab-cd-12-34", "A1B2C3D4", "??", ""}
	for _, in := range inputs {
		once := NormalizeSyncCode(in)
		twice := NormalizeSyncCode(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestValidateSyncCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABCD-1234", true},
		{"abcd1234", true},
		{"ABCD 1234", true},
		{"ABC-1234", false},   // 7 chars
		{"ABCDE-1234", false}, // 9 chars
		{"", false},
		{"--------", false},
		{"ABCD-123!", false}, // strips to 7
	}

	for _, tt := range tests {
		if got := ValidateSyncCode(tt.code); got != tt.want {
			t.Errorf("ValidateSyncCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestFormatSyncCode(t *testing.T) {
	if got := FormatSyncCode("abcd1234"); got != "ABCD-1234" {
		t.Errorf("FormatSyncCode = %q, want ABCD-1234", got)
	}
	// Codes that don't normalize to 8 chars come back unhyphenated.
	if got := FormatSyncCode("abc"); got != "ABC" {
		t.Errorf("FormatSyncCode(short) = %q, want ABC", got)
	}
}

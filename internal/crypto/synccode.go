package crypto

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// Sync codes are 8 characters from a 36-symbol alphabet (~41 bits of
// entropy), displayed as XXXX-XXXX for transcription between devices. The
// code doubles as the encryption passphrase, so it must come from a CSPRNG —
// guessing it within the mapping's 48-hour lifetime has to be impractical
// even before the remote store's rate limit is considered.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

var normalizedCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// GenerateSyncCode returns a fresh random code in display form "XXXX-XXXX".
//
// Bytes are rejection-sampled so every alphabet symbol is equally likely;
// a plain modulo would bias toward the first 4 letters (256 % 36 != 0).
func GenerateSyncCode() (string, error) {
	const limit = byte(252) // largest multiple of 36 below 256

	code := make([]byte, 0, codeLength)
	buf := make([]byte, 16)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("crypto: generating sync code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[b%36])
			if len(code) == codeLength {
				break
			}
		}
	}

	return FormatSyncCode(string(code)), nil
}

// NormalizeSyncCode strips all non-alphanumeric characters and uppercases.
// Idempotent: normalizing a normalized code is a no-op.
func NormalizeSyncCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateSyncCode reports whether the code normalizes to the 8-character
// alphanumeric shape.
func ValidateSyncCode(code string) bool {
	return normalizedCodePattern.MatchString(NormalizeSyncCode(code))
}

// FormatSyncCode renders a code in the canonical AAAA-BBBB display form.
// Codes that don't normalize to 8 characters are returned normalized but
// unhyphenated.
func FormatSyncCode(code string) string {
	n := NormalizeSyncCode(code)
	if len(n) != codeLength {
		return n
	}
	return n[:4] + "-" + n[4:]
}

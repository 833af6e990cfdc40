// Package crypto — client-side encryption for sync payloads.
//
// WHY PBKDF2 + AES-GCM?
// The passphrase is an 8-character sync code typed by a human, so it must be
// stretched before use as a key. PBKDF2 with SHA-256 and 100,000 iterations
// makes each guess expensive; a fresh random salt per export means the same
// code never derives the same key twice, and two exports are unlinkable.
//
// AES-256-GCM is authenticated encryption: decryption fails loudly on a wrong
// code, a flipped bit, or any tampering. It never returns garbage that merely
// looks like a snapshot — the authentication tag check happens before a single
// plaintext byte is released.
//
// The nonce is 12 bytes (GCM's recommended size) and generated fresh per
// encryption. Salt and nonce travel inside the envelope in the clear; neither
// is a secret. Only the sync code is.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"github.com/sakif/momentum-sync/internal/apperror"
	"github.com/sakif/momentum-sync/internal/model"
)

const (
	// DefaultIterations is the PBKDF2 work factor. 100k iterations of
	// SHA-256 takes tens of milliseconds — negligible for one export,
	// brutal for an attacker brute-forcing the 36^8 code space inside the
	// 48-hour window against a rate-limited store.
	DefaultIterations = 100_000

	keyLength   = 32 // AES-256
	saltLength  = 16
	nonceLength = 12 // GCM standard

	// FormatVersion is stamped into every envelope so a future format
	// change can be detected before attempting decryption.
	FormatVersion = "1.0.0"
)

// Envelope is the self-describing wire format of an encrypted snapshot.
// Decryption needs only the envelope and the sync code.
type Envelope struct {
	Salt          string `json:"salt"`       // base64
	Nonce         string `json:"nonce"`      // base64
	Ciphertext    string `json:"ciphertext"` // base64
	CreatedAt     int64  `json:"createdAt"`  // epoch ms
	FormatVersion string `json:"formatVersion"`
}

// Marshal renders the envelope as the JSON string published to the remote
// blob store.
func (e Envelope) Marshal() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("crypto: marshaling envelope: %w", err)
	}
	return string(b), nil
}

// ParseEnvelope decodes a fetched blob into an Envelope, rejecting anything
// structurally wrong before decryption is attempted.
func ParseEnvelope(raw string) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Envelope{}, apperror.ValidationFailed("envelope", "payload is not a sync envelope")
	}
	if e.Salt == "" || e.Nonce == "" || e.Ciphertext == "" {
		return Envelope{}, apperror.ValidationFailed("envelope", "envelope is missing salt, nonce, or ciphertext")
	}
	return e, nil
}

// Cipher performs snapshot encryption and decryption.
//
// It's a struct (not free functions) so the PBKDF2 iteration count can be
// injected: tests run with a low count to avoid paying 100k iterations per
// round trip, without changing the logic under test.
type Cipher struct {
	iterations int
	now        func() time.Time
}

// New creates a Cipher with the production iteration count.
func New() *Cipher {
	return &Cipher{iterations: DefaultIterations, now: time.Now}
}

// NewForTest creates a Cipher with a reduced iteration count. Do not use
// outside tests — a low count makes sync codes cheap to brute-force.
func NewForTest(iterations int) *Cipher {
	return &Cipher{iterations: iterations, now: time.Now}
}

// DeriveKey stretches a sync code into a 256-bit AES key. Same code + same
// salt always derives the same key; different salts derive unlinkable keys.
func (c *Cipher) DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, c.iterations, keyLength, sha256.New)
}

// Encrypt serializes the snapshot and seals it under a key derived from the
// passphrase. A fresh salt and nonce are generated on every call — they are
// never reused across envelopes.
func (c *Cipher) Encrypt(snapshot model.Snapshot, passphrase string) (Envelope, error) {
	plaintext, err := json.Marshal(snapshot)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: serializing snapshot: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generating salt: %w", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	gcm, err := c.aead(passphrase, salt)
	if err != nil {
		return Envelope{}, err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	return Envelope{
		Salt:          base64.StdEncoding.EncodeToString(salt),
		Nonce:         base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:    base64.StdEncoding.EncodeToString(sealed),
		CreatedAt:     c.now().UnixMilli(),
		FormatVersion: FormatVersion,
	}, nil
}

// Decrypt opens an envelope with the given passphrase and validates the
// plaintext as a snapshot before returning it.
//
// Authentication failure — wrong code, corrupted ciphertext, tampering —
// returns apperror.ErrDecryption. The cipher cannot distinguish these causes
// and the error deliberately doesn't pretend to.
func (c *Cipher) Decrypt(env Envelope, passphrase string) (model.Snapshot, error) {
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return model.Snapshot{}, apperror.ValidationFailed("envelope", "salt is not valid base64")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return model.Snapshot{}, apperror.ValidationFailed("envelope", "nonce is not valid base64")
	}
	if len(nonce) != nonceLength {
		return model.Snapshot{}, apperror.ValidationFailed("envelope", "nonce has wrong length")
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return model.Snapshot{}, apperror.ValidationFailed("envelope", "ciphertext is not valid base64")
	}

	gcm, err := c.aead(passphrase, salt)
	if err != nil {
		return model.Snapshot{}, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return model.Snapshot{}, apperror.Decryption()
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal(plaintext, &snapshot); err != nil {
		return model.Snapshot{}, apperror.ValidationFailed("snapshot", "decrypted payload is not a snapshot")
	}
	if err := snapshot.Validate(); err != nil {
		return model.Snapshot{}, err
	}

	return snapshot, nil
}

func (c *Cipher) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := c.DeriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}

// Checksum returns the first 8 hex characters of a sha256 digest over the
// snapshot's canonical JSON, with sync metadata cleared (the metadata carries
// the checksum itself, so it can't be part of the input).
//
// This is a post-transit sanity cross-check for display, not a security
// mechanism — GCM's authentication tag is the integrity guarantee.
func Checksum(snapshot model.Snapshot) (string, error) {
	stripped := snapshot.Clone()
	stripped.Metadata = nil

	// encoding/json sorts map keys, so equal snapshots always serialize to
	// the same bytes.
	b, err := json.Marshal(stripped)
	if err != nil {
		return "", fmt.Errorf("crypto: serializing snapshot for checksum: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:8], nil
}

package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const signaturePrefix = "hmac-sha256:"

// Signer creates and verifies HMAC-SHA256 signatures over audit entries.
type Signer struct {
	key []byte
}

// NewSigner creates a signer. Key must be at least 32 raw bytes or 64+ hex
// characters decoding to at least 32 bytes.
func NewSigner(key string) (*Signer, error) {
	if len(key) >= 64 && len(key)%2 == 0 {
		if decoded, err := hex.DecodeString(key); err == nil {
			return &Signer{key: decoded}, nil
		}
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes (got %d)", len(key))
	}
	return &Signer{key: []byte(key)}, nil
}

// Sign returns the signature for data.
func (s *Signer) Sign(data []byte) string {
	h := hmac.New(sha256.New, s.key)
	h.Write(data)
	return signaturePrefix + hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether signature matches data.
func (s *Signer) Verify(data []byte, signature string) bool {
	return hmac.Equal([]byte(s.Sign(data)), []byte(signature))
}

// SignEntry sets e.Signature.
func (s *Signer) SignEntry(e *Entry) error {
	payload, err := e.signedPayload()
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	e.Signature = s.Sign(payload)
	return nil
}

// VerifyEntry reports whether e carries a valid signature.
func (s *Signer) VerifyEntry(e *Entry) bool {
	payload, err := e.signedPayload()
	if err != nil {
		return false
	}
	return s.Verify(payload, e.Signature)
}

package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Signer computes and verifies HMAC-SHA256 codes over canonical payloads
// with one provider-issued secret. The order secret and the callback secret
// are held by two distinct Signer instances so they can never be
// interchanged.
type Signer struct {
	secret []byte
}

func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func (s *Signer) Sign(payload []byte) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SignWithKeySuffix signs payload with the secret itself appended as the
// final |-separated component, as some provider endpoints require.
func (s *Signer) SignWithKeySuffix(payload []byte) string {
	buf := make([]byte, 0, len(payload)+1+len(s.secret))
	buf = append(buf, payload...)
	buf = append(buf, '|')
	buf = append(buf, s.secret...)
	return s.Sign(buf)
}

// Verify recomputes the code and compares it in constant time. Any mismatch,
// including a malformed or missing code, yields false.
func (s *Signer) Verify(payload []byte, code string) bool {
	expected := s.Sign(payload)
	got := strings.ToLower(strings.TrimSpace(code))
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

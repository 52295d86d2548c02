package hash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HMACSHA256 keys SHA-256 with a server secret and hex-encodes the digest.
type HMACSHA256 struct {
	key []byte
}

func NewHMACSHA256(secret string) *HMACSHA256 {
	return &HMACSHA256{key: []byte(secret)}
}

func (h *HMACSHA256) Hash(str string) ([]byte, error) {
	mac := hmac.New(sha256.New, h.key)
	if _, err := mac.Write([]byte(str)); err != nil {
		return nil, err
	}
	return hex.AppendEncode(nil, mac.Sum(nil)), nil
}

// Verify reports whether hashed is the digest of str, in constant time.
func (h *HMACSHA256) Verify(hashed, str string) bool {
	digest, err := h.Hash(str)
	return err == nil && hmac.Equal([]byte(hashed), digest)
}

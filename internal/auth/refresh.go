package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the SHA-256 hex digest stored alongside a
// UserRefreshSession; the raw token is never persisted.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokensMatch compares a presented refresh token's hash against the stored
// hash in constant time.
func TokensMatch(presentedToken, storedHash string) bool {
	presented := HashRefreshToken(presentedToken)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(storedHash)) == 1
}

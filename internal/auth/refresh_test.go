package auth

import "testing"

func TestTokensMatchAcceptsCorrectToken(t *testing.T) {
	token := "some-refresh-token-value"
	hash := HashRefreshToken(token)
	if !TokensMatch(token, hash) {
		t.Error("expected the original token to match its own hash")
	}
}

func TestTokensMatchRejectsWrongToken(t *testing.T) {
	hash := HashRefreshToken("correct-token")
	if TokensMatch("wrong-token", hash) {
		t.Error("expected a different token not to match the stored hash")
	}
}

func TestHashRefreshTokenIsDeterministic(t *testing.T) {
	if HashRefreshToken("abc") != HashRefreshToken("abc") {
		t.Error("expected hashing the same token twice to produce the same digest")
	}
}

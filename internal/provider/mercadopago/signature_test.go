package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestIsSignatureValidAcceptsCorrectManifest(t *testing.T) {
	secret := "topsecret"
	manifest := "id:123456;request-id:req-1;ts:1700000000;"
	header := "ts=1700000000,v1=" + sign(secret, manifest)

	if !IsSignatureValid(secret, "123456", "req-1", header) {
		t.Error("expected valid signature to be accepted")
	}
}

func TestIsSignatureValidRejectsWrongSecret(t *testing.T) {
	manifest := "id:123456;request-id:req-1;ts:1700000000;"
	header := "ts=1700000000,v1=" + sign("correct-secret", manifest)

	if IsSignatureValid("wrong-secret", "123456", "req-1", header) {
		t.Error("expected signature computed under a different secret to be rejected")
	}
}

func TestIsSignatureValidRejectsTamperedDataID(t *testing.T) {
	secret := "topsecret"
	manifest := "id:123456;request-id:req-1;ts:1700000000;"
	header := "ts=1700000000,v1=" + sign(secret, manifest)

	if IsSignatureValid(secret, "999999", "req-1", header) {
		t.Error("expected signature to be invalid once data.id is tampered with")
	}
}

func TestIsSignatureValidRejectsMissingHeaderParts(t *testing.T) {
	if IsSignatureValid("secret", "123456", "req-1", "ts=1700000000") {
		t.Error("missing v1 component should reject")
	}
	if IsSignatureValid("secret", "123456", "", "ts=1700000000,v1=deadbeef") {
		t.Error("missing request id should reject")
	}
}

func TestExtractDataIDReadsStringAndIntegerForms(t *testing.T) {
	if got := ExtractDataID(map[string]any{"data": map[string]any{"id": "42"}}); got != "42" {
		t.Errorf("got %q, want 42", got)
	}
	if got := ExtractDataID(map[string]any{"data": map[string]any{"id": float64(42)}}); got != "42" {
		t.Errorf("got %q, want 42", got)
	}
	if got := ExtractDataID(map[string]any{}); got != "" {
		t.Errorf("got %q, want empty string for missing data", got)
	}
}

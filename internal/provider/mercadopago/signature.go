package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ExtractDataID pulls data.id out of a decoded webhook notification body.
func ExtractDataID(payload map[string]any) string {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return ""
	}
	switch v := data["id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return ""
	default:
		return ""
	}
}

// ParseSignatureHeader parses MercadoPago's "ts=...,v1=..." x-signature
// header into its timestamp and HMAC components.
func ParseSignatureHeader(header string) (ts, v1 string) {
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])
		if key == "" || value == "" {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	return ts, v1
}

// IsSignatureValid recomputes the manifest HMAC-SHA256 and compares it to
// v1 in constant time. manifest = "id:{dataID};request-id:{requestID};ts:{ts};"
func IsSignatureValid(secret, dataID, requestID, signatureHeader string) bool {
	requestID = strings.TrimSpace(requestID)
	ts, v1 := ParseSignatureHeader(signatureHeader)
	if requestID == "" || ts == "" || v1 == "" {
		return false
	}
	manifest := "id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(expected)), []byte(strings.ToLower(v1)))
}

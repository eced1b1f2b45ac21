package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

const (
	HeaderSignature = "X-VeerDrishti-Signature"
	HeaderTimestamp = "X-VeerDrishti-Timestamp"
	HeaderEvent     = "X-VeerDrishti-Event"
)

// Sign returns "sha256=<hex>" over "<timestamp>.<payload>", binding the delivery time
// into the signature so a captured request cannot be replayed later.
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func Verify(secret string, timestamp int64, payload []byte, signature string) bool {
	expected := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}

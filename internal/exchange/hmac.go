package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// SignHMACSHA256 returns the hex-encoded HMAC-SHA256 signature of message
// under secret — the common shape behind every venue's private-endpoint
// authentication, whatever the venue-specific canonical string looks like.
func SignHMACSHA256(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// NonceMillis returns a monotonically-increasing-enough nonce in
// milliseconds, the form bitbank/GMO expect (coincheck signs with a
// microsecond nonce of its own).
func NonceMillis() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// TimestampSeconds returns the current unix timestamp in seconds as a
// string, the form bitFlyer's ACCESS-TIMESTAMP header expects.
func TimestampSeconds() string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

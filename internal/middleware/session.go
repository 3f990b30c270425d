package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionCookie carries the signed session issued at login.
const SessionCookie = "authenticated"

// NewSession returns "<id>.<unix expiry>.<hmac>" signed with secret.
func NewSession(secret []byte, ttl time.Duration, now time.Time) string {
	payload := uuid.NewString() + "." + strconv.FormatInt(now.Add(ttl).Unix(), 10)
	return payload + "." + signSession(secret, payload)
}

// VerifySession checks the signature and expiry of a NewSession value.
func VerifySession(value string, secret []byte, now time.Time) bool {
	if len(secret) == 0 {
		return false
	}
	i := strings.LastIndexByte(value, '.')
	if i < 0 {
		return false
	}
	payload, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(signSession(secret, payload))) {
		return false
	}

	j := strings.LastIndexByte(payload, '.')
	if j < 0 {
		return false
	}
	expiry, err := strconv.ParseInt(payload[j+1:], 10, 64)
	if err != nil {
		return false
	}
	return now.Unix() < expiry
}

func signSession(secret []byte, payload string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

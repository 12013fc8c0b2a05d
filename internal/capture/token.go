package capture

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat = errors.New("invalid token format")
	ErrTokenSig    = errors.New("invalid token signature")
	ErrTokenExp    = errors.New("token expired")
	ErrTokenKiosk  = errors.New("kiosk id mismatch")
)

// GenerateToken mints the bearer token a capture service presents on connect.
// Format: base64url(kiosk_id + "." + exp_unix + "." + hex(hmac_sha256(secret, kiosk_id+"."+exp)))
func GenerateToken(secret, kioskID string, expUnix int64) string {
	msg := kioskID + "." + strconv.FormatInt(expUnix, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(msg + "." + sign(secret, msg)))
}

// ValidateToken checks signature, kiosk binding and expiry (with skew).
func ValidateToken(secret, token, kioskID string, now time.Time, skewSeconds int) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrTokenFormat
	}
	// kiosk ids never contain dots, so the last two fields are exp and sig
	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return 0, ErrTokenFormat
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, ErrTokenFormat
	}
	if kioskID != "" && parts[0] != kioskID {
		return 0, ErrTokenKiosk
	}
	want, _ := hex.DecodeString(sign(secret, parts[0]+"."+parts[1]))
	got, err := hex.DecodeString(parts[2])
	if err != nil {
		return 0, ErrTokenFormat
	}
	if !hmac.Equal(want, got) {
		return 0, ErrTokenSig
	}
	if now.Unix() > exp+int64(skewSeconds) {
		return 0, ErrTokenExp
	}
	return exp, nil
}

func sign(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

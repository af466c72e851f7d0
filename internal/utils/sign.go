package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// HMACSHA256Hex signs msg with secret.
func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignExpiring signs path together with an expiry and returns the exp and
// sig query values for a download link.
func SignExpiring(secret, path string, exp time.Time) (string, string) {
	e := strconv.FormatInt(exp.Unix(), 10)
	return e, HMACSHA256Hex(secret, path+"|"+e)
}

// VerifyExpiring checks a link signed by SignExpiring at now.
func VerifyExpiring(secret, path, exp, sig string, now time.Time) bool {
	ts, err := strconv.ParseInt(exp, 10, 64)
	if err != nil || now.Unix() > ts {
		return false
	}
	want := HMACSHA256Hex(secret, path+"|"+exp)
	return hmac.Equal([]byte(want), []byte(sig))
}

// Package guard computes the time-based proofs Steam requires for logins and
// mobile confirmations. Codes are scoped to an action tag and a time window;
// callers recompute them with fresh wall-clock time for every vendor call.
package guard

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// Action tags accepted by the confirmation endpoints.
const (
	TagConf    = "conf"
	TagAllow   = "allow"
	TagCancel  = "cancel"
	TagDetails = "details"
)

// authCodeChars is the fixed alphabet Steam uses for login codes.
const authCodeChars = "23456789BCDFGHJKMNPQRTVWXY"

// AuthCode derives the 5-character login code from a base64 shared secret
// for the 30-second window containing t.
func AuthCode(sharedSecret string, t time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(sharedSecret)
	if err != nil {
		return "", fmt.Errorf("decoding shared secret: %w", err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.Unix()/30))

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	// Dynamic truncation, then 5 symbols from the fixed alphabet.
	offset := sum[19] & 0xF
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF

	out := make([]byte, 5)
	for i := range out {
		out[i] = authCodeChars[code%uint32(len(authCodeChars))]
		code /= uint32(len(authCodeChars))
	}
	return string(out), nil
}

// ConfirmationKey derives the base64 proof for a confirmation action. The
// proof binds the identity secret, the unix second of the call and the action
// tag; it is only honored by the vendor within a short window around t.
func ConfirmationKey(identitySecret, tag string, t time.Time) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(identitySecret)
	if err != nil {
		return "", fmt.Errorf("decoding identity secret: %w", err)
	}

	buf := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	buf = append(buf, tag...)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// DeviceIDForSteamID derives the deterministic device identifier the mobile
// app would present for an account.
func DeviceIDForSteamID(steamID string) string {
	sum := sha1.Sum([]byte(steamID))
	h := hex.EncodeToString(sum[:])
	return "android:" + h[:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// SynthesizeDeviceID generates a random device identifier in the same
// android:8-4-4-4-12 lowercase-hex shape. The value is cosmetic; the vendor
// only requires the format.
func SynthesizeDeviceID() string {
	raw := make([]byte, 16)
	rand.Read(raw)
	h := hex.EncodeToString(raw)
	return "android:" + h[:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

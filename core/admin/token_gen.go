package admin

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"time"
)

const (
	otpLength        = 6
	resetTokenLength = 32 // bytes of entropy
)

var (
	nowFunc = time.Now // mockable
	otpFunc = makeOTP  // mockable
)

// makeOTP generates a random numeric code of otpLength digits.
func makeOTP() (string, error) {
	max := big.NewInt(10)
	code := make([]byte, otpLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// makeResetToken returns an opaque, hex-encoded reset token and the hash stored in its place.
func makeResetToken() (token, hash string, err error) {
	buf := make([]byte, resetTokenLength)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

// hashResetToken hashes a reset token so the raw value never hits the database.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

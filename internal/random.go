package internal

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewVerificationCode returns a 6-digit numeric code drawn uniformly from
// [100000, 999999].
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// NewResetToken returns an alphanumeric bearer token of the given length,
// each character drawn uniformly from a 62-character alphabet.
func NewResetToken(length int) (string, error) {
	if length < 16 || length > 128 {
		return "", errors.New("invalid reset token length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String(), nil
}

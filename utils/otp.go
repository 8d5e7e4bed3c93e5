package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP draws a 6-digit code uniformly from 000000-999999, keeping
// leading zeros.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

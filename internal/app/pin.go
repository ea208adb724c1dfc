package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var pinSpan = big.NewInt(900000)

// RandomPIN returns a six digit code in [100000, 999999] drawn from crypto/rand.
func RandomPIN() (string, error) {
	n, err := rand.Int(rand.Reader, pinSpan)
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", 100000+n.Int64()), nil
}

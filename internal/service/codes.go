package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const saltLength = 16

// GenerateSecretCode derives the opaque bearer code for users and groups:
// uppercase hex SHA-256 over the name, the current unix-millis and a random
// 16-character alphanumeric salt.
func GenerateSecretCode(name string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate secret code: %w", err)
	}
	seed := fmt.Sprintf("%s%d%s", name, time.Now().UnixMilli(), salt)
	sum := sha256.Sum256([]byte(seed))
	return strings.ToUpper(hex.EncodeToString(sum[:])), nil
}

func randomSalt(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(saltAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(saltAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

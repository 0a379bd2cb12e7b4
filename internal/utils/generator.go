package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	DefaultCodeLength = 6
	// Алфавит без похожих символов (0/O, 1/l/I)
	alphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

func GenerateCode() (string, error) {
	return GenerateCodeWithLength(DefaultCodeLength)
}

func GenerateCodeWithLength(length int) (string, error) {
	code := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := range code {
		randomIndex, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		code[i] = alphabet[randomIndex.Int64()]
	}

	return string(code), nil
}

package hub

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const codeLength = 4

var codePattern = regexp.MustCompile(`^[A-Z]{3,8}$`)

// GenerateCode returns a random room code of uppercase letters.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode trims and upper-cases a client supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

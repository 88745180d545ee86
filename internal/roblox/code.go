package roblox

import (
	"crypto/rand"
	"math/big"
)

// Ambiguous characters (0/O, 1/I) are excluded so codes survive being
// retyped into a profile blurb.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 8

// GenerateVerificationCode returns a random code the user pastes into
// their Roblox profile description to prove account ownership.
func GenerateVerificationCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

package utils

import "math/rand"

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodePrefix prefixes every generated referral code
const DefaultCodePrefix = "TRAD"

// DefaultCodeLength is the length of the random suffix
const DefaultCodeLength = 8

// GenerateReferralCode builds a shareable code: fixed prefix + random
// alphanumeric suffix. No uniqueness check happens here — the code space is
// 36^length and the unique index on users.referral_code catches the rest.
func GenerateReferralCode(prefix string, length int) string {
	buf := make([]byte, 0, len(prefix)+length)
	buf = append(buf, prefix...)
	for i := 0; i < length; i++ {
		buf = append(buf, codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return string(buf)
}

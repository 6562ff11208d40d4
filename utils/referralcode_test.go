package utils

import (
	"regexp"
	"testing"
)

func TestGenerateReferralCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^TRAD[A-Z0-9]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateReferralCode(DefaultCodePrefix, DefaultCodeLength)
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match TRAD + 8 of [A-Z0-9]", code)
		}
		seen[code] = true
	}

	// 50 draws from a 36^8 space should essentially never collide
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50, generator looks degenerate", len(seen))
	}
}

func TestGenerateReferralCodeCustomPrefix(t *testing.T) {
	code := GenerateReferralCode("XY", 4)
	if !regexp.MustCompile(`^XY[A-Z0-9]{4}$`).MatchString(code) {
		t.Fatalf("code %q does not match XY + 4 of [A-Z0-9]", code)
	}
}

// AngelaMos | 2026
// code.go

package license

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

var (
	ErrInvalidCode    = errors.New("invalid license code")
	ErrUnknownTier    = errors.New("unknown license tier")
	ErrRevoked        = errors.New("license revoked")
	ErrNotProvisioned = errors.New("license not provisioned")
)

// Validation is the result of a successful code check.
type Validation struct {
	Code string
	Tier *Tier
}

// Normalize trims, uppercases and removes all whitespace from a candidate
// code.
func Normalize(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
}

// Validate checks a candidate code against the tier table. The body after
// the prefix must be an anagram of the tier alphabet; position does not
// matter.
func (t *Tiers) Validate(raw string) (Validation, error) {
	code := Normalize(raw)

	if len(code) != t.CodeLength() {
		return Validation{}, fmt.Errorf(
			"validate code: expected %d characters, got %d: %w",
			t.CodeLength(), len(code), ErrInvalidCode,
		)
	}

	tier, ok := t.ByPrefix(code[0])
	if !ok {
		return Validation{}, fmt.Errorf(
			"validate code: unknown prefix %q: %w",
			code[0], ErrInvalidCode,
		)
	}

	if sortedChars(code[1:]) != tier.reference {
		return Validation{}, fmt.Errorf(
			"validate code: body does not match %s alphabet: %w",
			tier.Name, ErrInvalidCode,
		)
	}

	return Validation{Code: code, Tier: tier}, nil
}

// Permutations reports how many distinct codes the tier can produce.
func (tier *Tier) Permutations() int64 {
	counts := make(map[byte]int64)
	for i := 0; i < len(tier.Alphabet); i++ {
		counts[tier.Alphabet[i]]++
	}

	total := factorial(int64(len(tier.Alphabet)))
	for _, n := range counts {
		total /= factorial(n)
	}
	return total
}

func factorial(n int64) int64 {
	out := int64(1)
	for i := int64(2); i <= n; i++ {
		out *= i
	}
	return out
}

// GenerateCodes returns n distinct random codes for tier.
func GenerateCodes(tier *Tier, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("generate codes: count must be positive")
	}
	if int64(n) > tier.Permutations() {
		return nil, fmt.Errorf(
			"generate codes: %s has only %d distinct codes",
			tier.Name, tier.Permutations(),
		)
	}

	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)

	for len(codes) < n {
		body, err := shuffle(tier.Alphabet)
		if err != nil {
			return nil, fmt.Errorf("generate codes: %w", err)
		}

		code := string(tier.Prefix) + body
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

func shuffle(s string) (string, error) {
	b := []byte(s)
	for i := len(b) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("random index: %w", err)
		}
		k := j.Int64()
		b[i], b[k] = b[k], b[i]
	}
	return string(b), nil
}

// Package pwgen generates passwords from the OS CSPRNG.
package pwgen

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Character classes available to the generator.
var (
	alphabetLowercase = `abcdefghijklmnopqrstuvwxyz`
	alphabetUppercase = `ABCDEFGHIJKLMNOPQRSTUVWXYZ`
	alphabetNumbers   = `0123456789`
	alphabetSymbols   = `!@#$%^&*()-_=+[]{}|\:;"'<>,.?/~` + "`"
)

// ambiguous characters removed by ExcludeAmbiguous
const ambiguous = "0O1lI"

// Length bounds; requests outside are clamped.
const (
	MinLength = 8
	MaxLength = 128
)

// Options selects the character pool and length.
type Options struct {
	Length           int
	Uppercase        bool
	Lowercase        bool
	Numbers          bool
	Symbols          bool
	ExcludeAmbiguous bool
}

// DefaultOptions mirror the UI defaults: 16 characters, every class on.
func DefaultOptions() Options {
	return Options{
		Length:    16,
		Uppercase: true,
		Lowercase: true,
		Numbers:   true,
		Symbols:   true,
	}
}

// Generate draws a password uniformly from the configured pool using
// rejection sampling, so no pool position is favored by modulo bias.
// With no class enabled, lowercase is forced. Length is clamped into
// [MinLength, MaxLength].
func Generate(opts Options) (string, error) {
	length := opts.Length
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}

	var pool strings.Builder
	if opts.Lowercase {
		pool.WriteString(alphabetLowercase)
	}
	if opts.Uppercase {
		pool.WriteString(alphabetUppercase)
	}
	if opts.Numbers {
		pool.WriteString(alphabetNumbers)
	}
	if opts.Symbols {
		pool.WriteString(alphabetSymbols)
	}
	if pool.Len() == 0 {
		pool.WriteString(alphabetLowercase)
	}

	chars := pool.String()
	if opts.ExcludeAmbiguous {
		chars = strings.Map(func(r rune) rune {
			if strings.ContainsRune(ambiguous, r) {
				return -1
			}
			return r
		}, chars)
	}

	password := make([]byte, length)
	for i := 0; i < length; i++ {
		idx, err := uniformIndex(len(chars))
		if err != nil {
			return "", err
		}
		password[i] = chars[idx]
	}

	return string(password), nil
}

// uniformIndex returns an unbiased random index in [0, n) by rejecting
// bytes beyond the largest multiple of n.
func uniformIndex(n int) (int, error) {
	max := 256 - 256%n
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("failed to read randomness: %w", err)
		}
		if int(b[0]) < max {
			return int(b[0]) % n, nil
		}
	}
}

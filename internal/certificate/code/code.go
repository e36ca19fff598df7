// Package code generates verification codes for issued certificates.
//
// Codes are a security credential: anyone holding a valid code can present a
// "verified" certificate reference, so they come from a cryptographically
// secure source, never math/rand. Uniqueness is enforced by the certificate
// store's unique index, not in process, because multiple instances may
// generate concurrently.
package code

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Prefix identifies codes issued by this system.
const Prefix = "SPECS"

// alphabet is uppercase alphanumeric; 36^12 possible codes.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const groupCount = 3
const groupLen = 4

// rejectionLimit is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are discarded so every character is equally likely; a
// plain modulo would over-represent the first 256%36 characters.
const rejectionLimit = 256 - 256%len(alphabet)

// Generator produces verification codes of the shape SPECS-XXXX-XXXX-XXXX.
type Generator struct {
	entropy io.Reader
}

// NewGenerator builds a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy injects a custom entropy source for tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate returns a fresh code. Fails only when the entropy source fails,
// which for crypto/rand means the platform itself is broken.
func (g *Generator) Generate() (string, error) {
	const n = groupCount * groupLen
	buf := make([]byte, n)
	picks := make([]byte, 0, n)
	for len(picks) < n {
		need := n - len(picks)
		if _, err := io.ReadFull(g.entropy, buf[:need]); err != nil {
			return "", fmt.Errorf("read entropy: %w", err)
		}
		for _, b := range buf[:need] {
			if int(b) >= rejectionLimit {
				continue
			}
			picks = append(picks, alphabet[int(b)%len(alphabet)])
		}
	}

	chars := make([]byte, 0, len(Prefix)+groupCount*(groupLen+1))
	chars = append(chars, Prefix...)
	for i, c := range picks {
		if i%groupLen == 0 {
			chars = append(chars, '-')
		}
		chars = append(chars, c)
	}
	return string(chars), nil
}

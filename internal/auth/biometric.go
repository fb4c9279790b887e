package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashSample hashes a raw biometric sample with a per-hash salt at the
// configured cost. The raw sample must never be stored or logged.
func HashSample(sample string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(sample), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareSample verifies a fresh sample against a stored hash. bcrypt's
// comparison is constant-time and deliberately slow.
func CompareSample(hashed, sample string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(sample))
}

// SealCounterparty converts a counterparty's captured sample into a stored
// attestation digest. Counterparties are not registered identities, so the
// digest is the proof itself: evidence a sample was captured, without
// retaining the sample.
func SealCounterparty(sample string, cost int) (string, error) {
	return HashSample(sample, cost)
}

// ValidSeal reports whether a value is structurally a sealed digest rather
// than a raw sample. bcrypt digests carry a $2a$/$2b$/$2y$ version prefix.
func ValidSeal(seal string) bool {
	return strings.HasPrefix(seal, "$2a$") || strings.HasPrefix(seal, "$2b$") || strings.HasPrefix(seal, "$2y$")
}

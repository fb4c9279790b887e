package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompareSample(t *testing.T) {
	hash, err := HashSample("ridge-pattern-alpha", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash sample: %v", err)
	}
	if hash == "ridge-pattern-alpha" {
		t.Fatal("hash must not equal the raw sample")
	}
	if err := CompareSample(hash, "ridge-pattern-alpha"); err != nil {
		t.Fatalf("matching sample rejected: %v", err)
	}
	if err := CompareSample(hash, "ridge-pattern-beta"); err == nil {
		t.Fatal("non-matching sample accepted")
	}
}

func TestHashSampleSalted(t *testing.T) {
	first, err := HashSample("same-sample", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash sample: %v", err)
	}
	second, err := HashSample("same-sample", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash sample: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same sample must differ")
	}
}

func TestValidSeal(t *testing.T) {
	seal, err := SealCounterparty("counterparty-sample", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("seal counterparty: %v", err)
	}
	if !ValidSeal(seal) {
		t.Fatalf("seal %q not recognized", seal)
	}
	if ValidSeal("counterparty-sample") {
		t.Fatal("raw sample accepted as seal")
	}
	if ValidSeal("") {
		t.Fatal("empty string accepted as seal")
	}
}

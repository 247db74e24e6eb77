package password

import (
	"errors"
	"strings"
	"testing"
)

// Smaller parameters keep the test suite fast; verification bounds still hold.
func fastParams() Argon2idParams {
	return Argon2idParams{
		MemoryKiB:   8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("correct horse battery", fastParams())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := Verify("correct horse battery", encoded)
	if err != nil || !ok {
		t.Fatalf("Verify match: ok=%v err=%v", ok, err)
	}

	ok, err = Verify("wrong password!", encoded)
	if err != nil {
		t.Fatalf("Verify mismatch errored: %v", err)
	}
	if ok {
		t.Fatalf("wrong password verified")
	}
}

func TestHashRejectsOutOfBoundsPasswords(t *testing.T) {
	if _, err := Hash("short", fastParams()); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if _, err := Hash(strings.Repeat("x", MaxPasswordLength+1), fastParams()); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestHashSaltsAreUnique(t *testing.T) {
	a, err := Hash("correct horse battery", fastParams())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("correct horse battery", fastParams())
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("identical hashes imply salt reuse")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	cases := []string{
		"",
		"plainly not a hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	}

	for _, encoded := range cases {
		if _, err := Verify("whatever password", encoded); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("encoded=%q: expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}

func TestVerifyRejectsOversizedParameters(t *testing.T) {
	// Parameters far above our limits must be refused before hashing.
	encoded := "$argon2id$v=19$m=1048576,t=64,p=8$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA"
	if _, err := Verify("whatever password", encoded); !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash for oversized params, got %v", err)
	}
}

package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	hasher, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := hasher.Hash("Str0ng!Password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if Identify(hash) != AlgorithmBcrypt {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := hasher.Verify("Str0ng!Password", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}
	ok, err = hasher.Verify("Str0ng!Passwore", hash)
	if err != nil || ok {
		t.Fatalf("Verify(wrong) = %v, %v; want false, nil", ok, err)
	}
}

func TestBcryptCostBounds(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MinCost - 1); err == nil {
		t.Fatal("expected cost below minimum to be rejected")
	}
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost above maximum to be rejected")
	}
	h, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt(0) error: %v", err)
	}
	if h.Cost() != DefaultBcryptCost {
		t.Fatalf("default cost = %d, want %d", h.Cost(), DefaultBcryptCost)
	}
}

func TestBcryptLongPassword(t *testing.T) {
	hasher, _ := NewBcrypt(bcrypt.MinCost)
	long := strings.Repeat("a", 73)

	if _, err := hasher.Hash(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	hash, err := hasher.Hash(long[:72])
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	ok, err := hasher.Verify(long, hash)
	if err != nil || ok {
		t.Fatalf("Verify(73 bytes) = %v, %v; want false, nil", ok, err)
	}
}

func TestBcryptMalformedHash(t *testing.T) {
	hasher, _ := NewBcrypt(bcrypt.MinCost)
	if _, err := hasher.Verify("password", "$2a$04$short"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
	if _, err := hasher.NeedsUpgrade("nope"); !errors.Is(err, ErrMalformedHash) {
		t.Fatalf("expected ErrMalformedHash, got %v", err)
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	weak, _ := NewBcrypt(bcrypt.MinCost)
	strong, _ := NewBcrypt(bcrypt.MinCost + 1)
	hash, err := weak.Hash("upgrade-me")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if up, _ := strong.NeedsUpgrade(hash); !up {
		t.Fatal("expected stronger hasher to request an upgrade")
	}
	if up, _ := weak.NeedsUpgrade(hash); up {
		t.Fatal("expected same-cost hasher not to request an upgrade")
	}
}

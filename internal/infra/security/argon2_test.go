package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("S0me-passw0rd!")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !strings.HasPrefix(hash, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}

	ok, err := VerifyPassword("S0me-passw0rd!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = VerifyPassword("other-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"argon2id$v=19$m=65536,t=3,p=4$salt",
		"bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	}

	for _, encoded := range cases {
		ok, err := VerifyPassword("password", encoded)
		if ok {
			t.Fatalf("hash %q unexpectedly verified", encoded)
		}
		if encoded != "" && err == nil {
			t.Fatalf("hash %q expected decode error", encoded)
		}
	}
}

func TestRecoveryStringNormalization(t *testing.T) {
	hash, err := HashRecoveryString("  Correct Horse Battery  ")
	if err != nil {
		t.Fatalf("HashRecoveryString: %v", err)
	}

	ok, err := VerifyRecoveryString("CORRECT horse BATTERY", hash)
	if err != nil {
		t.Fatalf("VerifyRecoveryString: %v", err)
	}
	if !ok {
		t.Fatal("expected case and whitespace insensitive match")
	}

	ok, _ = VerifyRecoveryString("correct horse batteries", hash)
	if ok {
		t.Fatal("expected different recovery string to fail")
	}
}

func TestConfigureArgon2RejectsWeakParams(t *testing.T) {
	t.Cleanup(func() {
		if err := ConfigureArgon2(DefaultArgon2Config()); err != nil {
			t.Fatalf("restore config: %v", err)
		}
	})

	weak := DefaultArgon2Config()
	weak.Memory = 1024
	if err := ConfigureArgon2(weak); err == nil {
		t.Fatal("expected low memory config to be rejected")
	}

	weak = DefaultArgon2Config()
	weak.Iterations = 0
	if err := ConfigureArgon2(weak); err == nil {
		t.Fatal("expected zero iteration config to be rejected")
	}
}

package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/security"
)

var testCfg = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", testCfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyPassword failed for the correct password")
	}

	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := security.HashPassword("", testCfg); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	if _, err := security.VerifyPassword("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestLooksHashed(t *testing.T) {
	hash, err := security.HashPassword("parola", testCfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !security.LooksHashed(hash) {
		t.Fatal("expected freshly minted hash to be recognised")
	}

	for _, plain := range []string{"", "parola", "$argon2id$", "$argon2id$v=19$m=1,t=1,p=1$abc$def", "$2a$10$abcdefghijklmnopqrstuv"} {
		if security.LooksHashed(plain) {
			t.Fatalf("did not expect %q to look hashed", plain)
		}
	}
}

func TestLooksHashedRejectsOutOfRangeCosts(t *testing.T) {
	hash, err := security.HashPassword("pw-1234", testCfg)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !security.LooksHashed(hash) {
		t.Fatal("expected a generated hash to be recognized")
	}

	cases := []string{
		"$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=4294967295,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$" + strings.Repeat("c2Fs", 30) + "$aGFzaGhhc2hoYXNoaGFzaA",
	}
	for _, encoded := range cases {
		if security.LooksHashed(encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
		if _, err := security.VerifyPassword("pw", encoded); err == nil {
			t.Fatalf("expected verify to refuse %q", encoded)
		}
	}
}

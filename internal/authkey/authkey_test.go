package authkey

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestKey(t *testing.T) (string, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, priv, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path, pub
}

func TestNewTokenManagerWithoutKeyOrToken(t *testing.T) {
	tm, err := NewTokenManager("", "")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	params, err := tm.ConnectParams()
	if err != nil {
		t.Fatalf("ConnectParams: %v", err)
	}
	if len(params) != 0 {
		t.Fatalf("expected no params, got %v", params)
	}
}

func TestConnectParamsIncludesTokenOnly(t *testing.T) {
	tm, err := NewTokenManager("", "abc123")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	params, err := tm.ConnectParams()
	if err != nil {
		t.Fatalf("ConnectParams: %v", err)
	}
	if params["token"] != "abc123" {
		t.Fatalf("params = %v, want token=abc123", params)
	}
	if _, ok := params["pubkey"]; ok {
		t.Fatal("expected no pubkey param without a loaded key")
	}
}

func TestConnectParamsSignsChallengeWithKey(t *testing.T) {
	keyPath, pub := writeTestKey(t)
	tm, err := NewTokenManager(keyPath, "")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}

	params, err := tm.ConnectParams()
	if err != nil {
		t.Fatalf("ConnectParams: %v", err)
	}

	wantPub := hex.EncodeToString(pub)
	if params["pubkey"] != wantPub {
		t.Fatalf("pubkey = %s, want %s", params["pubkey"], wantPub)
	}

	sig, err := hex.DecodeString(params["sig"])
	if err != nil {
		t.Fatalf("decode sig: %v", err)
	}
	if !ed25519.Verify(pub, []byte(params["challenge"]), sig) {
		t.Fatal("signature does not verify against the public key and challenge")
	}
}

func TestSignChallengeWithoutKeyErrors(t *testing.T) {
	tm, err := NewTokenManager("", "")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if _, err := tm.SignChallenge("x"); err == nil {
		t.Fatal("expected error signing without a loaded key")
	}
}

func TestExpired(t *testing.T) {
	tm, err := NewTokenManager("", "")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if tm.Expired(time.Hour) {
		t.Fatal("freshly constructed TokenManager should not be expired")
	}
	if !tm.Expired(-time.Second) {
		t.Fatal("a negative maxAge should always report expired")
	}
}

func TestNewTokenManagerRejectsShortKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	if err := os.WriteFile(path, []byte("too short"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewTokenManager(path, ""); err == nil {
		t.Fatal("expected error loading an undersized key file")
	}
}

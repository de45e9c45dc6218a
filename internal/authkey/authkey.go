// Package authkey signs the connect-time challenge phxcli presents to a
// Phoenix server that requires Ed25519 client authentication, and tracks
// how long the resulting session is trusted to stay valid.
package authkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/eshe-huli/phx/internal/crypto"
)

// TokenManager holds an optional bearer token and an optional Ed25519
// keypair, and produces the query params a Socket should connect with.
type TokenManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	token      string
	issuedAt   time.Time
}

// NewTokenManager loads a raw Ed25519 private key from keyPath (if given)
// and/or a bearer token string. Either, both, or neither may be set; an
// empty TokenManager just produces no auth params.
func NewTokenManager(keyPath, token string) (*TokenManager, error) {
	tm := &TokenManager{token: strings.TrimSpace(token), issuedAt: time.Now()}

	if keyPath == "" {
		return tm, nil
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("authkey: read key %s: %w", keyPath, err)
	}
	if len(keyData) < ed25519.PrivateKeySize {
		return nil, fmt.Errorf("authkey: key %s is too short to be an ed25519 private key", keyPath)
	}
	tm.privateKey = ed25519.PrivateKey(keyData[:ed25519.PrivateKeySize])
	tm.publicKey = tm.privateKey.Public().(ed25519.PublicKey)
	return tm, nil
}

// Token returns the bearer token, or "" if none was configured.
func (tm *TokenManager) Token() string { return tm.token }

// PublicKeyHex returns the hex-encoded Ed25519 public key, or "" if no
// keypair was loaded.
func (tm *TokenManager) PublicKeyHex() string {
	if tm.publicKey == nil {
		return ""
	}
	return crypto.PublicKeyHex(tm.publicKey)
}

// SignChallenge signs challenge and returns the hex-encoded signature.
func (tm *TokenManager) SignChallenge(challenge string) (string, error) {
	if tm.privateKey == nil {
		return "", fmt.Errorf("authkey: no private key loaded")
	}
	sig, err := crypto.Ed25519Sign(tm.privateKey, []byte(challenge))
	if err != nil {
		return "", fmt.Errorf("authkey: sign challenge: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// ConnectParams builds the query parameters a Socket should connect with:
// a bearer token if one is set, or a signed timestamp+nonce challenge if a
// keypair is loaded. Both may be present at once; neither is an error, it
// just means the server sees no auth params at all.
func (tm *TokenManager) ConnectParams() (map[string]string, error) {
	params := map[string]string{}
	if tm.token != "" {
		params["token"] = tm.token
	}
	if tm.privateKey == nil {
		return params, nil
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("authkey: generate nonce: %w", err)
	}
	challenge := fmt.Sprintf("%d.%s", time.Now().UTC().Unix(), hex.EncodeToString(nonce))
	sig, err := tm.SignChallenge(challenge)
	if err != nil {
		return nil, err
	}

	params["pubkey"] = tm.PublicKeyHex()
	params["challenge"] = challenge
	params["sig"] = sig
	return params, nil
}

// Expired reports whether this TokenManager was constructed more than
// maxAge ago.
func (tm *TokenManager) Expired(maxAge time.Duration) bool {
	return time.Since(tm.issuedAt) > maxAge
}

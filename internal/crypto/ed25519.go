package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateEd25519Keypair generates a new Ed25519 keypair.
// Returns (publicKey, privateKey, error).
func GenerateEd25519Keypair() ([]byte, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return []byte(pub), []byte(priv), nil
}

// Ed25519Sign signs data with the given private key.
func Ed25519Sign(privateKey, data []byte) ([]byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: %d (expected %d)", len(privateKey), ed25519.PrivateKeySize)
	}
	sig := ed25519.Sign(ed25519.PrivateKey(privateKey), data)
	return sig, nil
}

// PublicKeyHex returns the hex-encoded public key.
func PublicKeyHex(pub []byte) string {
	return hex.EncodeToString(pub)
}

// Package did creates and parses did:key identifiers for Ed25519 keys.
package did

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
)

const (
	keyPrefix = "did:key:"
	maxLength = 2048
)

// ed25519-pub multicodec (0xed) as an unsigned varint.
var ed25519Codec = []byte{0xed, 0x01}

// Key is a generated identity: its DID and signing key.
type Key struct {
	DID        string
	PrivateKey ed25519.PrivateKey
}

// KeyID is the verification method id used in JWS headers.
func (k Key) KeyID() string {
	return k.DID + "#" + strings.TrimPrefix(k.DID, keyPrefix)
}

// Generate creates a fresh Ed25519 did:key.
func Generate() (Key, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Key{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	id, err := FromPublicKey(pub)
	if err != nil {
		return Key{}, err
	}
	return Key{DID: id, PrivateKey: priv}, nil
}

// FromPublicKey encodes an Ed25519 public key as a did:key.
func FromPublicKey(pub ed25519.PublicKey) (string, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("invalid ed25519 public key length %d", len(pub))
	}
	encoded, err := multibase.Encode(multibase.Base58BTC, append(append([]byte{}, ed25519Codec...), pub...))
	if err != nil {
		return "", fmt.Errorf("encode public key: %w", err)
	}
	return keyPrefix + encoded, nil
}

// PublicKey extracts the Ed25519 public key embedded in a did:key.
func PublicKey(id string) (ed25519.PublicKey, error) {
	if !strings.HasPrefix(id, keyPrefix) {
		return nil, fmt.Errorf("not a did:key: %q", id)
	}
	encoding, data, err := multibase.Decode(strings.TrimPrefix(id, keyPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode did:key: %w", err)
	}
	if encoding != multibase.Base58BTC {
		return nil, fmt.Errorf("did:key must be base58btc encoded")
	}
	if !bytes.HasPrefix(data, ed25519Codec) || len(data) != len(ed25519Codec)+ed25519.PublicKeySize {
		return nil, fmt.Errorf("did:key is not an ed25519 key")
	}
	return ed25519.PublicKey(data[len(ed25519Codec):]), nil
}

// Validate checks the generic DID syntax did:<method>:<method-specific-id>.
// It does not resolve the DID.
func Validate(id string) error {
	if len(id) > maxLength {
		return fmt.Errorf("did exceeds %d bytes", maxLength)
	}
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return fmt.Errorf("did must have the form did:<method>:<id>")
	}
	for _, r := range parts[1] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fmt.Errorf("did method must be lowercase alphanumeric")
		}
	}
	if parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("did must have the form did:<method>:<id>")
	}
	if strings.ContainsAny(parts[2], " \t\r\n") {
		return fmt.Errorf("did must not contain whitespace")
	}
	return nil
}

// Method returns the DID method name, or "" when id is not a DID.
func Method(id string) string {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return ""
	}
	return parts[1]
}

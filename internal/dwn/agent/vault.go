package agent

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/models"
)

// ErrWrongPassword is returned when a sealed key cannot be opened.
var ErrWrongPassword = errors.New("agent vault: wrong password or corrupted key")

// argon2id parameters for deriving the sealing key from the agent password.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	saltSize   = 16
)

// seal encrypts the key's seed under a password-derived key. The DID is bound as
// associated data so a sealed key cannot be replayed under another identity.
func seal(password string, key did.Key, now time.Time) (models.SealedKey, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return models.SealedKey{}, fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return models.SealedKey{}, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return models.SealedKey{}, fmt.Errorf("generate nonce: %w", err)
	}
	return models.SealedKey{
		DID:        key.DID,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, key.PrivateKey.Seed(), []byte(key.DID)),
		CreatedAt:  now,
	}, nil
}

// open reverses seal and checks the recovered key matches the sealed DID.
func open(password string, sealed models.SealedKey) (did.Key, error) {
	aead, err := chacha20poly1305.NewX(deriveKey(password, sealed.Salt))
	if err != nil {
		return did.Key{}, fmt.Errorf("init cipher: %w", err)
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return did.Key{}, ErrWrongPassword
	}
	seed, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, []byte(sealed.DID))
	if err != nil || len(seed) != ed25519.SeedSize {
		return did.Key{}, ErrWrongPassword
	}
	priv := ed25519.NewKeyFromSeed(seed)
	id, err := did.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return did.Key{}, err
	}
	if id != sealed.DID {
		return did.Key{}, fmt.Errorf("agent vault: key does not match %s", sealed.DID)
	}
	return did.Key{DID: id, PrivateKey: priv}, nil
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

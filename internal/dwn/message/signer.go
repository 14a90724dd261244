// Package message builds, signs and verifies DWN messages.
package message

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/models"
)

var (
	// ErrInvalidSignature is returned when an authorization does not verify.
	ErrInvalidSignature = errors.New("invalid message signature")
	// ErrDescriptorMismatch is returned when a signature covers a different descriptor.
	ErrDescriptorMismatch = errors.New("signature does not cover descriptor")
)

// descriptorClaims is the JWS payload: the author and the CID of the signed descriptor.
type descriptorClaims struct {
	DescriptorCID string `json:"descriptorCid"`
	jwt.RegisteredClaims
}

// Signer signs descriptors on behalf of one DID.
type Signer struct {
	key did.Key
	now func() time.Time
}

// NewSigner returns a signer for key.
func NewSigner(key did.Key) *Signer {
	return &Signer{key: key, now: time.Now}
}

// DID returns the author DID.
func (s *Signer) DID() string {
	return s.key.DID
}

// Sign returns an authorization over the descriptor's CID.
func (s *Signer) Sign(descriptor any) (models.Authorization, error) {
	descriptorCID, err := CID(descriptor)
	if err != nil {
		return models.Authorization{}, err
	}
	claims := descriptorClaims{
		DescriptorCID: descriptorCID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.key.DID,
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.key.KeyID()

	signed, err := token.SignedString(s.key.PrivateKey)
	if err != nil {
		return models.Authorization{}, fmt.Errorf("sign descriptor: %w", err)
	}
	return models.Authorization{Signature: signed}, nil
}

// Verify checks that auth is a valid signature over descriptor by a did:key author
// and returns the author DID.
func Verify(descriptor any, auth models.Authorization) (string, error) {
	claims := &descriptorClaims{}
	_, err := jwt.ParseWithClaims(auth.Signature, claims, func(token *jwt.Token) (any, error) {
		issuer, err := token.Claims.GetIssuer()
		if err != nil {
			return nil, err
		}
		pub, err := did.PublicKey(issuer)
		if err != nil {
			return nil, err
		}
		return ed25519.PublicKey(pub), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	descriptorCID, err := CID(descriptor)
	if err != nil {
		return "", err
	}
	if claims.DescriptorCID != descriptorCID {
		return "", ErrDescriptorMismatch
	}
	return claims.Issuer, nil
}

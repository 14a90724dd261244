package message

import (
	"encoding/json"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CID returns the CIDv1 (raw codec, sha2-256) of the canonical JSON encoding of v.
// Struct fields encode in declaration order and map keys sorted, so the same
// descriptor always yields the same CID.
func CID(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode for cid: %w", err)
	}
	return DataCID(raw)
}

// DataCID returns the CIDv1 of raw bytes.
func DataCID(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash data: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// ParseCID validates a CID string.
func ParseCID(s string) error {
	_, err := cid.Decode(s)
	return err
}

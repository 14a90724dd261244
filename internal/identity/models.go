package identity

import "vctodwn/internal/dwn"

// Identity is the customer identity and its store handle, created once at startup
// and passed explicitly to everything that needs it.
type Identity struct {
	DID   string
	Store dwn.Store
	// Created is true when this run generated the identity.
	Created bool
}

// Record is the persisted form: {"did": "<identifier>"}.
type Record struct {
	DID string `json:"did"`
}

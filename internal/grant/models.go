package grant

import "vctodwn/internal/dwn/models"

// Outcome of a successful authorization.
type Outcome string

const (
	OutcomeAlreadyGranted Outcome = "already_granted"
	OutcomeNewlyGranted   Outcome = "newly_granted"
)

// Result of Authorize. Failures are returned as errors instead.
type Result struct {
	Outcome Outcome
	// Status is the query status for AlreadyGranted and the create status for
	// NewlyGranted.
	Status          models.Status
	CreateStatus    models.Status
	ReplicateStatus models.Status
	RecordID        string
}

// Query scopes for the existing-grant lookup.
const (
	// ScopeRecipient matches any record addressed to the requester.
	ScopeRecipient = "recipient"
	// ScopeProtocol matches only role records of the configured protocol.
	ScopeProtocol = "protocol"
)

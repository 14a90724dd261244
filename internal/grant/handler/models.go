package handler

import (
	"net/url"
	"strings"

	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/grant"
	dErrors "vctodwn/pkg/domain-errors"
)

const (
	messageAlreadyGranted = "You already have authorization to store a credential in the Customer's DWN"
	messageNewlyGranted   = "You've been granted authorization to store a credential in the Customer's DWN"
)

// AuthorizeRequest is the query of GET /authorize.
type AuthorizeRequest struct {
	IssuerDID string
}

func (r *AuthorizeRequest) BindQuery(values url.Values) {
	r.IssuerDID = values.Get("issuerDid")
}

func (r *AuthorizeRequest) Normalize() {
	r.IssuerDID = strings.TrimSpace(r.IssuerDID)
}

func (r *AuthorizeRequest) Validate() error {
	if r.IssuerDID == "" {
		return grant.ErrMissingRequester
	}
	if err := did.Validate(r.IssuerDID); err != nil {
		return dErrors.New(dErrors.CodeInvalidRequest, "issuerDid: "+err.Error())
	}
	return nil
}

// AuthorizeResponse is the body of a successful GET /authorize. Status is the
// status code of the lookup or the create; Customer carries the full
// replication status and is only set for new grants.
type AuthorizeResponse struct {
	Message  string         `json:"message"`
	Status   int            `json:"status"`
	Customer *models.Status `json:"customer,omitempty"`
}

func toResponse(result *grant.Result) AuthorizeResponse {
	if result.Outcome == grant.OutcomeAlreadyGranted {
		return AuthorizeResponse{Message: messageAlreadyGranted, Status: result.Status.Code}
	}
	replicate := result.ReplicateStatus
	return AuthorizeResponse{
		Message:  messageNewlyGranted,
		Status:   result.CreateStatus.Code,
		Customer: &replicate,
	}
}

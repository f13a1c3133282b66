package handler

import (
	"strings"

	"giftexchange/internal/roster/models"
	dErrors "giftexchange/pkg/domain-errors"
)

// MemberRequest is the HTTP request body for POST /members and PUT /members/{id}.
type MemberRequest struct {
	Name string `json:"name"`
}

// Validate trims and checks the name.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *MemberRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len([]rune(r.Name)) > models.MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name is too long")
	}
	return nil
}

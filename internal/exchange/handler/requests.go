package handler

import (
	"net/url"
	"strconv"

	"giftexchange/internal/exchange/service"
	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
)

// MaxAttemptsLimit caps the attempt budget a caller may request.
const MaxAttemptsLimit = 100_000

// GenerateRequest is the optional body of POST /gift-exchange. Every field may
// also be given as a query parameter.
type GenerateRequest struct {
	CycleKey    *int64 `json:"cycle_key,omitempty"`
	MaxAttempts *int   `json:"max_attempts,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`

	parsedKey *id.CycleKey
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *GenerateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.CycleKey != nil {
		key, err := id.NewCycleKey(*r.CycleKey)
		if err != nil {
			return err
		}
		r.parsedKey = &key
	}
	if r.MaxAttempts != nil && (*r.MaxAttempts < 1 || *r.MaxAttempts > MaxAttemptsLimit) {
		return dErrors.New(dErrors.CodeValidation, "max_attempts must be between 1 and "+strconv.Itoa(MaxAttemptsLimit))
	}
	return nil
}

// applyQuery fills fields the body left unset from query parameters.
func (r *GenerateRequest) applyQuery(q url.Values) error {
	if v := q.Get("cycle_key"); v != "" && r.CycleKey == nil {
		key, err := id.ParseCycleKey(v)
		if err != nil {
			return err
		}
		n := int64(key)
		r.CycleKey = &n
	}
	if v := q.Get("max_attempts"); v != "" && r.MaxAttempts == nil {
		n, err := strconv.Atoi(v)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "max_attempts must be an integer")
		}
		r.MaxAttempts = &n
	}
	if v := q.Get("dry_run"); v != "" && !r.DryRun {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "dry_run must be a boolean")
		}
		r.DryRun = b
	}
	return r.Validate()
}

func (r *GenerateRequest) toService() service.GenerateRequest {
	out := service.GenerateRequest{Key: r.parsedKey, DryRun: r.DryRun}
	if r.MaxAttempts != nil {
		out.MaxAttempts = *r.MaxAttempts
	}
	return out
}

// Package model provides value objects for API parameter validation.
package model

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

const (
	// MaxDoseCount is the largest number of administrations a regimen may have.
	MaxDoseCount = 500

	defaultDoseCount = 1
	defaultDuration  = 24.0

	defaultLimit = 100
	maxLimit     = 1000
)

// ParseID parses a UUID taken from the request parameter named field.
func ParseID(field, idStr string) (uuid.UUID, error) {
	if idStr == "" {
		return uuid.Nil, newFieldError(field, "is required")
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, newFieldError(field, "invalid UUID format")
	}
	return id, nil
}

// ParseOptionalID is ParseID for filters: an empty string yields nil.
func ParseOptionalID(field, idStr string) (*uuid.UUID, error) {
	if idStr == "" {
		return nil, nil
	}
	id, err := ParseID(field, idStr)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// RegimenInput is a regimen as it arrives from a client. Nil fields take their defaults.
type RegimenInput struct {
	Dose     *float64 `json:"dose"`
	Doses    *int     `json:"doses"`
	Interval *float64 `json:"interval"`
	Duration *float64 `json:"duration"`
}

// NewRegimen validates a client regimen and fills in defaults.
// Durations longer than maxDuration hours are rejected; maxDuration <= 0 disables the cap.
func NewRegimen(in RegimenInput, maxDuration float64) (*Regimen, error) {
	if in.Dose == nil {
		return nil, newFieldError("dose", "is required")
	}
	if !isFinite(*in.Dose) || *in.Dose <= 0 {
		return nil, newFieldError("dose", "must be greater than 0")
	}

	r := &Regimen{
		Dose:     *in.Dose,
		Doses:    defaultDoseCount,
		Duration: defaultDuration,
	}

	if in.Doses != nil {
		if *in.Doses < 1 || *in.Doses > MaxDoseCount {
			return nil, newFieldError("doses", fmt.Sprintf("must be between 1 and %d", MaxDoseCount))
		}
		r.Doses = *in.Doses
	}

	if in.Interval != nil {
		if !isFinite(*in.Interval) || *in.Interval < 0 {
			return nil, newFieldError("interval", "must not be negative")
		}
		r.Interval = *in.Interval
	}

	if in.Duration != nil {
		if !isFinite(*in.Duration) || *in.Duration <= 0 {
			return nil, newFieldError("duration", "must be greater than 0")
		}
		r.Duration = *in.Duration
	}
	if maxDuration > 0 && r.Duration > maxDuration {
		return nil, newFieldError("duration", fmt.Sprintf("must not exceed %g hours", maxDuration))
	}

	return r, nil
}

// Pagination represents pagination parameters value object.
type Pagination struct {
	limit  int
	offset int
}

// NewPagination creates a new pagination value object.
func NewPagination(limitStr, offsetStr string) (*Pagination, error) {
	limit := defaultLimit
	offset := 0

	if limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, newFieldError("limit", "must be a positive integer")
		}
		if parsedLimit <= 0 {
			return nil, newFieldError("limit", "must be greater than 0")
		}
		limit = min(parsedLimit, maxLimit)
	}

	if offsetStr != "" {
		parsedOffset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, newFieldError("offset", "must be a non-negative integer")
		}
		if parsedOffset < 0 {
			return nil, newFieldError("offset", "must be non-negative")
		}
		offset = parsedOffset
	}

	return &Pagination{limit: limit, offset: offset}, nil
}

// NewPaginationWithValues creates a pagination value object without parsing.
func NewPaginationWithValues(limit, offset int) *Pagination {
	return &Pagination{limit: limit, offset: offset}
}

// Limit returns the limit value.
func (p *Pagination) Limit() int {
	return p.limit
}

// Offset returns the offset value.
func (p *Pagination) Offset() int {
	return p.offset
}

// Package storage provides the staging persistence layer for the classbridge
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mgiraud/classbridge/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidCandidate = errors.New("invalid match candidate")
	ErrInvalidAudit     = errors.New("invalid audit")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCandidates validates a slice of match candidates before persisting.
func validateCandidates(candidates []model.MatchCandidate) error {
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %v", ErrInvalidCandidate, i, err)
		}
	}
	return nil
}

// validateAudits validates a slice of audits before persisting.
func validateAudits(audits []model.MigrationAudit) error {
	for i, a := range audits {
		if a.RecordID == "" && a.StudentRef == "" {
			return fmt.Errorf("%w at index %d: missing record identity", ErrInvalidAudit, i)
		}
	}
	return nil
}

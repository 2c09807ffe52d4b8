package service

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fieldops/dispatch/internal/lifecycle"
	"github.com/fieldops/dispatch/internal/repository"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// guardError translates lifecycle guard failures into API errors.
func guardError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, lifecycle.ErrForbidden), errors.Is(err, lifecycle.ErrNoSectorAccess):
		return apperrors.Wrap(apperrors.NewForbidden(err.Error()), err)
	case errors.Is(err, lifecycle.ErrMissingObservations):
		return apperrors.Wrap(apperrors.NewValidationError(err.Error(), map[string]any{"field": "observations"}), err)
	case errors.Is(err, lifecycle.ErrInvalidAssignee):
		return apperrors.Wrap(apperrors.NewValidationError(err.Error(), map[string]any{"field": "technician_id"}), err)
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrAlreadyAssigned),
		errors.Is(err, lifecycle.ErrNotAssigned),
		errors.Is(err, lifecycle.ErrAlreadyCheckedIn),
		errors.Is(err, lifecycle.ErrNotCheckedIn),
		errors.Is(err, lifecycle.ErrReportAttached):
		return apperrors.Wrap(apperrors.NewConflict(err.Error(), nil), err)
	}
	return apperrors.MapError(err)
}

// lookupError maps a repository read failure, naming the missing resource.
func lookupError(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// writeError maps a failed write. A concurrent change to the same ticket is a
// conflict; the caller may reload and retry.
func writeError(err error) error {
	if errors.Is(err, repository.ErrStaleWrite) {
		return apperrors.Wrap(apperrors.NewConflict("ticket was changed by another request", nil), err)
	}
	return apperrors.MapError(err)
}

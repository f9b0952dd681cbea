package repository

import (
	"errors"

	"travel_leads_backend/platform/apperr"
)

// AsAppErr translates store sentinels into typed application errors and
// passes everything else through untouched.
func AsAppErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("lead not found")
	case errors.Is(err, ErrEngagementNotFound):
		return apperr.NotFound("engagement not found")
	case errors.Is(err, ErrEngagementLinked):
		return apperr.Conflict("engagement is already linked to a lead")
	}
	return err
}

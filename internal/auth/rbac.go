package auth

import (
	"govichain/internal/errors"
	"govichain/internal/model"
)

// Principal is the authenticated actor performing an operation. It is
// resolved from a verified token before any service call; services trust it.
type Principal struct {
	UserID uint
	Role   model.Role
}

// RequireRole accepts the principal when its role is in the allowed set and
// returns AccessDeniedError otherwise. Pure function, no side effects.
func RequireRole(p Principal, allowed ...model.Role) error {
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	return &errors.AccessDeniedError{Required: allowed}
}

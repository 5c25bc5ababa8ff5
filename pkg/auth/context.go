package auth

import (
	"context"

	"crm-backend/pkg/errors"
)

// contextKey is a private type to avoid context key collisions
type contextKey string

const userContextKey contextKey = "user"

// UserContext carries the authenticated user through a request
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the user holds the given role
func (u *UserContext) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsManager reports whether the user holds an elevated CRM role.
// Managers may delete any reminder and read any lead.
func (u *UserContext) IsManager() bool {
	return u.HasRole("sales_manager") || u.HasRole("admin")
}

// SetUserInContext stores the user context on the request context
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext retrieves the user context set by the auth middleware
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok || user == nil {
		return nil, errors.NewForbiddenError("no authenticated user in context")
	}
	return user, nil
}

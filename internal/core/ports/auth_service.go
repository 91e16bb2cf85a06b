package ports

import (
	"context"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

// RegisterInput carries the data for a self-service account registration.
// InstitutionName is required for admin accounts and ignored otherwise.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	Role            string
	InstitutionName string
}

// AuthService handles account creation and credential issuance.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	// Login authenticates by username or email and returns a signed bearer
	// token plus the user. All failure modes collapse into
	// domain.ErrInvalidCredentials so callers cannot probe which part was wrong.
	Login(ctx context.Context, identifier, password string) (string, *domain.User, error)
}

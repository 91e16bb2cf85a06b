package ports

import (
	"context"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns domain.ErrUserExists when the
	// username or email is already taken (enforced by unique indexes).
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIdentifier matches either username or email (login accepts both).
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	// UpdateInfo changes username/email and, when photoRef is non-empty, the
	// profile photo reference.
	UpdateInfo(ctx context.Context, id, username, email, photoRef string) error
	UpdatePhoto(ctx context.Context, id, photoRef string) error
	// Delete removes a user. The role guard prevents deleting non-student
	// accounts through the student-deletion cascade.
	Delete(ctx context.Context, id, role string) error
}

// InstitutionRepository defines persistence operations for institutions.
type InstitutionRepository interface {
	Create(ctx context.Context, inst *domain.Institution) (*domain.Institution, error)
	FindByID(ctx context.Context, id string) (*domain.Institution, error)
	// FindByAdmin returns the single institution owned by the given admin
	// user, or domain.ErrInstitutionNotFound.
	FindByAdmin(ctx context.Context, adminID string) (*domain.Institution, error)
}

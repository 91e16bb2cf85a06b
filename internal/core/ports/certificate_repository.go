package ports

import (
	"context"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

// CertificateRepository defines persistence operations for certificates.
//
// The unique index on certificate_hash is the authoritative duplicate guard:
// a concurrent issuance that passes the service-level pre-check still fails
// at insert time with domain.ErrDuplicateFingerprint.
type CertificateRepository interface {
	// Create inserts a new certificate row and returns its id.
	// Fails with domain.ErrDuplicateFingerprint when the hash already exists.
	Create(ctx context.Context, cert *domain.Certificate) (string, error)
	FindByID(ctx context.Context, id string) (*domain.Certificate, error)
	// FindByHash resolves a fingerprint to its certificate, or
	// domain.ErrCertificateNotFound.
	FindByHash(ctx context.Context, hash string) (*domain.Certificate, error)
	// ListByStudent and ListByInstitution return certificates ordered by
	// creation time, descending.
	ListByStudent(ctx context.Context, studentID string) ([]*domain.Certificate, error)
	ListByInstitution(ctx context.Context, institutionID string) ([]*domain.Certificate, error)
	// TransitionStatus conditionally moves a certificate from one status to
	// another. It reports false (without error) when the certificate was not
	// in the expected prior status, which makes concurrent transitions safe.
	TransitionStatus(ctx context.Context, id string, from, to domain.CertificateStatus) (bool, error)
	// Revoke marks the certificate revoked unless it already is.
	// Reports false when the certificate was already revoked.
	Revoke(ctx context.Context, id string) (bool, error)
	// Delete hard-deletes the row. It has no effect on fingerprint
	// uniqueness of other rows.
	Delete(ctx context.Context, id string) error
}

// AuditRepository persists append-only audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	// ListRecent returns the newest entries attributable to the given user
	// id or to no user at all (anonymous public verification), newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error)
}

// AuditRecorder is the fire-and-forget side of the audit log. A failed write
// must never roll back the operation it documents; implementations log and
// count failures internally.
type AuditRecorder interface {
	Record(entry domain.AuditEntry)
}

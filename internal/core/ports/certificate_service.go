package ports

import (
	"context"
	"time"

	"github.com/gctu/certificate-registry/internal/core/domain"
)

// IssueCertificateInput carries everything needed to issue a certificate.
// The issuing institution is implied by AdminID. When StudentUsername does
// not reference an existing student account, one is created from
// StudentName/StudentEmail/StudentPassword.
type IssueCertificateInput struct {
	AdminID         string
	StudentUsername string
	StudentName     string
	StudentEmail    string
	StudentPassword string
	Title           string
	Description     string
	IssueDate       time.Time
	ExpiryDate      *time.Time
	Artifact        []byte
	ArtifactName    string
	Photo           []byte
	PhotoName       string
}

// IssueResult is returned after a successful issuance.
type IssueResult struct {
	CertificateID   string
	Hash            string
	AnchorTxRef     string
	FileRef         string
	StudentUsername string
	StudentCreated  bool
}

// CertificateView is a certificate joined with its student and institution
// names, safe to return to API callers (no credential material).
type CertificateView struct {
	ID              string
	Hash            string
	Title           string
	Description     string
	IssueDate       time.Time
	ExpiryDate      *time.Time
	Status          string
	AnchorTxRef     string
	CreatedAt       time.Time
	StudentUsername string
	StudentEmail    string
	StudentPhotoRef string
	InstitutionName string
}

// DownloadResult carries a certificate artifact stream for the owning student.
type DownloadResult struct {
	Filename string
	Content  []byte
}

// UpdateStudentInput carries an admin-side student profile update.
type UpdateStudentInput struct {
	StudentID string
	Username  string
	Email     string
	Photo     []byte
	PhotoName string
}

// CertificateService defines the issuance, listing, revocation, and
// administrative operations over certificates.
type CertificateService interface {
	Issue(ctx context.Context, input IssueCertificateInput) (*IssueResult, error)
	ListByInstitution(ctx context.Context, adminID string) ([]CertificateView, error)
	ListByStudent(ctx context.Context, studentID string) ([]CertificateView, error)
	Institution(ctx context.Context, adminID string) (*domain.Institution, error)
	// Revoke transitions the certificate to revoked. The caller must be the
	// admin of the owning institution; ownership failures are reported as
	// not-found so existence is never leaked.
	Revoke(ctx context.Context, adminID, certificateID string) error
	// Delete hard-deletes the certificate row and its stored artifact.
	Delete(ctx context.Context, adminID, certificateID string) error
	// Download returns the artifact for the owning student only.
	Download(ctx context.Context, studentID, certificateID string) (*DownloadResult, error)
	// DeleteStudent cascades: certificates and their artifacts first, then
	// the student account. Audit entries referencing the student survive.
	DeleteStudent(ctx context.Context, adminID, studentID string) error
	UpdateStudent(ctx context.Context, adminID string, input UpdateStudentInput) error
	// UpdateStudentPhoto stores a new profile photo and points the student
	// record at it, leaving username and email untouched.
	UpdateStudentPhoto(ctx context.Context, adminID, studentID string, photo []byte, photoName string) error
	AuditLogs(ctx context.Context, adminID string, limit int) ([]*domain.AuditEntry, error)
}

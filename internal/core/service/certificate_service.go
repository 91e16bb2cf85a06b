package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// issuedStudentCost is the bcrypt cost for student accounts created during
// issuance. The policy floor is a cost factor of 10.
const issuedStudentCost = bcrypt.DefaultCost

// CertificateService implements issuance, listing, revocation, and the
// administrative operations over certificates.
type CertificateService struct {
	certs        ports.CertificateRepository
	users        ports.UserRepository
	institutions ports.InstitutionRepository
	artifacts    ports.ArtifactStore
	anchor       ports.AnchorWriter
	audit        ports.AuditRecorder
	auditLog     ports.AuditRepository
	cache        VerdictCache
	logger       zerolog.Logger
}

func NewCertificateService(
	certs ports.CertificateRepository,
	users ports.UserRepository,
	institutions ports.InstitutionRepository,
	artifacts ports.ArtifactStore,
	anchor ports.AnchorWriter,
	audit ports.AuditRecorder,
	auditLog ports.AuditRepository,
	cache VerdictCache,
	logger zerolog.Logger,
) *CertificateService {
	return &CertificateService{
		certs:        certs,
		users:        users,
		institutions: institutions,
		artifacts:    artifacts,
		anchor:       anchor,
		audit:        audit,
		auditLog:     auditLog,
		cache:        cache,
		logger:       logger,
	}
}

// Issue runs the full issuance workflow: resolve the issuing institution,
// fingerprint the artifact, reject duplicates, resolve or create the student
// account, then stage the artifact, insert the row, and commit the artifact,
// with compensating cleanup when any step fails.
func (s *CertificateService) Issue(ctx context.Context, input ports.IssueCertificateInput) (*ports.IssueResult, error) {
	if len(input.Artifact) == 0 {
		return nil, domain.ErrArtifactRequired
	}

	inst, err := s.institutions.FindByAdmin(ctx, input.AdminID)
	if err != nil {
		return nil, err
	}

	hash := fingerprint.Compute(input.Artifact)

	// Pre-check before any side effect. The unique index on the hash column
	// remains the authoritative guard against concurrent issuance.
	if _, err := s.certs.FindByHash(ctx, hash); err == nil {
		return nil, domain.ErrDuplicateFingerprint
	} else if !errors.Is(err, domain.ErrCertificateNotFound) {
		return nil, fmt.Errorf("issue: duplicate pre-check: %w", err)
	}

	student, created, err := s.resolveStudent(ctx, input)
	if err != nil {
		return nil, err
	}

	staged, err := s.artifacts.Stage(ctx, input.ArtifactName, input.Artifact)
	if err != nil {
		return nil, fmt.Errorf("issue: stage artifact: %w", err)
	}

	// Best-effort anchor attestation; absence or failure never blocks issuance.
	anchorTx, err := s.anchor.Write(ctx, hash)
	if err != nil {
		if !errors.Is(err, ports.ErrAnchorUnavailable) {
			s.logger.Warn().Err(err).Str("hash", hash).Msg("anchor write failed")
		}
		anchorTx = ""
	}

	now := time.Now().UTC()
	cert := &domain.Certificate{
		Hash:          hash,
		StudentID:     student.ID,
		InstitutionID: inst.ID,
		Title:         input.Title,
		Description:   input.Description,
		IssueDate:     input.IssueDate,
		ExpiryDate:    input.ExpiryDate,
		Status:        domain.StatusActive,
		AnchorTxRef:   anchorTx,
		FileRef:       staged.Ref,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	id, err := s.certs.Create(ctx, cert)
	if err != nil {
		if discardErr := s.artifacts.Discard(ctx, staged); discardErr != nil {
			s.logger.Warn().Err(discardErr).Str("key", staged.Key).Msg("failed to discard staged artifact")
		}
		return nil, err
	}

	if err := s.artifacts.Commit(ctx, staged); err != nil {
		// Compensate: no row may reference an artifact that does not exist.
		if delErr := s.certs.Delete(ctx, id); delErr != nil {
			s.logger.Error().Err(delErr).Str("certificate_id", id).Msg("failed to roll back certificate row after commit failure")
		}
		if discardErr := s.artifacts.Discard(ctx, staged); discardErr != nil {
			s.logger.Warn().Err(discardErr).Str("key", staged.Key).Msg("failed to discard staged artifact")
		}
		return nil, fmt.Errorf("issue: commit artifact: %w", err)
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionIssueCertificate,
		UserID:  &input.AdminID,
		Details: fmt.Sprintf("certificate %q issued to student %s with hash %s...", input.Title, student.Username, hash[:8]),
	})

	s.logger.Info().
		Str("certificate_id", id).
		Str("hash", hash).
		Str("student", student.Username).
		Str("institution_id", inst.ID).
		Msg("certificate issued")

	return &ports.IssueResult{
		CertificateID:   id,
		Hash:            hash,
		AnchorTxRef:     anchorTx,
		FileRef:         staged.Ref,
		StudentUsername: student.Username,
		StudentCreated:  created,
	}, nil
}

// resolveStudent returns the existing student account for the username, or
// creates one from the supplied email and password. A username belonging to a
// non-student account is rejected.
func (s *CertificateService) resolveStudent(ctx context.Context, input ports.IssueCertificateInput) (*domain.User, bool, error) {
	existing, err := s.users.FindByUsername(ctx, input.StudentUsername)
	switch {
	case err == nil:
		if existing.Role != domain.RoleStudent {
			return nil, false, domain.ErrInvalidStudent
		}
		return existing, false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, false, fmt.Errorf("resolve student: %w", err)
	}

	if input.StudentEmail == "" || input.StudentPassword == "" {
		return nil, false, domain.ErrInvalidStudent
	}
	if _, err := s.users.FindByEmail(ctx, input.StudentEmail); err == nil {
		return nil, false, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, fmt.Errorf("resolve student: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.StudentPassword), issuedStudentCost)
	if err != nil {
		return nil, false, err
	}

	photoRef := ""
	if len(input.Photo) > 0 {
		photoRef, err = s.storePhoto(ctx, input.PhotoName, input.Photo)
		if err != nil {
			return nil, false, err
		}
	}

	now := time.Now().UTC()
	student, err := s.users.Create(ctx, &domain.User{
		Username:     input.StudentUsername,
		Email:        input.StudentEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleStudent,
		PhotoRef:     photoRef,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, false, err
	}
	return student, true, nil
}

// storePhoto writes a profile photo. Photos are not fingerprinted, so the
// two-phase protocol collapses into an immediate stage-and-commit.
func (s *CertificateService) storePhoto(ctx context.Context, name string, data []byte) (string, error) {
	staged, err := s.artifacts.Stage(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}
	if err := s.artifacts.Commit(ctx, staged); err != nil {
		if discardErr := s.artifacts.Discard(ctx, staged); discardErr != nil {
			s.logger.Warn().Err(discardErr).Str("key", staged.Key).Msg("failed to discard staged photo")
		}
		return "", fmt.Errorf("store photo: %w", err)
	}
	return staged.Ref, nil
}

func (s *CertificateService) ListByInstitution(ctx context.Context, adminID string) ([]ports.CertificateView, error) {
	inst, err := s.institutions.FindByAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}

	certs, err := s.certs.ListByInstitution(ctx, inst.ID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, certs)
}

func (s *CertificateService) ListByStudent(ctx context.Context, studentID string) ([]ports.CertificateView, error) {
	certs, err := s.certs.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, certs)
}

func (s *CertificateService) Institution(ctx context.Context, adminID string) (*domain.Institution, error) {
	return s.institutions.FindByAdmin(ctx, adminID)
}

func (s *CertificateService) Revoke(ctx context.Context, adminID, certificateID string) error {
	cert, err := s.ownedCertificate(ctx, adminID, certificateID)
	if err != nil {
		return err
	}
	if cert.Status == domain.StatusRevoked {
		return domain.ErrAlreadyRevoked
	}

	// Conditional update: a concurrent revoke that wins the race surfaces
	// here as the same already-revoked conflict.
	ok, err := s.certs.Revoke(ctx, certificateID)
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyRevoked
	}

	s.invalidateVerdict(ctx, cert.Hash)

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionRevokeCertificate,
		UserID:  &adminID,
		Details: fmt.Sprintf("certificate %s... revoked by admin", cert.Hash[:8]),
	})

	s.logger.Info().Str("certificate_id", certificateID).Str("hash", cert.Hash).Msg("certificate revoked")
	return nil
}

func (s *CertificateService) Delete(ctx context.Context, adminID, certificateID string) error {
	cert, err := s.ownedCertificate(ctx, adminID, certificateID)
	if err != nil {
		return err
	}

	if err := s.certs.Delete(ctx, certificateID); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	s.removeArtifact(ctx, cert)
	s.invalidateVerdict(ctx, cert.Hash)

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionDeleteCertificate,
		UserID:  &adminID,
		Details: fmt.Sprintf("certificate %q (%s...) deleted", cert.Title, cert.Hash[:8]),
	})
	return nil
}

func (s *CertificateService) Download(ctx context.Context, studentID, certificateID string) (*ports.DownloadResult, error) {
	cert, err := s.certs.FindByID(ctx, certificateID)
	// Ownership failures look identical to missing certificates so a student
	// cannot probe for other students' certificate ids.
	if err != nil || cert.StudentID != studentID {
		return nil, domain.ErrCertificateNotFound
	}
	if cert.FileRef == "" {
		return nil, domain.ErrArtifactMissing
	}

	content, err := s.artifacts.Read(ctx, cert.FileRef)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionDownloadCertificate,
		UserID:  &studentID,
		Details: fmt.Sprintf("certificate %q downloaded by its student", cert.Title),
	})

	title := cert.Title
	if title == "" {
		title = "certificate"
	}
	return &ports.DownloadResult{
		Filename: fmt.Sprintf("%s-%s.pdf", title, cert.IssueDate.Format("2006-01-02")),
		Content:  content,
	}, nil
}

func (s *CertificateService) DeleteStudent(ctx context.Context, adminID, studentID string) error {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil || student.Role != domain.RoleStudent {
		return domain.ErrInvalidStudent
	}

	certs, err := s.certs.ListByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	for _, cert := range certs {
		if err := s.certs.Delete(ctx, cert.ID); err != nil {
			return fmt.Errorf("delete student: certificate %s: %w", cert.ID, err)
		}
		s.removeArtifact(ctx, cert)
		s.invalidateVerdict(ctx, cert.Hash)
	}

	if err := s.users.Delete(ctx, studentID, domain.RoleStudent); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionDeleteStudent,
		UserID:  &adminID,
		Details: fmt.Sprintf("student %s deleted with %d certificate(s)", student.Username, len(certs)),
	})
	return nil
}

func (s *CertificateService) UpdateStudent(ctx context.Context, adminID string, input ports.UpdateStudentInput) error {
	student, err := s.users.FindByID(ctx, input.StudentID)
	if err != nil || student.Role != domain.RoleStudent {
		return domain.ErrInvalidStudent
	}

	photoRef := ""
	if len(input.Photo) > 0 {
		photoRef, err = s.storePhoto(ctx, input.PhotoName, input.Photo)
		if err != nil {
			return err
		}
	}

	if err := s.users.UpdateInfo(ctx, input.StudentID, input.Username, input.Email, photoRef); err != nil {
		return err
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionUpdateStudent,
		UserID:  &adminID,
		Details: fmt.Sprintf("student %s profile updated", input.Username),
	})
	return nil
}

func (s *CertificateService) UpdateStudentPhoto(ctx context.Context, adminID, studentID string, photo []byte, photoName string) error {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil || student.Role != domain.RoleStudent {
		return domain.ErrInvalidStudent
	}

	photoRef, err := s.storePhoto(ctx, photoName, photo)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePhoto(ctx, studentID, photoRef); err != nil {
		return err
	}

	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionUpdateStudent,
		UserID:  &adminID,
		Details: fmt.Sprintf("student %s photo updated", student.Username),
	})
	return nil
}

func (s *CertificateService) AuditLogs(ctx context.Context, adminID string, limit int) ([]*domain.AuditEntry, error) {
	if _, err := s.institutions.FindByAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.auditLog.ListRecent(ctx, adminID, limit)
}

// ownedCertificate loads a certificate and verifies that the caller is the
// admin of its owning institution. Any failure is reported as not-found.
func (s *CertificateService) ownedCertificate(ctx context.Context, adminID, certificateID string) (*domain.Certificate, error) {
	inst, err := s.institutions.FindByAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	cert, err := s.certs.FindByID(ctx, certificateID)
	if err != nil || cert.InstitutionID != inst.ID {
		return nil, domain.ErrCertificateNotFound
	}
	return cert, nil
}

func (s *CertificateService) removeArtifact(ctx context.Context, cert *domain.Certificate) {
	if cert.FileRef == "" {
		return
	}
	if err := s.artifacts.Remove(ctx, cert.FileRef); err != nil {
		s.logger.Warn().Err(err).Str("ref", cert.FileRef).Msg("failed to remove artifact")
	}
}

func (s *CertificateService) invalidateVerdict(ctx context.Context, hash string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, hash); err != nil {
		s.logger.Warn().Err(err).Str("hash", hash).Msg("failed to invalidate verdict cache")
	}
}

// buildViews joins certificates with their student and institution records.
func (s *CertificateService) buildViews(ctx context.Context, certs []*domain.Certificate) ([]ports.CertificateView, error) {
	students := make(map[string]*domain.User)
	insts := make(map[string]*domain.Institution)

	views := make([]ports.CertificateView, 0, len(certs))
	for _, cert := range certs {
		student, ok := students[cert.StudentID]
		if !ok {
			u, err := s.users.FindByID(ctx, cert.StudentID)
			if err != nil {
				return nil, fmt.Errorf("certificate %s: student: %w", cert.ID, err)
			}
			students[cert.StudentID] = u
			student = u
		}

		inst, ok := insts[cert.InstitutionID]
		if !ok {
			i, err := s.institutions.FindByID(ctx, cert.InstitutionID)
			if err != nil {
				return nil, fmt.Errorf("certificate %s: institution: %w", cert.ID, err)
			}
			insts[cert.InstitutionID] = i
			inst = i
		}

		views = append(views, buildView(cert, student, inst))
	}
	return views, nil
}

func buildView(cert *domain.Certificate, student *domain.User, inst *domain.Institution) ports.CertificateView {
	return ports.CertificateView{
		ID:              cert.ID,
		Hash:            cert.Hash,
		Title:           cert.Title,
		Description:     cert.Description,
		IssueDate:       cert.IssueDate,
		ExpiryDate:      cert.ExpiryDate,
		Status:          string(cert.Status),
		AnchorTxRef:     cert.AnchorTxRef,
		CreatedAt:       cert.CreatedAt,
		StudentUsername: student.Username,
		StudentEmail:    student.Email,
		StudentPhotoRef: student.PhotoRef,
		InstitutionName: inst.Name,
	}
}

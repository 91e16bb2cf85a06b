package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// VerdictCache abstracts the Redis-backed cache of resolved verdicts.
// Only certificates in a terminal status are cached: active certificates must
// be re-evaluated on every verification because expiry is time-driven.
// Revocation of a cached expired certificate invalidates the entry.
type VerdictCache interface {
	// Get returns the cached result, or (nil, nil) on a miss.
	Get(ctx context.Context, hash string) (*ports.VerificationResult, error)
	Set(ctx context.Context, hash string, result *ports.VerificationResult) error
	Invalidate(ctx context.Context, hash string) error
}

// Verdict messages, in priority order: valid, revoked, expired.
const (
	msgValid   = "Certificate is valid and active"
	msgRevoked = "Certificate has been revoked"
	msgExpired = "Certificate has expired"
)

type verificationService struct {
	certs        ports.CertificateRepository
	users        ports.UserRepository
	institutions ports.InstitutionRepository
	audit        ports.AuditRecorder
	cache        VerdictCache
	log          zerolog.Logger
}

// NewVerificationService returns a VerificationService implementation.
func NewVerificationService(
	certs ports.CertificateRepository,
	users ports.UserRepository,
	institutions ports.InstitutionRepository,
	audit ports.AuditRecorder,
	cache VerdictCache,
	log zerolog.Logger,
) ports.VerificationService {
	return &verificationService{
		certs:        certs,
		users:        users,
		institutions: institutions,
		audit:        audit,
		cache:        cache,
		log:          log,
	}
}

func (s *verificationService) VerifyByHash(ctx context.Context, hash string, callerID *string) (*ports.VerificationResult, error) {
	normalized, err := fingerprint.Normalize(hash)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, normalized, callerID)
}

func (s *verificationService) VerifyArtifact(ctx context.Context, artifact []byte, callerID *string) (*ports.VerificationResult, error) {
	if len(artifact) == 0 {
		return nil, domain.ErrArtifactRequired
	}
	// The artifact is hashed in memory and never persisted.
	return s.verify(ctx, fingerprint.Compute(artifact), callerID)
}

func (s *verificationService) verify(ctx context.Context, hash string, callerID *string) (*ports.VerificationResult, error) {
	if cached := s.cachedResult(ctx, hash); cached != nil {
		s.recordVerification(cached.Certificate.Title, hash, callerID)
		cached.VerifiedAt = time.Now().UTC()
		return cached, nil
	}

	cert, err := s.certs.FindByHash(ctx, hash)
	if err != nil {
		// Unknown fingerprints are a reportable outcome, not a server fault.
		return nil, err
	}

	now := time.Now().UTC()
	isExpired := cert.ExpiredAt(now)

	// Lazy expiry: the first verification after the expiry date performs the
	// single active→expired transition. The conditional update makes
	// concurrent evaluations race-safe; losing the race is not an error
	// because the outcome converges.
	if isExpired && cert.Status == domain.StatusActive {
		if _, err := s.certs.TransitionStatus(ctx, cert.ID, domain.StatusActive, domain.StatusExpired); err != nil {
			return nil, fmt.Errorf("verify: expire transition: %w", err)
		}
		cert.Status = domain.StatusExpired
	}

	result, err := s.buildResult(ctx, cert, isExpired, now)
	if err != nil {
		return nil, err
	}

	s.recordVerification(cert.Title, hash, callerID)

	if cert.Status.Terminal() && s.cache != nil {
		if err := s.cache.Set(ctx, hash, result); err != nil {
			s.log.Warn().Err(err).Str("hash", hash).Msg("failed to cache verdict")
		}
	}

	return result, nil
}

func (s *verificationService) buildResult(ctx context.Context, cert *domain.Certificate, isExpired bool, now time.Time) (*ports.VerificationResult, error) {
	student, err := s.users.FindByID(ctx, cert.StudentID)
	if err != nil {
		return nil, fmt.Errorf("verify: student: %w", err)
	}
	inst, err := s.institutions.FindByID(ctx, cert.InstitutionID)
	if err != nil {
		return nil, fmt.Errorf("verify: institution: %w", err)
	}

	return &ports.VerificationResult{
		Certificate: buildView(cert, student, inst),
		Verdict:     buildVerdict(cert.Status, isExpired),
		IsExpired:   isExpired,
		AnchorTxRef: cert.AnchorTxRef,
		VerifiedAt:  now,
	}, nil
}

func buildVerdict(status domain.CertificateStatus, isExpired bool) ports.Verdict {
	valid := status == domain.StatusActive && !isExpired
	message := msgExpired
	switch {
	case valid:
		message = msgValid
	case status == domain.StatusRevoked:
		message = msgRevoked
	}
	return ports.Verdict{
		Valid:   valid,
		Status:  string(status),
		Message: message,
	}
}

// cachedResult consults the verdict cache; any failure degrades to a miss.
func (s *verificationService) cachedResult(ctx context.Context, hash string) *ports.VerificationResult {
	if s.cache == nil {
		return nil
	}
	cached, err := s.cache.Get(ctx, hash)
	if err != nil {
		s.log.Warn().Err(err).Str("hash", hash).Msg("verdict cache read failed")
		return nil
	}
	return cached
}

// recordVerification appends the audit entry. A nil callerID marks an
// anonymous public verification.
func (s *verificationService) recordVerification(title, hash string, callerID *string) {
	s.audit.Record(domain.AuditEntry{
		Action:  domain.ActionVerifyCertificate,
		UserID:  callerID,
		Details: fmt.Sprintf("certificate %q verified by hash %s...", title, hash[:8]),
	})
}

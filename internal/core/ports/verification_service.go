package ports

import (
	"context"
	"time"
)

// Verdict is the validity determination for a fingerprint.
type Verdict struct {
	Valid   bool
	Status  string
	Message string
}

// VerificationResult bundles the public-safe certificate view, the verdict,
// and the anchor attestation snapshot (placeholder values when no anchor
// backend is configured).
type VerificationResult struct {
	Certificate CertificateView
	Verdict     Verdict
	IsExpired   bool
	AnchorTxRef string
	VerifiedAt  time.Time
}

// VerificationService resolves fingerprints to tamper-evident records.
// A nil callerID marks an anonymous public verification in the audit trail.
type VerificationService interface {
	// VerifyByHash resolves a fingerprint. Unknown fingerprints are a valid,
	// reportable outcome (domain.ErrCertificateNotFound), not an internal
	// error. Expiry is evaluated lazily: an active certificate whose expiry
	// date has passed is transitioned to expired before the verdict is built.
	VerifyByHash(ctx context.Context, hash string, callerID *string) (*VerificationResult, error)
	// VerifyArtifact fingerprints the supplied bytes and resolves the
	// result. The artifact is never persisted.
	VerifyArtifact(ctx context.Context, artifact []byte, callerID *string) (*VerificationResult, error)
}

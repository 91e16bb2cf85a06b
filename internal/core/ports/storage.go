package ports

import (
	"context"
	"errors"
)

// ErrAnchorUnavailable is returned by AnchorWriter implementations when no
// anchoring backend is configured or reachable. Callers treat anchoring as a
// best-effort enhancement; this error never fails the primary operation.
var ErrAnchorUnavailable = errors.New("anchor writer unavailable")

// StagedArtifact is an artifact written to the staging area but not yet
// visible at its final location. Ref is the final reference the artifact will
// have once committed, so it can be persisted in the same transaction-like
// sequence: stage, insert row, commit.
type StagedArtifact struct {
	// Key identifies the staged object for Commit/Discard.
	Key string
	// Ref is the stable final reference (relative path) after Commit.
	Ref string
}

// ArtifactStore is durable blob storage for certificate artifacts and profile
// photos. Writes follow a two-phase protocol: Stage makes the bytes durable
// in a staging area, Commit atomically publishes them under Ref, Discard
// removes a staged object that will never be committed.
type ArtifactStore interface {
	Stage(ctx context.Context, originalName string, data []byte) (*StagedArtifact, error)
	Commit(ctx context.Context, staged *StagedArtifact) error
	Discard(ctx context.Context, staged *StagedArtifact) error
	// Read returns the content of a committed artifact, or
	// domain.ErrArtifactMissing.
	Read(ctx context.Context, ref string) ([]byte, error)
	// Remove deletes a committed artifact. Missing objects are not an error.
	Remove(ctx context.Context, ref string) error
}

// AnchorWriter optionally attests a fingerprint on an external anchor (a
// blockchain transaction in the original design). Issuance and verification
// must function correctly when it is absent or failing.
type AnchorWriter interface {
	// Write anchors the fingerprint and returns an opaque transaction
	// reference, or ErrAnchorUnavailable.
	Write(ctx context.Context, hash string) (string, error)
}

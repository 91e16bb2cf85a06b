// Package storage provides the durable artifact store for certificate files
// and profile photos, backed by the local filesystem.
//
// Writes are two-phase: Stage writes into a hidden staging directory, Commit
// renames into the public uploads directory, Discard removes a staged object
// that will never be committed. The final reference is known at stage time so
// the database row can be inserted between the two phases.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// publicPrefix is the reference prefix stored in certificate rows, mirroring
// the public URL path the artifacts are served under.
const publicPrefix = "/uploads"

// LocalStore implements ports.ArtifactStore on the local filesystem.
// Object names are collision-resistant (uuid), so concurrent writers never
// contend on a filename.
type LocalStore struct {
	uploadsDir string
	stagingDir string
}

// NewLocalStore creates the uploads and staging directories if needed.
func NewLocalStore(uploadsDir, stagingDir string) (*LocalStore, error) {
	for _, dir := range []string{uploadsDir, stagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	return &LocalStore{uploadsDir: uploadsDir, stagingDir: stagingDir}, nil
}

func (s *LocalStore) Stage(ctx context.Context, originalName string, data []byte) (*ports.StagedArtifact, error) {
	name := objectName(originalName)
	if err := os.WriteFile(filepath.Join(s.stagingDir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("storage: stage %s: %w", name, err)
	}
	return &ports.StagedArtifact{
		Key: name,
		Ref: path.Join(publicPrefix, name),
	}, nil
}

func (s *LocalStore) Commit(ctx context.Context, staged *ports.StagedArtifact) error {
	src := filepath.Join(s.stagingDir, staged.Key)
	dst := filepath.Join(s.uploadsDir, staged.Key)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("storage: commit %s: %w", staged.Key, err)
	}
	return nil
}

func (s *LocalStore) Discard(ctx context.Context, staged *ports.StagedArtifact) error {
	err := os.Remove(filepath.Join(s.stagingDir, staged.Key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: discard %s: %w", staged.Key, err)
	}
	return nil
}

func (s *LocalStore) Read(ctx context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.uploadsDir, refName(ref)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactMissing
		}
		return nil, fmt.Errorf("storage: read %s: %w", ref, err)
	}
	return data, nil
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	err := os.Remove(filepath.Join(s.uploadsDir, refName(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", ref, err)
	}
	return nil
}

// Check verifies that the store is writable; used by the readiness probe.
func (s *LocalStore) Check(ctx context.Context) error {
	probe := filepath.Join(s.stagingDir, ".probe-"+uuid.NewString())
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("storage: not writable: %w", err)
	}
	return os.Remove(probe)
}

// objectName builds a collision-resistant object name, keeping only a
// sanitized extension from the client-supplied filename.
func objectName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) > 10 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	if ext == "" {
		ext = ".bin"
	}
	return uuid.NewString() + ext
}

// refName reduces a stored reference to its bare object name, so a crafted
// reference can never escape the uploads directory.
func refName(ref string) string {
	return path.Base(ref)
}

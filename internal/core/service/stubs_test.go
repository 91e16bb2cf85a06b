package service

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID      map[string]*domain.User
	nextID    int
	createErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) add(u *domain.User) *domain.User {
	if u.ID == "" {
		r.nextID++
		u.ID = "user_" + strconv.Itoa(r.nextID)
	}
	r.byID[u.ID] = cloneUser(u)
	return cloneUser(u)
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
	}
	return r.add(cloneUser(user)), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	if u, err := r.FindByUsername(ctx, identifier); err == nil {
		return u, nil
	}
	return r.FindByEmail(ctx, identifier)
}

func (r *stubUserRepo) UpdateInfo(_ context.Context, id, username, email, photoRef string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if username != "" {
		u.Username = username
	}
	if email != "" {
		u.Email = email
	}
	if photoRef != "" {
		u.PhotoRef = photoRef
	}
	return nil
}

func (r *stubUserRepo) UpdatePhoto(_ context.Context, id, photoRef string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PhotoRef = photoRef
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id, role string) error {
	u, ok := r.byID[id]
	if !ok || u.Role != role {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

type stubInstitutionRepo struct {
	byID   map[string]*domain.Institution
	nextID int
}

func newStubInstitutionRepo() *stubInstitutionRepo {
	return &stubInstitutionRepo{byID: make(map[string]*domain.Institution)}
}

func (r *stubInstitutionRepo) Create(_ context.Context, inst *domain.Institution) (*domain.Institution, error) {
	clone := *inst
	if clone.ID == "" {
		r.nextID++
		clone.ID = "inst_" + strconv.Itoa(r.nextID)
	}
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubInstitutionRepo) FindByID(_ context.Context, id string) (*domain.Institution, error) {
	if i, ok := r.byID[id]; ok {
		clone := *i
		return &clone, nil
	}
	return nil, domain.ErrInstitutionNotFound
}

func (r *stubInstitutionRepo) FindByAdmin(_ context.Context, adminID string) (*domain.Institution, error) {
	for _, i := range r.byID {
		if i.AdminID == adminID {
			clone := *i
			return &clone, nil
		}
	}
	return nil, domain.ErrInstitutionNotFound
}

type stubCertificateRepo struct {
	byID      map[string]*domain.Certificate
	nextID    int
	createErr error // if set, Create returns this error
}

func newStubCertificateRepo() *stubCertificateRepo {
	return &stubCertificateRepo{byID: make(map[string]*domain.Certificate)}
}

func cloneCert(c *domain.Certificate) *domain.Certificate {
	clone := *c
	return &clone
}

func (r *stubCertificateRepo) Create(_ context.Context, cert *domain.Certificate) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	for _, c := range r.byID {
		if c.Hash == cert.Hash {
			return "", domain.ErrDuplicateFingerprint
		}
	}
	r.nextID++
	clone := cloneCert(cert)
	clone.ID = "cert_" + strconv.Itoa(r.nextID)
	r.byID[clone.ID] = clone
	return clone.ID, nil
}

func (r *stubCertificateRepo) FindByID(_ context.Context, id string) (*domain.Certificate, error) {
	if c, ok := r.byID[id]; ok {
		return cloneCert(c), nil
	}
	return nil, domain.ErrCertificateNotFound
}

func (r *stubCertificateRepo) FindByHash(_ context.Context, hash string) (*domain.Certificate, error) {
	for _, c := range r.byID {
		if c.Hash == hash {
			return cloneCert(c), nil
		}
	}
	return nil, domain.ErrCertificateNotFound
}

func (r *stubCertificateRepo) ListByStudent(_ context.Context, studentID string) ([]*domain.Certificate, error) {
	var out []*domain.Certificate
	for _, c := range r.byID {
		if c.StudentID == studentID {
			out = append(out, cloneCert(c))
		}
	}
	return out, nil
}

func (r *stubCertificateRepo) ListByInstitution(_ context.Context, institutionID string) ([]*domain.Certificate, error) {
	var out []*domain.Certificate
	for _, c := range r.byID {
		if c.InstitutionID == institutionID {
			out = append(out, cloneCert(c))
		}
	}
	return out, nil
}

// TransitionStatus mirrors the conditional update the Mongo repo performs.
func (r *stubCertificateRepo) TransitionStatus(_ context.Context, id string, from, to domain.CertificateStatus) (bool, error) {
	c, ok := r.byID[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *stubCertificateRepo) Revoke(_ context.Context, id string) (bool, error) {
	c, ok := r.byID[id]
	if !ok || c.Status == domain.StatusRevoked {
		return false, nil
	}
	c.Status = domain.StatusRevoked
	return true, nil
}

func (r *stubCertificateRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (r *stubAuditRepo) Insert(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *stubAuditRepo) ListRecent(_ context.Context, userID string, limit int) ([]*domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.entries[i]
		if e.UserID == nil || *e.UserID == userID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

// stubRecorder captures fire-and-forget audit entries synchronously.
type stubRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *stubRecorder) Record(entry domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *stubRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// ---------------------------------------------------------------------------
// Artifact store, anchor, and verdict cache stubs
// ---------------------------------------------------------------------------

type stubArtifactStore struct {
	staged    map[string][]byte // key → staged bytes
	committed map[string][]byte // ref → committed bytes
	nextKey   int
	stageErr  error
	commitErr error
}

func newStubArtifactStore() *stubArtifactStore {
	return &stubArtifactStore{
		staged:    make(map[string][]byte),
		committed: make(map[string][]byte),
	}
}

func (s *stubArtifactStore) Stage(_ context.Context, _ string, data []byte) (*ports.StagedArtifact, error) {
	if s.stageErr != nil {
		return nil, s.stageErr
	}
	s.nextKey++
	key := "obj_" + strconv.Itoa(s.nextKey)
	s.staged[key] = append([]byte(nil), data...)
	return &ports.StagedArtifact{Key: key, Ref: "/uploads/" + key}, nil
}

func (s *stubArtifactStore) Commit(_ context.Context, staged *ports.StagedArtifact) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	data, ok := s.staged[staged.Key]
	if !ok {
		return domain.ErrArtifactMissing
	}
	delete(s.staged, staged.Key)
	s.committed[staged.Ref] = data
	return nil
}

func (s *stubArtifactStore) Discard(_ context.Context, staged *ports.StagedArtifact) error {
	delete(s.staged, staged.Key)
	return nil
}

func (s *stubArtifactStore) Read(_ context.Context, ref string) ([]byte, error) {
	data, ok := s.committed[ref]
	if !ok {
		return nil, domain.ErrArtifactMissing
	}
	return append([]byte(nil), data...), nil
}

func (s *stubArtifactStore) Remove(_ context.Context, ref string) error {
	delete(s.committed, ref)
	return nil
}

type stubAnchor struct {
	txRef string
	err   error
	calls int
}

func (a *stubAnchor) Write(_ context.Context, _ string) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.txRef, nil
}

type stubVerdictCache struct {
	entries      map[string]*ports.VerificationResult
	sets         int
	invalidation []string
}

func newStubVerdictCache() *stubVerdictCache {
	return &stubVerdictCache{entries: make(map[string]*ports.VerificationResult)}
}

func (c *stubVerdictCache) Get(_ context.Context, hash string) (*ports.VerificationResult, error) {
	if r, ok := c.entries[hash]; ok {
		clone := *r
		return &clone, nil
	}
	return nil, nil
}

func (c *stubVerdictCache) Set(_ context.Context, hash string, result *ports.VerificationResult) error {
	clone := *result
	c.entries[hash] = &clone
	c.sets++
	return nil
}

func (c *stubVerdictCache) Invalidate(_ context.Context, hash string) error {
	delete(c.entries, hash)
	c.invalidation = append(c.invalidation, hash)
	return nil
}

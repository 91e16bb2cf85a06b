package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

type verifyFixture struct {
	svc      ports.VerificationService
	users    *stubUserRepo
	insts    *stubInstitutionRepo
	certs    *stubCertificateRepo
	recorder *stubRecorder
	cache    *stubVerdictCache
	instID   string
	student  *domain.User
}

func newVerifyFixture(t *testing.T) *verifyFixture {
	t.Helper()
	f := &verifyFixture{
		users:    newStubUserRepo(),
		insts:    newStubInstitutionRepo(),
		certs:    newStubCertificateRepo(),
		recorder: &stubRecorder{},
		cache:    newStubVerdictCache(),
	}
	f.student = f.users.add(&domain.User{Username: "alice", Email: "alice@example.com", Role: domain.RoleStudent})
	inst, _ := f.insts.Create(context.Background(), &domain.Institution{Name: "Example University", AdminID: "user_admin"})
	f.instID = inst.ID
	f.svc = NewVerificationService(f.certs, f.users, f.insts, f.recorder, f.cache, discardLogger)
	return f
}

// seed inserts a certificate with the fingerprint of the given artifact.
func (f *verifyFixture) seed(t *testing.T, artifact []byte, status domain.CertificateStatus, expiry *time.Time) (string, string) {
	t.Helper()
	hash := fingerprint.Compute(artifact)
	id, err := f.certs.Create(context.Background(), &domain.Certificate{
		Hash:          hash,
		StudentID:     f.student.ID,
		InstitutionID: f.instID,
		Title:         "BSc Computer Science",
		IssueDate:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ExpiryDate:    expiry,
		Status:        status,
	})
	if err != nil {
		t.Fatalf("seed certificate: %v", err)
	}
	return id, hash
}

func timePtr(t time.Time) *time.Time { return &t }

func TestVerificationService_ActiveCertificate(t *testing.T) {
	f := newVerifyFixture(t)
	_, hash := f.seed(t, []byte("artifact"), domain.StatusActive, nil)

	result, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("VerifyByHash returned error: %v", err)
	}
	if !result.Verdict.Valid {
		t.Error("expected valid verdict")
	}
	if result.Verdict.Status != "active" {
		t.Errorf("unexpected status: %s", result.Verdict.Status)
	}
	if result.Verdict.Message != "Certificate is valid and active" {
		t.Errorf("unexpected message: %q", result.Verdict.Message)
	}
	if result.Certificate.StudentUsername != "alice" || result.Certificate.InstitutionName != "Example University" {
		t.Errorf("join incomplete: %+v", result.Certificate)
	}
}

func TestVerificationService_RevokedCertificate(t *testing.T) {
	f := newVerifyFixture(t)
	_, hash := f.seed(t, []byte("artifact"), domain.StatusRevoked, nil)

	result, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("VerifyByHash returned error: %v", err)
	}
	if result.Verdict.Valid {
		t.Error("revoked certificate must not be valid")
	}
	if result.Verdict.Message != "Certificate has been revoked" {
		t.Errorf("unexpected message: %q", result.Verdict.Message)
	}
}

// Revocation wins over expiry when both apply.
func TestVerificationService_RevokedAndExpired(t *testing.T) {
	f := newVerifyFixture(t)
	past := timePtr(time.Now().UTC().Add(-24 * time.Hour))
	_, hash := f.seed(t, []byte("artifact"), domain.StatusRevoked, past)

	result, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("VerifyByHash returned error: %v", err)
	}
	if result.Verdict.Message != "Certificate has been revoked" {
		t.Errorf("revocation must win over expiry, got %q", result.Verdict.Message)
	}
	if !result.IsExpired {
		t.Error("IsExpired must still report the date check")
	}
}

func TestVerificationService_LazyExpiry(t *testing.T) {
	f := newVerifyFixture(t)
	past := timePtr(time.Now().UTC().Add(-24 * time.Hour))
	id, hash := f.seed(t, []byte("artifact"), domain.StatusActive, past)

	result, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("VerifyByHash returned error: %v", err)
	}
	if result.Verdict.Valid {
		t.Error("expired certificate must not be valid")
	}
	if result.Verdict.Status != "expired" {
		t.Errorf("unexpected status: %s", result.Verdict.Status)
	}
	if result.Verdict.Message != "Certificate has expired" {
		t.Errorf("unexpected message: %q", result.Verdict.Message)
	}

	// The stored row must have transitioned, exactly once.
	stored, _ := f.certs.FindByID(context.Background(), id)
	if stored.Status != domain.StatusExpired {
		t.Errorf("row not transitioned: %s", stored.Status)
	}

	// A second verification must converge on the same verdict.
	again, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("second verification failed: %v", err)
	}
	if again.Verdict.Status != "expired" {
		t.Errorf("verdict did not converge: %s", again.Verdict.Status)
	}
}

func TestVerificationService_FutureExpiryStaysActive(t *testing.T) {
	f := newVerifyFixture(t)
	future := timePtr(time.Now().UTC().Add(24 * time.Hour))
	_, hash := f.seed(t, []byte("artifact"), domain.StatusActive, future)

	result, err := f.svc.VerifyByHash(context.Background(), hash, nil)
	if err != nil {
		t.Fatalf("VerifyByHash returned error: %v", err)
	}
	if !result.Verdict.Valid {
		t.Error("certificate with future expiry must be valid")
	}
}

func TestVerificationService_UnknownHash(t *testing.T) {
	f := newVerifyFixture(t)
	unknown := strings.Repeat("ab", 32)

	_, err := f.svc.VerifyByHash(context.Background(), unknown, nil)
	if !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}

func TestVerificationService_MalformedHash(t *testing.T) {
	f := newVerifyFixture(t)

	for _, bad := range []string{"", "xyz", strings.Repeat("g", 64), strings.Repeat("a", 63)} {
		if _, err := f.svc.VerifyByHash(context.Background(), bad, nil); !errors.Is(err, fingerprint.ErrMalformed) {
			t.Errorf("hash %q: expected ErrMalformed, got %v", bad, err)
		}
	}
}

func TestVerificationService_HashNormalization(t *testing.T) {
	f := newVerifyFixture(t)
	_, hash := f.seed(t, []byte("artifact"), domain.StatusActive, nil)

	// Uppercase and surrounding whitespace must resolve to the same record.
	mangled := "  " + strings.ToUpper(hash) + "\n"
	result, err := f.svc.VerifyByHash(context.Background(), mangled, nil)
	if err != nil {
		t.Fatalf("normalized lookup failed: %v", err)
	}
	if result.Certificate.Hash != hash {
		t.Errorf("resolved wrong certificate: %s", result.Certificate.Hash)
	}
}

func TestVerificationService_VerifyArtifact(t *testing.T) {
	f := newVerifyFixture(t)
	artifact := []byte("%PDF-1.4 diploma")
	_, hash := f.seed(t, artifact, domain.StatusActive, nil)

	result, err := f.svc.VerifyArtifact(context.Background(), artifact, nil)
	if err != nil {
		t.Fatalf("VerifyArtifact returned error: %v", err)
	}
	if result.Certificate.Hash != hash {
		t.Errorf("artifact resolved to wrong certificate: %s", result.Certificate.Hash)
	}

	// A single flipped byte must miss.
	tampered := append([]byte(nil), artifact...)
	tampered[0] ^= 1
	if _, err := f.svc.VerifyArtifact(context.Background(), tampered, nil); !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("tampered artifact: expected ErrCertificateNotFound, got %v", err)
	}
}

func TestVerificationService_CachesOnlyTerminalStatuses(t *testing.T) {
	f := newVerifyFixture(t)
	_, activeHash := f.seed(t, []byte("active artifact"), domain.StatusActive, nil)
	_, revokedHash := f.seed(t, []byte("revoked artifact"), domain.StatusRevoked, nil)

	if _, err := f.svc.VerifyByHash(context.Background(), activeHash, nil); err != nil {
		t.Fatalf("verify active: %v", err)
	}
	if f.cache.sets != 0 {
		t.Errorf("active verdicts must not be cached, sets=%d", f.cache.sets)
	}

	if _, err := f.svc.VerifyByHash(context.Background(), revokedHash, nil); err != nil {
		t.Fatalf("verify revoked: %v", err)
	}
	if f.cache.sets != 1 {
		t.Errorf("terminal verdict not cached, sets=%d", f.cache.sets)
	}

	// Second lookup is served from cache: deleting the row must not matter.
	for id, c := range f.certs.byID {
		if c.Hash == revokedHash {
			delete(f.certs.byID, id)
		}
	}
	result, err := f.svc.VerifyByHash(context.Background(), revokedHash, nil)
	if err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if result.Verdict.Status != "revoked" {
		t.Errorf("cached verdict wrong: %s", result.Verdict.Status)
	}
}

func TestVerificationService_AuditAttribution(t *testing.T) {
	f := newVerifyFixture(t)
	_, hash := f.seed(t, []byte("artifact"), domain.StatusActive, nil)

	caller := "user_42"
	if _, err := f.svc.VerifyByHash(context.Background(), hash, nil); err != nil {
		t.Fatalf("anonymous verify: %v", err)
	}
	if _, err := f.svc.VerifyByHash(context.Background(), hash, &caller); err != nil {
		t.Fatalf("attributed verify: %v", err)
	}

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	if len(f.recorder.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(f.recorder.entries))
	}
	if f.recorder.entries[0].UserID != nil {
		t.Error("anonymous verification must have nil user id")
	}
	if f.recorder.entries[1].UserID == nil || *f.recorder.entries[1].UserID != caller {
		t.Error("attributed verification must carry the caller id")
	}
}

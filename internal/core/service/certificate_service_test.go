package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

type certFixture struct {
	svc      *CertificateService
	users    *stubUserRepo
	insts    *stubInstitutionRepo
	certs    *stubCertificateRepo
	store    *stubArtifactStore
	anchor   *stubAnchor
	recorder *stubRecorder
	auditLog *stubAuditRepo
	cache    *stubVerdictCache
	adminID  string
	instID   string
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	f := &certFixture{
		users:    newStubUserRepo(),
		insts:    newStubInstitutionRepo(),
		certs:    newStubCertificateRepo(),
		store:    newStubArtifactStore(),
		anchor:   &stubAnchor{err: ports.ErrAnchorUnavailable},
		recorder: &stubRecorder{},
		auditLog: &stubAuditRepo{},
		cache:    newStubVerdictCache(),
	}

	admin := f.users.add(&domain.User{Username: "dean", Email: "dean@uni.edu", Role: domain.RoleAdmin})
	inst, _ := f.insts.Create(context.Background(), &domain.Institution{Name: "Example University", AdminID: admin.ID})
	f.adminID = admin.ID
	f.instID = inst.ID

	f.svc = NewCertificateService(
		f.certs, f.users, f.insts, f.store, f.anchor,
		f.recorder, f.auditLog, f.cache, discardLogger,
	)
	return f
}

func issueInput(adminID, username string, artifact []byte) ports.IssueCertificateInput {
	return ports.IssueCertificateInput{
		AdminID:         adminID,
		StudentUsername: username,
		StudentEmail:    username + "@example.com",
		StudentPassword: "Str0ngPass",
		Title:           "BSc Computer Science",
		IssueDate:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Artifact:        artifact,
		ArtifactName:    "diploma.pdf",
	}
}

func TestCertificateService_Issue_CreatesStudentAndCertificate(t *testing.T) {
	f := newCertFixture(t)
	artifact := []byte("%PDF-1.4 diploma")

	result, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", artifact))
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if result.Hash != fingerprint.Compute(artifact) {
		t.Errorf("hash mismatch: got %s", result.Hash)
	}
	if !result.StudentCreated {
		t.Error("expected StudentCreated=true for a new username")
	}

	student, err := f.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("student account not created: %v", err)
	}
	if student.Role != domain.RoleStudent {
		t.Errorf("unexpected role: %s", student.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte("Str0ngPass")); err != nil {
		t.Errorf("student password not hashed correctly: %v", err)
	}

	cert, err := f.certs.FindByID(context.Background(), result.CertificateID)
	if err != nil {
		t.Fatalf("certificate row missing: %v", err)
	}
	if cert.Status != domain.StatusActive {
		t.Errorf("expected active status, got %s", cert.Status)
	}
	if cert.InstitutionID != f.instID {
		t.Errorf("certificate bound to wrong institution: %s", cert.InstitutionID)
	}

	// The artifact must be committed and readable under the stored ref.
	if _, err := f.store.Read(context.Background(), cert.FileRef); err != nil {
		t.Errorf("committed artifact not readable: %v", err)
	}
	if len(f.store.staged) != 0 {
		t.Errorf("staging area not empty after issuance: %d objects", len(f.store.staged))
	}
}

func TestCertificateService_Issue_ReusesExistingStudent(t *testing.T) {
	f := newCertFixture(t)
	existing := f.users.add(&domain.User{Username: "bob", Email: "bob@example.com", Role: domain.RoleStudent})

	result, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "bob", []byte("artifact-1")))
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if result.StudentCreated {
		t.Error("expected StudentCreated=false for existing account")
	}

	cert, _ := f.certs.FindByID(context.Background(), result.CertificateID)
	if cert.StudentID != existing.ID {
		t.Errorf("certificate bound to wrong student: %s", cert.StudentID)
	}
}

func TestCertificateService_Issue_RejectsNonStudentUsername(t *testing.T) {
	f := newCertFixture(t)
	f.users.add(&domain.User{Username: "other_admin", Email: "oa@uni.edu", Role: domain.RoleAdmin})

	_, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "other_admin", []byte("artifact")))
	if !errors.Is(err, domain.ErrInvalidStudent) {
		t.Fatalf("expected ErrInvalidStudent, got %v", err)
	}
}

func TestCertificateService_Issue_DuplicateFingerprint(t *testing.T) {
	f := newCertFixture(t)
	artifact := []byte("same bytes")

	if _, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "carol", artifact)); err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	_, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "dave", artifact))
	if !errors.Is(err, domain.ErrDuplicateFingerprint) {
		t.Fatalf("expected ErrDuplicateFingerprint, got %v", err)
	}
	if len(f.certs.byID) != 1 {
		t.Errorf("duplicate issuance must not add rows, got %d", len(f.certs.byID))
	}
}

// A duplicate that slips past the pre-check and fails at insert must leave
// neither a staged nor a committed artifact behind.
func TestCertificateService_Issue_InsertConflictDiscardsArtifact(t *testing.T) {
	f := newCertFixture(t)
	f.certs.createErr = domain.ErrDuplicateFingerprint

	_, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "erin", []byte("racing bytes")))
	if !errors.Is(err, domain.ErrDuplicateFingerprint) {
		t.Fatalf("expected ErrDuplicateFingerprint, got %v", err)
	}
	if len(f.store.staged) != 0 || len(f.store.committed) != 0 {
		t.Errorf("orphan artifact left behind: staged=%d committed=%d", len(f.store.staged), len(f.store.committed))
	}
}

func TestCertificateService_Issue_CommitFailureRollsBackRow(t *testing.T) {
	f := newCertFixture(t)
	f.store.commitErr = errors.New("disk full")

	_, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "frank", []byte("artifact")))
	if err == nil {
		t.Fatal("expected error when commit fails")
	}
	if len(f.certs.byID) != 0 {
		t.Errorf("certificate row must be rolled back, got %d rows", len(f.certs.byID))
	}
}

func TestCertificateService_Issue_AnchorFailureDoesNotBlock(t *testing.T) {
	f := newCertFixture(t)
	f.anchor.err = errors.New("rpc timeout")

	result, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "grace", []byte("artifact")))
	if err != nil {
		t.Fatalf("anchor failure must not block issuance: %v", err)
	}
	if result.AnchorTxRef != "" {
		t.Errorf("expected empty anchor ref, got %q", result.AnchorTxRef)
	}
}

func TestCertificateService_Issue_RecordsAnchorRef(t *testing.T) {
	f := newCertFixture(t)
	f.anchor.err = nil
	f.anchor.txRef = "0xabc123"

	result, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "henry", []byte("artifact")))
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if result.AnchorTxRef != "0xabc123" {
		t.Errorf("anchor ref not recorded: %q", result.AnchorTxRef)
	}
}

func TestCertificateService_Issue_MissingArtifact(t *testing.T) {
	f := newCertFixture(t)

	_, err := f.svc.Issue(context.Background(), issueInput(f.adminID, "iris", nil))
	if !errors.Is(err, domain.ErrArtifactRequired) {
		t.Fatalf("expected ErrArtifactRequired, got %v", err)
	}
}

func TestCertificateService_Issue_UnknownAdmin(t *testing.T) {
	f := newCertFixture(t)

	_, err := f.svc.Issue(context.Background(), issueInput("user_999", "alice", []byte("artifact")))
	if !errors.Is(err, domain.ErrInstitutionNotFound) {
		t.Fatalf("expected ErrInstitutionNotFound, got %v", err)
	}
}

func TestCertificateService_Revoke(t *testing.T) {
	f := newCertFixture(t)
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact")))

	if err := f.svc.Revoke(context.Background(), f.adminID, result.CertificateID); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}

	cert, _ := f.certs.FindByID(context.Background(), result.CertificateID)
	if cert.Status != domain.StatusRevoked {
		t.Errorf("expected revoked status, got %s", cert.Status)
	}
	if len(f.cache.invalidation) != 1 || f.cache.invalidation[0] != result.Hash {
		t.Errorf("verdict cache not invalidated: %v", f.cache.invalidation)
	}

	// Revocation is terminal: a second attempt conflicts.
	if err := f.svc.Revoke(context.Background(), f.adminID, result.CertificateID); !errors.Is(err, domain.ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
}

func TestCertificateService_Revoke_ExpiredCertificate(t *testing.T) {
	f := newCertFixture(t)
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact")))
	f.certs.byID[result.CertificateID].Status = domain.StatusExpired

	if err := f.svc.Revoke(context.Background(), f.adminID, result.CertificateID); err != nil {
		t.Fatalf("revoking an expired certificate must succeed: %v", err)
	}
}

// An admin of another institution must get not-found, never forbidden, so
// certificate ids cannot be probed.
func TestCertificateService_Revoke_ForeignCertificateLooksMissing(t *testing.T) {
	f := newCertFixture(t)
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact")))

	other := f.users.add(&domain.User{Username: "rival", Email: "rival@other.edu", Role: domain.RoleAdmin})
	_, _ = f.insts.Create(context.Background(), &domain.Institution{Name: "Other College", AdminID: other.ID})

	err := f.svc.Revoke(context.Background(), other.ID, result.CertificateID)
	if !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}

func TestCertificateService_Delete_RemovesRowAndArtifact(t *testing.T) {
	f := newCertFixture(t)
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact")))

	if err := f.svc.Delete(context.Background(), f.adminID, result.CertificateID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(f.certs.byID) != 0 {
		t.Error("certificate row not deleted")
	}
	if len(f.store.committed) != 0 {
		t.Error("artifact not removed")
	}
}

func TestCertificateService_Download(t *testing.T) {
	f := newCertFixture(t)
	artifact := []byte("%PDF-1.4 diploma")
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", artifact))
	student, _ := f.users.FindByUsername(context.Background(), "alice")

	dl, err := f.svc.Download(context.Background(), student.ID, result.CertificateID)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(dl.Content) != string(artifact) {
		t.Error("downloaded content differs from uploaded artifact")
	}
	if dl.Filename != "BSc Computer Science-2024-06-01.pdf" {
		t.Errorf("unexpected filename: %q", dl.Filename)
	}
}

func TestCertificateService_Download_NonOwnerLooksMissing(t *testing.T) {
	f := newCertFixture(t)
	result, _ := f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact")))
	other := f.users.add(&domain.User{Username: "mallory", Email: "m@example.com", Role: domain.RoleStudent})

	_, err := f.svc.Download(context.Background(), other.ID, result.CertificateID)
	if !errors.Is(err, domain.ErrCertificateNotFound) {
		t.Fatalf("expected ErrCertificateNotFound, got %v", err)
	}
}

func TestCertificateService_DeleteStudent_Cascades(t *testing.T) {
	f := newCertFixture(t)
	_, _ = f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact-1")))
	_, _ = f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact-2")))
	student, _ := f.users.FindByUsername(context.Background(), "alice")

	if err := f.svc.DeleteStudent(context.Background(), f.adminID, student.ID); err != nil {
		t.Fatalf("DeleteStudent returned error: %v", err)
	}
	if len(f.certs.byID) != 0 {
		t.Errorf("certificates not cascaded, %d left", len(f.certs.byID))
	}
	if len(f.store.committed) != 0 {
		t.Errorf("artifacts not cascaded, %d left", len(f.store.committed))
	}
	if _, err := f.users.FindByID(context.Background(), student.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Error("student account still present")
	}
}

func TestCertificateService_DeleteStudent_RejectsNonStudent(t *testing.T) {
	f := newCertFixture(t)

	if err := f.svc.DeleteStudent(context.Background(), f.adminID, f.adminID); !errors.Is(err, domain.ErrInvalidStudent) {
		t.Fatalf("expected ErrInvalidStudent, got %v", err)
	}
}

func TestCertificateService_UpdateStudentPhoto(t *testing.T) {
	f := newCertFixture(t)
	_, _ = f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact-1")))
	student, _ := f.users.FindByUsername(context.Background(), "alice")

	err := f.svc.UpdateStudentPhoto(context.Background(), f.adminID, student.ID, []byte{0x89, 'P', 'N', 'G'}, "portrait.png")
	if err != nil {
		t.Fatalf("UpdateStudentPhoto returned error: %v", err)
	}

	updated, _ := f.users.FindByID(context.Background(), student.ID)
	if updated.PhotoRef == "" {
		t.Fatal("photo reference not updated")
	}
	if _, ok := f.store.committed[updated.PhotoRef]; !ok {
		t.Errorf("photo not committed to storage: %s", updated.PhotoRef)
	}
	actions := f.recorder.actions()
	if actions[len(actions)-1] != domain.ActionUpdateStudent {
		t.Errorf("photo update not audited: %v", actions)
	}
}

func TestCertificateService_UpdateStudentPhoto_RejectsNonStudent(t *testing.T) {
	f := newCertFixture(t)

	err := f.svc.UpdateStudentPhoto(context.Background(), f.adminID, f.adminID, []byte{0x89}, "portrait.png")
	if !errors.Is(err, domain.ErrInvalidStudent) {
		t.Fatalf("expected ErrInvalidStudent, got %v", err)
	}
}

func TestCertificateService_ListByInstitution(t *testing.T) {
	f := newCertFixture(t)
	_, _ = f.svc.Issue(context.Background(), issueInput(f.adminID, "alice", []byte("artifact-1")))
	_, _ = f.svc.Issue(context.Background(), issueInput(f.adminID, "bob", []byte("artifact-2")))

	views, err := f.svc.ListByInstitution(context.Background(), f.adminID)
	if err != nil {
		t.Fatalf("ListByInstitution returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 certificates, got %d", len(views))
	}
	for _, v := range views {
		if v.InstitutionName != "Example University" {
			t.Errorf("institution join missing: %+v", v)
		}
		if v.StudentUsername == "" {
			t.Errorf("student join missing: %+v", v)
		}
	}
}

func TestCertificateService_AuditLogs_ScopedAndCapped(t *testing.T) {
	f := newCertFixture(t)
	other := "user_other"
	for i := 0; i < 5; i++ {
		_ = f.auditLog.Insert(context.Background(), &domain.AuditEntry{Action: domain.ActionVerifyCertificate, UserID: nil})
	}
	_ = f.auditLog.Insert(context.Background(), &domain.AuditEntry{Action: domain.ActionLogin, UserID: &other})
	_ = f.auditLog.Insert(context.Background(), &domain.AuditEntry{Action: domain.ActionIssueCertificate, UserID: &f.adminID})

	entries, err := f.svc.AuditLogs(context.Background(), f.adminID, 0)
	if err != nil {
		t.Fatalf("AuditLogs returned error: %v", err)
	}
	// Own entries plus anonymous ones, never another user's.
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.UserID != nil && *e.UserID != f.adminID {
			t.Errorf("entry leaked from another user: %+v", e)
		}
	}

	limited, _ := f.svc.AuditLogs(context.Background(), f.adminID, 3)
	if len(limited) != 3 {
		t.Errorf("limit not applied: got %d", len(limited))
	}
}

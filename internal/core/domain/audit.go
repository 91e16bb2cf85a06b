package domain

import "time"

// Audit actions recorded by the system. Every state-changing or
// security-relevant operation appends exactly one entry.
const (
	ActionLogin               = "login"
	ActionRegister            = "register"
	ActionIssueCertificate    = "issue_certificate"
	ActionVerifyCertificate   = "verify_certificate"
	ActionRevokeCertificate   = "revoke_certificate"
	ActionDeleteCertificate   = "delete_certificate"
	ActionDownloadCertificate = "download_certificate"
	ActionDeleteStudent       = "delete_student"
	ActionUpdateStudent       = "update_student"
)

// AuditEntry is an append-only record of a security-relevant action.
// UserID is nil for anonymous operations (public verification). It is a weak
// reference only: the entry must survive deletion of the user it names.
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserID    *string   `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

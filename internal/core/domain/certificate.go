package domain

import (
	"errors"
	"time"
)

// CertificateStatus represents the lifecycle state of a certificate.
type CertificateStatus string

const (
	StatusActive  CertificateStatus = "active"
	StatusExpired CertificateStatus = "expired"
	StatusRevoked CertificateStatus = "revoked"
)

// validTransitions defines the allowed state machine transitions.
// Expiry is time-driven and automatic; revocation is explicit and terminal.
// Nothing ever transitions back to active.
var validTransitions = map[CertificateStatus][]CertificateStatus{
	StatusActive:  {StatusExpired, StatusRevoked},
	StatusExpired: {StatusRevoked},
}

var ErrCertificateNotFound = errors.New("certificate not found")
var ErrDuplicateFingerprint = errors.New("certificate with this fingerprint already exists")
var ErrAlreadyRevoked = errors.New("certificate is already revoked")
var ErrInvalidStudent = errors.New("invalid student or student not found")
var ErrInstitutionNotFound = errors.New("institution not found")
var ErrArtifactRequired = errors.New("certificate file is required")
var ErrArtifactMissing = errors.New("certificate file not accessible")

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s CertificateStatus) CanTransitionTo(next CertificateStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status can never become active again.
func (s CertificateStatus) Terminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// Certificate is the core aggregate root. Hash is the SHA-256 fingerprint of
// the artifact content and is globally unique.
type Certificate struct {
	ID            string            `json:"id" bson:"_id,omitempty"`
	Hash          string            `json:"certificate_hash" bson:"certificate_hash"`
	StudentID     string            `json:"student_id" bson:"student_id"`
	InstitutionID string            `json:"institution_id" bson:"institution_id"`
	Title         string            `json:"title" bson:"title"`
	Description   string            `json:"description,omitempty" bson:"description,omitempty"`
	IssueDate     time.Time         `json:"issue_date" bson:"issue_date"`
	ExpiryDate    *time.Time        `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
	Status        CertificateStatus `json:"status" bson:"status"`
	AnchorTxRef   string            `json:"blockchain_tx_hash,omitempty" bson:"blockchain_tx_hash,omitempty"`
	FileRef       string            `json:"file_path" bson:"file_path"`
	CreatedAt     time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" bson:"updated_at"`
}

// ExpiredAt reports whether the certificate's expiry date has strictly passed
// at the given instant. Certificates without an expiry date never expire.
func (c *Certificate) ExpiredAt(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

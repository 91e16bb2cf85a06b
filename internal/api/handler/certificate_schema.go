package handler

// --- Request / Response types ---

type studentSummary struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

type institutionSummary struct {
	Name string `json:"name"`
}

type certificateResponse struct {
	ID               string             `json:"id"`
	CertificateHash  string             `json:"certificate_hash"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	IssueDate        string             `json:"issue_date"`
	ExpiryDate       string             `json:"expiry_date,omitempty"`
	Status           string             `json:"status"`
	BlockchainTxHash string             `json:"blockchain_tx_hash,omitempty"`
	CreatedAt        string             `json:"created_at"`
	Student          studentSummary     `json:"student"`
	Institution      institutionSummary `json:"institution"`
}

// certificateListResponse wraps list endpoints so clients always receive an
// object, never a bare array.
type certificateListResponse struct {
	Certificates []certificateResponse `json:"certificates"`
}

type issueResponse struct {
	Message          string `json:"message"`
	CertificateID    string `json:"certificate_id"`
	CertificateHash  string `json:"certificate_hash"`
	BlockchainTxHash string `json:"blockchain_tx_hash,omitempty"`
	FilePath         string `json:"file_path"`
	StudentUsername  string `json:"student_username"`
	StudentCreated   bool   `json:"student_created"`
}

type verdictResponse struct {
	Valid      bool   `json:"valid"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	IsExpired  bool   `json:"is_expired"`
	VerifiedAt string `json:"verified_at"`
}

// verifyHashResponse is returned by GET /certificates/verify/{hash}.
type verifyHashResponse struct {
	Certificate  certificateResponse `json:"certificate"`
	Verification verdictResponse     `json:"verification"`
}

type blockchainInfo struct {
	Verified bool   `json:"verified"`
	TxHash   string `json:"tx_hash,omitempty"`
}

type databaseInfo struct {
	Certificate  certificateResponse `json:"certificate"`
	Verification verdictResponse     `json:"verification"`
}

// verifyArtifactResponse is returned by POST /verify. The camelCase info keys
// are part of the published contract.
type verifyArtifactResponse struct {
	Status         string         `json:"status"`
	Hash           string         `json:"hash"`
	BlockchainInfo blockchainInfo `json:"blockchainInfo"`
	DatabaseInfo   databaseInfo   `json:"databaseInfo"`
}

type revokeRequest struct {
	CertificateID string `json:"certificate_id" validate:"required"`
}

type deleteCertificateRequest struct {
	CertificateID string `json:"certificate_id" validate:"required"`
}

type deleteStudentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

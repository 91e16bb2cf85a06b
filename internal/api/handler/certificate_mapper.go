package handler

import (
	"time"

	"github.com/gctu/certificate-registry/internal/core/ports"
)

const dateLayout = "2006-01-02"

func toCertificateResponse(v ports.CertificateView) certificateResponse {
	resp := certificateResponse{
		ID:               v.ID,
		CertificateHash:  v.Hash,
		Title:            v.Title,
		Description:      v.Description,
		IssueDate:        v.IssueDate.Format(dateLayout),
		Status:           v.Status,
		BlockchainTxHash: v.AnchorTxRef,
		CreatedAt:        v.CreatedAt.Format(time.RFC3339),
		Student: studentSummary{
			Username: v.StudentUsername,
			Email:    v.StudentEmail,
			PhotoURL: v.StudentPhotoRef,
		},
		Institution: institutionSummary{Name: v.InstitutionName},
	}
	if v.ExpiryDate != nil {
		resp.ExpiryDate = v.ExpiryDate.Format(dateLayout)
	}
	return resp
}

func toCertificateResponses(views []ports.CertificateView) []certificateResponse {
	out := make([]certificateResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toCertificateResponse(v))
	}
	return out
}

func toVerdictResponse(r *ports.VerificationResult) verdictResponse {
	return verdictResponse{
		Valid:      r.Verdict.Valid,
		Status:     r.Verdict.Status,
		Message:    r.Verdict.Message,
		IsExpired:  r.IsExpired,
		VerifiedAt: r.VerifiedAt.Format(time.RFC3339),
	}
}

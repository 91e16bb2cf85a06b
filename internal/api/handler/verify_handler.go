package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gctu/certificate-registry/internal/api/metrics"
	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/fingerprint"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// VerifyHandler handles the public verification endpoints. Both routes sit
// behind OptionalAuth: anonymous callers are served, authenticated callers
// are attributed in the audit trail.
type VerifyHandler struct {
	service        ports.VerificationService
	maxUploadBytes int64
}

func NewVerifyHandler(service ports.VerificationService, maxUploadBytes int64) *VerifyHandler {
	return &VerifyHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// VerifyByHash handles GET /certificates/verify/:hash.
//
// @Summary      Verify a certificate by its fingerprint
// @Tags         verification
// @Produce      json
// @Param        hash  path      string  true  "SHA-256 fingerprint (64 hex chars)"
// @Success      200   {object}  verifyHashResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /certificates/verify/{hash} [get]
func (h *VerifyHandler) VerifyByHash(c echo.Context) error {
	result, err := h.service.VerifyByHash(c.Request().Context(), c.Param("hash"), ctxOptionalCaller(c))
	if err != nil {
		return h.mapVerifyError(c, err)
	}

	metrics.VerificationsTotal.WithLabelValues(result.Verdict.Status).Inc()
	return c.JSON(http.StatusOK, verifyHashResponse{
		Certificate:  toCertificateResponse(result.Certificate),
		Verification: toVerdictResponse(result),
	})
}

// VerifyArtifact handles POST /verify. The request carries either an
// uploaded file (fingerprinted in memory, never stored) or a `hash` field.
//
// @Summary      Verify an uploaded certificate file or fingerprint
// @Tags         verification
// @Accept       multipart/form-data
// @Produce      json
// @Param        certificate  formData  file    false  "Certificate file to fingerprint"
// @Param        hash         formData  string  false  "SHA-256 fingerprint (64 hex chars)"
// @Success      200  {object}  verifyArtifactResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /verify [post]
func (h *VerifyHandler) VerifyArtifact(c echo.Context) error {
	caller := ctxOptionalCaller(c)

	artifact, _, err := readFormFile(c, "certificate", h.maxUploadBytes)
	if err != nil {
		return err
	}

	var result *ports.VerificationResult
	switch {
	case len(artifact) > 0:
		result, err = h.service.VerifyArtifact(c.Request().Context(), artifact, caller)
	case formValue(c, "hash") != "":
		result, err = h.service.VerifyByHash(c.Request().Context(), formValue(c, "hash"), caller)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "a certificate file or hash is required"})
	}
	if err != nil {
		return h.mapVerifyError(c, err)
	}

	metrics.VerificationsTotal.WithLabelValues(result.Verdict.Status).Inc()
	return c.JSON(http.StatusOK, verifyArtifactResponse{
		Status: result.Verdict.Status,
		Hash:   result.Certificate.Hash,
		BlockchainInfo: blockchainInfo{
			Verified: result.AnchorTxRef != "",
			TxHash:   result.AnchorTxRef,
		},
		DatabaseInfo: databaseInfo{
			Certificate:  toCertificateResponse(result.Certificate),
			Verification: toVerdictResponse(result),
		},
	})
}

// mapVerifyError keeps unknown-fingerprint reporting uniform across both
// endpoints.
func (h *VerifyHandler) mapVerifyError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, fingerprint.ErrMalformed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed certificate hash"})
	case errors.Is(err, domain.ErrCertificateNotFound):
		metrics.VerificationsTotal.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, map[string]string{"error": "certificate not found"})
	}
	return err
}

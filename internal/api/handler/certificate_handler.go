package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gctu/certificate-registry/internal/api/metrics"
	"github.com/gctu/certificate-registry/internal/core/domain"
	"github.com/gctu/certificate-registry/internal/core/ports"
)

// CertificateHandler handles HTTP requests for certificate operations.
type CertificateHandler struct {
	service        ports.CertificateService
	maxUploadBytes int64
}

func NewCertificateHandler(service ports.CertificateService, maxUploadBytes int64) *CertificateHandler {
	return &CertificateHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Issue handles POST /certificates/issue (multipart).
//
// @Summary      Issue a certificate
// @Tags         certificates
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        studentId      formData  string  true   "Student username"
// @Param        studentName    formData  string  false  "Student display name (new accounts)"
// @Param        personalEmail  formData  string  false  "Student email (new accounts)"
// @Param        password       formData  string  false  "Student password (new accounts)"
// @Param        title          formData  string  true   "Certificate title"
// @Param        issueDate      formData  string  true   "Issue date (YYYY-MM-DD)"
// @Param        expiryDate     formData  string  false  "Expiry date (YYYY-MM-DD)"
// @Param        description    formData  string  false  "Description"
// @Param        certificate    formData  file    true   "Certificate PDF"
// @Param        photo          formData  file    false  "Student photo"
// @Success      201  {object}  issueResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /certificates/issue [post]
func (h *CertificateHandler) Issue(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	input, err := h.parseIssueForm(c, adminID)
	if err != nil {
		return err
	}

	result, err := h.service.Issue(c.Request().Context(), *input)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateFingerprint) {
			metrics.IssuanceConflictsTotal.Inc()
			return c.JSON(http.StatusConflict, map[string]string{"error": "a certificate with this file already exists"})
		}
		return err
	}

	metrics.CertificatesIssuedTotal.Inc()
	return c.JSON(http.StatusCreated, issueResponse{
		Message:          "Certificate issued successfully",
		CertificateID:    result.CertificateID,
		CertificateHash:  result.Hash,
		BlockchainTxHash: result.AnchorTxRef,
		FilePath:         result.FileRef,
		StudentUsername:  result.StudentUsername,
		StudentCreated:   result.StudentCreated,
	})
}

func (h *CertificateHandler) parseIssueForm(c echo.Context, adminID string) (*ports.IssueCertificateInput, error) {
	input := ports.IssueCertificateInput{
		AdminID:         adminID,
		StudentUsername: formValue(c, "studentId"),
		StudentName:     formValue(c, "studentName"),
		StudentEmail:    formValue(c, "personalEmail"),
		StudentPassword: formValue(c, "password"),
		Title:           formValue(c, "title"),
		Description:     formValue(c, "description"),
	}

	if input.StudentUsername == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "studentId is required")
	}
	if input.Title == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}

	issueDate, err := time.Parse(dateLayout, formValue(c, "issueDate"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "issueDate must be a valid date (YYYY-MM-DD)")
	}
	input.IssueDate = issueDate

	if raw := formValue(c, "expiryDate"); raw != "" {
		expiry, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "expiryDate must be a valid date (YYYY-MM-DD)")
		}
		input.ExpiryDate = &expiry
	}

	artifact, artifactName, err := readFormFile(c, "certificate", h.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if len(artifact) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "certificate file is required")
	}
	input.Artifact = artifact
	input.ArtifactName = artifactName

	photo, photoName, err := readFormFile(c, "photo", h.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	input.Photo = photo
	input.PhotoName = photoName

	return &input, nil
}

// ListAll handles GET /certificates/all.
//
// @Summary      List certificates issued by the caller's institution
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  certificateListResponse
// @Failure      404  {object}  map[string]string
// @Router       /certificates/all [get]
func (h *CertificateHandler) ListAll(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListByInstitution(c.Request().Context(), adminID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, certificateListResponse{Certificates: toCertificateResponses(views)})
}

// ListMine handles GET /certificates/student.
//
// @Summary      List the caller's own certificates
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  certificateListResponse
// @Router       /certificates/student [get]
func (h *CertificateHandler) ListMine(c echo.Context) error {
	studentID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	views, err := h.service.ListByStudent(c.Request().Context(), studentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, certificateListResponse{Certificates: toCertificateResponses(views)})
}

type institutionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Institution handles GET /institution.
//
// @Summary      Get the caller's institution
// @Tags         certificates
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  institutionResponse
// @Failure      404  {object}  map[string]string
// @Router       /institution [get]
func (h *CertificateHandler) Institution(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	inst, err := h.service.Institution(c.Request().Context(), adminID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, institutionResponse{ID: inst.ID, Name: inst.Name})
}

// Revoke handles POST /revoke.
//
// @Summary      Revoke a certificate
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      revokeRequest  true  "Certificate to revoke"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /revoke [post]
func (h *CertificateHandler) Revoke(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req revokeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.service.Revoke(c.Request().Context(), adminID, req.CertificateID); err != nil {
		return err
	}

	metrics.RevocationsTotal.Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: "Certificate revoked successfully"})
}

// Delete handles POST /certificates/delete.
//
// @Summary      Delete a certificate and its stored file
// @Tags         certificates
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteCertificateRequest  true  "Certificate to delete"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  map[string]string
// @Router       /certificates/delete [post]
func (h *CertificateHandler) Delete(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req deleteCertificateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.service.Delete(c.Request().Context(), adminID, req.CertificateID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Certificate deleted successfully"})
}

// Download handles GET /certificates/:id/download.
//
// @Summary      Download the caller's certificate file
// @Tags         certificates
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path      string  true  "Certificate ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  map[string]string
// @Router       /certificates/{id}/download [get]
func (h *CertificateHandler) Download(c echo.Context) error {
	studentID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	result, err := h.service.Download(c.Request().Context(), studentID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrCertificateNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "certificate not found or access denied"})
		}
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, result.Filename))
	return c.Blob(http.StatusOK, "application/pdf", result.Content)
}

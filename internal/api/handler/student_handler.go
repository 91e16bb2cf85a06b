package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gctu/certificate-registry/internal/core/ports"
)

// StudentHandler handles admin-side student account management.
type StudentHandler struct {
	service        ports.CertificateService
	maxUploadBytes int64
}

func NewStudentHandler(service ports.CertificateService, maxUploadBytes int64) *StudentHandler {
	return &StudentHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Delete handles POST /students/delete. Certificates and their stored files
// are removed first, then the account. Audit entries survive as weak
// references.
//
// @Summary      Delete a student account and their certificates
// @Tags         students
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteStudentRequest  true  "Student to delete"
// @Success      200   {object}  messageResponse
// @Failure      404   {object}  map[string]string
// @Router       /students/delete [post]
func (h *StudentHandler) Delete(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req deleteStudentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.service.DeleteStudent(c.Request().Context(), adminID, req.StudentID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Student deleted successfully"})
}

// UpdateInfo handles POST /students/update-info (multipart). Username, email,
// and photo are each optional; only provided fields change.
//
// @Summary      Update a student's profile
// @Tags         students
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        studentId  formData  string  true   "Student ID"
// @Param        username   formData  string  false  "New username"
// @Param        email      formData  string  false  "New email"
// @Param        photo      formData  file    false  "New profile photo"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /students/update-info [post]
func (h *StudentHandler) UpdateInfo(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	studentID := formValue(c, "studentId")
	if studentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "studentId is required"})
	}

	photo, photoName, err := readFormFile(c, "photo", h.maxUploadBytes)
	if err != nil {
		return err
	}

	input := ports.UpdateStudentInput{
		StudentID: studentID,
		Username:  formValue(c, "username"),
		Email:     formValue(c, "email"),
		Photo:     photo,
		PhotoName: photoName,
	}
	if input.Username == "" && input.Email == "" && len(input.Photo) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "nothing to update"})
	}

	if err := h.service.UpdateStudent(c.Request().Context(), adminID, input); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Student updated successfully"})
}

// UpdatePhoto handles POST /students/update-photo (multipart). Unlike
// UpdateInfo the photo is mandatory here.
//
// @Summary      Replace a student's profile photo
// @Tags         students
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        studentId  formData  string  true  "Student ID"
// @Param        photo      formData  file    true  "New profile photo"
// @Success      200  {object}  messageResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /students/update-photo [post]
func (h *StudentHandler) UpdatePhoto(c echo.Context) error {
	adminID, _, err := ctxClaims(c)
	if err != nil {
		return err
	}

	studentID := formValue(c, "studentId")
	if studentID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "studentId is required"})
	}

	photo, photoName, err := readFormFile(c, "photo", h.maxUploadBytes)
	if err != nil {
		return err
	}
	if len(photo) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "photo file is required"})
	}

	if err := h.service.UpdateStudentPhoto(c.Request().Context(), adminID, studentID, photo, photoName); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Photo updated successfully"})
}

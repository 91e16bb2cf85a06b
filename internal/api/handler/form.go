package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// formValue returns the first non-empty value submitted under name, trimmed.
// Some clients submit scalar fields as single-element arrays (name[]), so
// both spellings are accepted.
func formValue(c echo.Context, name string) string {
	if v := strings.TrimSpace(c.FormValue(name)); v != "" {
		return v
	}
	form, err := c.MultipartForm()
	if err != nil {
		return ""
	}
	for _, v := range form.Value[name+"[]"] {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// readFormFile reads the uploaded file under field into memory. A missing
// file is not an error: it returns (nil, "", nil) so callers decide whether
// the file is required. Files larger than maxBytes are rejected with 413.
func readFormFile(c echo.Context, field string, maxBytes int64) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", nil
		}
		// no multipart body at all also means no file
		return nil, "", nil
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "uploaded file is too large")
	}
	return data, fh.Filename, nil
}

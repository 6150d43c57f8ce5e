package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// UploadHandler stores certification, insurance and expense documents on
// local disk. Files are served back under BaseURL.
type UploadHandler struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

func NewUploadHandler(dir, baseURL string, maxBytes int64) *UploadHandler {
	return &UploadHandler{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}
}

const defaultFolder = "documents"

var (
	folderRe     = regexp.MustCompile(`[^a-z0-9_-]+`)
	allowedTypes = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".pdf": true,
	}
	errTooLarge = errors.New("file too large")
)

// sanitizeFolder keeps a single lowercase path segment.
func sanitizeFolder(s string) string {
	s = folderRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return defaultFolder
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// Upload POST /v1/uploads (multipart: file, folder)
func (h *UploadHandler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, badRequestf("file is required"))
	}
	if h.MaxBytes > 0 && fh.Size > h.MaxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": fmt.Sprintf("file exceeds %d bytes", h.MaxBytes),
		})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedTypes[ext] {
		return respondError(c, badRequestf("unsupported file type %q", ext))
	}

	folder := sanitizeFolder(c.FormValue("folder"))
	name := uuid.NewString() + ext
	dir := filepath.Join(h.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return respondError(c, err)
	}

	if err := h.save(fh, filepath.Join(dir, name)); err != nil {
		if errors.Is(err, errTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
				"error": fmt.Sprintf("file exceeds %d bytes", h.MaxBytes),
			})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"url":           h.BaseURL + "/" + folder + "/" + name,
		"original_name": filepath.Base(fh.Filename),
		"message":       "File uploaded successfully",
	})
}

// save copies the upload to dst, removing the partial file on failure.
func (h *UploadHandler) save(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	var r io.Reader = src
	if h.MaxBytes > 0 {
		r = io.LimitReader(src, h.MaxBytes+1)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && h.MaxBytes > 0 && n > h.MaxBytes {
		err = errTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
	}
	return err
}

package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, filename string, content []byte, folder string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if folder != "" {
		require.NoError(t, w.WriteField("folder", folder))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(e *echo.Echo, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUploadStoresFile(t *testing.T) {
	dir := t.TempDir()
	h := NewUploadHandler(dir, "/uploads/", 1024)
	e := newEcho()
	e.POST("/v1/uploads", h.Upload)

	body, ct := multipartBody(t, "PADI card.PDF", []byte("%PDF-1.4"), "../Certifications!")
	rec := upload(e, body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out struct {
		Success      bool   `json:"success"`
		URL          string `json:"url"`
		OriginalName string `json:"original_name"`
		Message      string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.Equal(t, "PADI card.PDF", out.OriginalName)
	require.True(t, strings.HasPrefix(out.URL, "/uploads/certifications/"), out.URL)
	require.True(t, strings.HasSuffix(out.URL, ".pdf"), out.URL)

	stored := filepath.Join(dir, "certifications", filepath.Base(out.URL))
	got, err := os.ReadFile(stored)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4", string(got))
}

func TestUploadRejections(t *testing.T) {
	h := NewUploadHandler(t.TempDir(), "/uploads", 16)
	e := newEcho()
	e.POST("/v1/uploads", h.Upload)

	body, ct := multipartBody(t, "", nil, "docs")
	require.Equal(t, http.StatusBadRequest, upload(e, body, ct).Code)

	body, ct = multipartBody(t, "script.sh", []byte("echo hi"), "")
	rec := upload(e, body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unsupported file type")

	body, ct = multipartBody(t, "scan.png", bytes.Repeat([]byte("x"), 64), "")
	require.Equal(t, http.StatusRequestEntityTooLarge, upload(e, body, ct).Code)
}

func TestSanitizeFolder(t *testing.T) {
	require.Equal(t, "documents", sanitizeFolder(""))
	require.Equal(t, "documents", sanitizeFolder("../.."))
	require.Equal(t, "insurance-docs", sanitizeFolder(" Insurance Docs "))
	require.Equal(t, "expenses_2026", sanitizeFolder("expenses_2026"))
}

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tove/storyforge/internal/models"
	"github.com/tove/storyforge/server"
)

type stubProcessor struct {
	lastDocuments map[string]string
	result        models.ProcessingResult
}

func (s *stubProcessor) Process(_ context.Context, documents map[string]string) models.ProcessingResult {
	s.lastDocuments = documents
	return s.result
}

func newTestServer(t *testing.T, proc *stubProcessor) http.Handler {
	t.Helper()
	srv, err := server.NewServer(server.Config{}, proc)
	require.NoError(t, err)
	return srv.Handler()
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestNewServerRequiresProcessor(t *testing.T) {
	_, err := server.NewServer(server.Config{}, nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestProcessDocuments(t *testing.T) {
	proc := &stubProcessor{
		result: models.ProcessingResult{
			Status: models.StatusSuccess,
			Stories: []models.Story{
				{Category: models.CategoryConcerns, Topics: []string{"crashes"}, Story: "a story"},
			},
			Metadata: &models.ResultMetadata{
				DocumentCount:    2,
				GeneratedStories: 1,
				Categories:       []string{"concerns"},
			},
		},
	}
	handler := newTestServer(t, proc)

	body, contentType := multipartBody(t, map[string]string{
		"feedback.txt": "the app crashes",
		"notes.txt":    "users like the design",
	})
	req := httptest.NewRequest(http.MethodPost, "/process-documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{
		"feedback.txt": "the app crashes",
		"notes.txt":    "users like the design",
	}, proc.lastDocuments)

	var result models.ProcessingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.StatusSuccess, result.Status)
	require.Len(t, result.Stories, 1)
	assert.Equal(t, models.CategoryConcerns, result.Stories[0].Category)
	require.NotNil(t, result.Metadata)
	assert.Equal(t, 2, result.Metadata.DocumentCount)
}

func TestProcessDocumentsFiltersNonText(t *testing.T) {
	proc := &stubProcessor{result: models.ProcessingResult{Status: models.StatusSuccess}}
	handler := newTestServer(t, proc)

	body, contentType := multipartBody(t, map[string]string{
		"report.txt": "valid content",
		"image.png":  "binary junk",
		"data.csv":   "a,b,c",
	})
	req := httptest.NewRequest(http.MethodPost, "/process-documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"report.txt": "valid content"}, proc.lastDocuments)
}

func TestProcessDocumentsRejectsEmptyBatch(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	body, contentType := multipartBody(t, map[string]string{"image.png": "junk"})
	req := httptest.NewRequest(http.MethodPost, "/process-documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no valid .txt files provided", resp["detail"])
}

func TestProcessDocumentsRejectsGet(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process-documents", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProcessDocumentsRejectsNonMultipart(t *testing.T) {
	handler := newTestServer(t, &stubProcessor{})

	req := httptest.NewRequest(http.MethodPost, "/process-documents", bytes.NewBufferString("not multipart"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

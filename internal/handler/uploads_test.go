package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/middleware"
)

type stubUploader struct {
	err    error
	bucket string
	name   string
	body   []byte
}

func (s *stubUploader) Upload(ctx context.Context, bucket, name string, content []byte, contentType string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.bucket = bucket
	s.name = name
	s.body = content
	return "https://storage.test/public/" + bucket + "/" + name, nil
}

func newUploadRouter(t *testing.T, up Uploader) http.Handler {
	t.Helper()

	auth := middleware.NewAdminAuth("test-secret")
	return NewHandler(&stubService{}, zap.NewNop(), auth, "hunter2", up).SetupRouter()
}

func TestUploadFile_StoresAndReturnsURL(t *testing.T) {
	up := &stubUploader{}
	router := newUploadRouter(t, up)

	req := httptest.NewRequest(http.MethodPost,
		"/api/uploads?bucket=receipts&filename=receipt.png",
		bytes.NewReader([]byte("png-bytes")))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	if up.bucket != "receipts" {
		t.Fatalf("bucket = %q, want receipts", up.bucket)
	}
	if !strings.HasSuffix(up.name, "-receipt.png") || up.name == "-receipt.png" {
		t.Fatalf("stored name %q must carry a random prefix and the filename", up.name)
	}
	if string(up.body) != "png-bytes" {
		t.Fatalf("stored content = %q", up.body)
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.URL == "" {
		t.Fatalf("response must carry the public URL")
	}
}

func TestUploadFile_RejectsUnknownBucket(t *testing.T) {
	up := &stubUploader{}
	router := newUploadRouter(t, up)

	req := httptest.NewRequest(http.MethodPost,
		"/api/uploads?bucket=secrets&filename=x.png",
		bytes.NewReader([]byte("x")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if up.bucket != "" {
		t.Fatalf("rejected upload must not reach storage")
	}
}

func TestUploadFile_UnconfiguredStorage(t *testing.T) {
	router := newUploadRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost,
		"/api/uploads?bucket=receipts&filename=receipt.png",
		bytes.NewReader([]byte("x")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestUploadFile_StorageFailure(t *testing.T) {
	up := &stubUploader{err: errors.New("bucket policy violation")}
	router := newUploadRouter(t, up)

	req := httptest.NewRequest(http.MethodPost,
		"/api/uploads?bucket=chat-images&filename=photo.jpg",
		bytes.NewReader([]byte("jpg")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

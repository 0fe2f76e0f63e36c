package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Uploader stores an attachment and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, name string, content []byte, contentType string) (string, error)
}

const maxUploadBytes = 10 << 20

// Attachments land in a fixed set of buckets; anything else is rejected so
// the endpoint cannot write into arbitrary storage paths.
var uploadBuckets = map[string]bool{
	"receipts":         true,
	"proof-of-payment": true,
	"chat-images":      true,
}

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadFile stores the raw request body in object storage under the bucket
// and filename given as query parameters. The stored name is prefixed with a
// random ID so concurrent customers cannot overwrite each other's files.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "file storage is not configured")
		return
	}

	bucket := r.URL.Query().Get("bucket")
	if !uploadBuckets[bucket] {
		writeError(w, http.StatusBadRequest, "unknown bucket")
		return
	}

	filename := path.Base(strings.TrimSpace(r.URL.Query().Get("filename")))
	if filename == "" || filename == "." || filename == "/" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, "empty file")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name := fmt.Sprintf("%s-%s", uuid.NewString(), filename)

	url, err := h.uploader.Upload(r.Context(), bucket, name, content, contentType)
	if err != nil {
		h.logger.Error("upload failed",
			zap.String("bucket", bucket),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{URL: url})
}

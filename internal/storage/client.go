// Package storage uploads receipts, proofs of payment and chat images to the
// external object store and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client wraps the object store's HTTP upload API. Individual uploads are
// retried transparently a few times; callers decide whether a final failure
// is fatal to their flow.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// NewClient creates an upload client for the given object store address.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc,
	}
}

// Upload stores content under bucket/name and returns the public URL the
// order and chat endpoints consume as a plain string field.
func (c *Client) Upload(ctx context.Context, bucket, name string, content []byte, contentType string) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("object storage not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	objectPath := fmt.Sprintf("/storage/v1/object/%s/%s", bucket, name)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+objectPath, content)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload %s/%s: unexpected status %d", bucket, name, resp.StatusCode)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, bucket, name), nil
}

package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tconnectmw/store-system/internal/model"
)

// HTTPSubmitter posts submissions to the order-creation endpoint.
type HTTPSubmitter struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSubmitter creates a submitter for the given backend address.
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit posts the submission. Any non-2xx response becomes an error whose
// message comes from the response body when present, so the customer sees
// the server's reason rather than a status code.
func (s *HTTPSubmitter) Submit(ctx context.Context, sub model.OrderSubmission) (*model.Order, error) {
	if s == nil || s.baseURL == "" {
		return nil, fmt.Errorf("order endpoint not configured")
	}

	base := s.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var er errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&er); decodeErr == nil && er.Error != "" {
			return nil, errors.New(er.Error)
		}
		return nil, fmt.Errorf("order submission failed with status %d", resp.StatusCode)
	}

	var order model.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}

	return &order, nil
}

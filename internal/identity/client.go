// Package identity syncs customer profiles between the external auth
// provider session and the storefront backend.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tconnectmw/store-system/internal/model"
)

const (
	upsertAttempts = 3
	backoffStep    = 1 * time.Second
)

// Client performs the upsert-on-login profile sync. Upsert retries up to
// three attempts with linear backoff; when all attempts fail the caller
// falls back to locally known profile data.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a profile sync client for the given backend address.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		backoff: backoffStep,
	}
}

type upsertRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Upsert creates or updates the profile for the given login. Server and
// network failures are retried with delays of backoffStep times the attempt
// number; client errors fail immediately.
func (c *Client) Upsert(ctx context.Context, email, displayName string) (*model.User, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("identity sync not configured")
	}

	body, err := json.Marshal(upsertRequest{Email: email, DisplayName: displayName})
	if err != nil {
		return nil, fmt.Errorf("marshal upsert: %w", err)
	}

	var user *model.User

	err = retry.Do(ctx, linearBackoff(c.backoff, upsertAttempts), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/api/users/upsert", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("do request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		var u model.User
		if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		user = &u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return user, nil
}

// Profile fetches the profile for the given email. No retry: callers poll
// profiles opportunistically and reuse the last known copy on failure.
func (c *Client) Profile(ctx context.Context, email string) (*model.User, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("identity sync not configured")
	}

	target := c.base() + "/api/users/profile?email=" + url.QueryEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var u model.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &u, nil
}

func (c *Client) base() string {
	if strings.HasPrefix(c.baseURL, "http://") || strings.HasPrefix(c.baseURL, "https://") {
		return c.baseURL
	}
	return "http://" + c.baseURL
}

// linearBackoff waits step, 2*step, ... between attempts and stops after
// maxAttempts total calls.
func linearBackoff(step time.Duration, maxAttempts int) retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if attempt >= maxAttempts {
			return 0, true
		}
		return step * time.Duration(attempt), false
	})
}

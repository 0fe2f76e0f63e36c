// Package ratesource provides a client for the remote exchange-rate feed.
package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tconnectmw/store-system/internal/model"
)

// Client encapsulates HTTP access to the rate history feed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client for the given base address.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type rateRecord struct {
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// RateRecords fetches the full rate history. Records with an unknown
// category or a non-positive value are dropped; the caller keeps the most
// recent record per category.
func (c *Client) RateRecords(ctx context.Context) ([]model.RateRecord, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("rate source not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/rates", nil)
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

	var raw []rateRecord
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]model.RateRecord, 0, len(raw))
	for _, r := range raw {
		cat := model.RateCategory(r.Type)
		if !cat.Valid() || r.Value <= 0 {
			continue
		}
		records = append(records, model.RateRecord{
			Category:  cat,
			Value:     r.Value,
			CreatedAt: r.CreatedAt,
		})
	}

	return records, nil
}

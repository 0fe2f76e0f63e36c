package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tconnectmw/store-system/internal/model"
)

// HTTPFetcher reads chats over the backend's REST API.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher for the given backend address.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type chatResponse struct {
	Session  model.ChatSession   `json:"session"`
	Messages []model.ChatMessage `json:"messages"`
}

// Chat fetches a full chat by ID.
func (f *HTTPFetcher) Chat(ctx context.Context, id string) (model.ChatSession, []model.ChatMessage, error) {
	if f == nil || f.baseURL == "" {
		return model.ChatSession{}, nil, fmt.Errorf("chat backend not configured")
	}

	base := f.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/chats/"+id, nil)
	if err != nil {
		return model.ChatSession{}, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return model.ChatSession{}, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ChatSession{}, nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return model.ChatSession{}, nil, fmt.Errorf("decode response: %w", err)
	}

	return cr.Session, cr.Messages, nil
}

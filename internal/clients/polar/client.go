package polar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
)

// Subscription is the slice of the provider's subscription object the
// entitlement check needs.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Client interface {
	// GetSubscription fetches the live status of a subscription by id.
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("POLAR_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing POLAR_API_KEY")
	}

	baseURL := os.Getenv("POLAR_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.polar.sh"
	}

	return &client{
		log:        log.With("client", "PolarClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("subscriptionID required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/subscriptions/"+subscriptionID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("polar http %d: %s", resp.StatusCode, string(raw))
	}

	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("polar decode error: %w", err)
	}
	return &sub, nil
}

package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/greg-maceachern12/binder-sub000/internal/logger"
)

// Client looks up a representative cover image for a search query.
type Client interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := os.Getenv("PEXELS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing PEXELS_API_KEY")
	}

	baseURL := os.Getenv("PEXELS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.pexels.com"
	}

	return &client{
		log:        log.With("client", "PexelsClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Landscape string `json:"landscape"`
			Large     string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

func (c *client) SearchImage(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("query required")
	}

	u := fmt.Sprintf("%s/v1/search?query=%s&per_page=1&orientation=landscape", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pexels http %d: %s", resp.StatusCode, string(raw))
	}

	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return "", fmt.Errorf("pexels decode error: %w", err)
	}
	if len(sr.Photos) == 0 {
		return "", nil
	}
	if sr.Photos[0].Src.Landscape != "" {
		return sr.Photos[0].Src.Landscape, nil
	}
	return sr.Photos[0].Src.Large, nil
}

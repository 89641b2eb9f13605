package places

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Suggestion is a single autocomplete hit for a free-text location
// field. Suggestions are advisory: the rest of the system accepts any
// typed origin/destination, so a provider outage only degrades the UI.
type Suggestion struct {
	DisplayName string `json:"displayName"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

const (
	defaultBaseURL = "https://api.locationiq.com/v1/autocomplete"
	cacheTTL       = 5 * time.Minute
	maxSuggestions = "5"
)

type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	cache   *redis.Client // nil disables caching
}

func NewClient(apiKey string, cache *redis.Client) *Client {
	return &Client{
		http:    &http.Client{Timeout: 5 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		cache:   cache,
	}
}

// Autocomplete proxies the query to LocationIQ, serving repeated
// lookups from Redis. Cache errors are ignored; the provider is the
// source of truth and the cache only saves round trips.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	key := "places:autocomplete:" + strings.ToLower(query)
	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key).Bytes(); err == nil {
			var cached []Suggestion
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("q", query)
	q.Set("limit", maxSuggestions)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("locationiq: unexpected status %d", resp.StatusCode)
	}

	var raw []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(raw))
	for _, p := range raw {
		suggestions = append(suggestions, Suggestion{
			DisplayName: p.DisplayName,
			Lat:         p.Lat,
			Lon:         p.Lon,
		})
	}

	if c.cache != nil {
		if data, err := json.Marshal(suggestions); err == nil {
			c.cache.Set(ctx, key, data, cacheTTL)
		}
	}

	return suggestions, nil
}

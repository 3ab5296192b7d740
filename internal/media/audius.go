package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultAudiusAPI is the public endpoint that lists live discovery providers.
const DefaultAudiusAPI = "https://api.audius.co"

// Track is a single Audius search result, flattened to what the frontend needs.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Duration int
	Thumb    string
}

// AudiusClient talks to the Audius discovery network. The APIHost is
// overridable so tests can point it at a local server.
type AudiusClient struct {
	APIHost    string
	httpClient *http.Client
}

func NewAudiusClient() *AudiusClient {
	return &AudiusClient{
		APIHost:    DefaultAudiusAPI,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type audiusHostsResponse struct {
	Data []string `json:"data"`
}

type audiusSearchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Duration int    `json:"duration"`
		User     struct {
			Name string `json:"name"`
		} `json:"user"`
		Artwork struct {
			Small string `json:"150x150"`
		} `json:"artwork"`
	} `json:"data"`
}

// discoveryHost picks the first advertised discovery provider.
func (c *AudiusClient) discoveryHost(ctx context.Context) (string, error) {
	var hosts audiusHostsResponse
	if err := c.getJSON(ctx, c.APIHost, &hosts); err != nil {
		return "", fmt.Errorf("audius host lookup: %w", err)
	}
	if len(hosts.Data) == 0 {
		return "", fmt.Errorf("audius host lookup: no providers advertised")
	}
	return hosts.Data[0], nil
}

// SearchTracks queries the discovery provider's track search.
func (c *AudiusClient) SearchTracks(ctx context.Context, query string, limit, offset int) ([]Track, error) {
	host, err := c.discoveryHost(ctx)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var resp audiusSearchResponse
	if err := c.getJSON(ctx, host+"/v1/tracks/search?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("audius search: %w", err)
	}
	tracks := make([]Track, 0, len(resp.Data))
	for _, item := range resp.Data {
		tracks = append(tracks, Track{
			ID:       item.ID,
			Title:    item.Title,
			Artist:   item.User.Name,
			Duration: item.Duration,
			Thumb:    item.Artwork.Small,
		})
	}
	return tracks, nil
}

// StreamEndpoint returns the discovery provider URL for a track's stream.
// Audius answers it with a redirect to a CDN; resolving that redirect is the
// proxy's job, not ours.
func (c *AudiusClient) StreamEndpoint(ctx context.Context, trackID string) (string, error) {
	host, err := c.discoveryHost(ctx)
	if err != nil {
		return "", err
	}
	return host + "/v1/tracks/" + url.PathEscape(trackID) + "/stream", nil
}

func (c *AudiusClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultPixabayAPI is the Pixabay video search endpoint.
const DefaultPixabayAPI = "https://pixabay.com/api/videos/"

// ErrNoAPIKey is returned when a Pixabay search is attempted without a key.
var ErrNoAPIKey = errors.New("pixabay API key not configured")

// Video is one Pixabay hit with a directly streamable file URL.
type Video struct {
	ID    string
	Title string
	Thumb string
	URL   string
}

// PixabayClient wraps the Pixabay video search API.
type PixabayClient struct {
	BaseURL    string
	APIKey     string
	httpClient *http.Client
}

func NewPixabayClient(apiKey string) *PixabayClient {
	return &PixabayClient{
		BaseURL:    DefaultPixabayAPI,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type pixabayResponse struct {
	Hits []struct {
		ID           int    `json:"id"`
		Tags         string `json:"tags"`
		PreviewURL   string `json:"previewURL"`
		UserImageURL string `json:"userImageURL"`
		Videos       map[string]struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"hits"`
}

// SearchVideos returns hits that carry a playable file URL, preferring the
// medium rendition and falling back to small then large.
func (c *PixabayClient) SearchVideos(ctx context.Context, query string, page, perPage int) ([]Video, error) {
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > 50 {
		perPage = 50
	}
	params := url.Values{}
	params.Set("key", c.APIKey)
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("video_type", "all")
	params.Set("safesearch", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay search: unexpected status %d", resp.StatusCode)
	}

	var parsed pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pixabay search: %w", err)
	}

	videos := make([]Video, 0, len(parsed.Hits))
	for _, hit := range parsed.Hits {
		var direct string
		for _, size := range []string{"medium", "small", "large"} {
			if file, ok := hit.Videos[size]; ok && file.URL != "" {
				direct = file.URL
				break
			}
		}
		if direct == "" {
			continue
		}
		title := hit.Tags
		if title == "" {
			title = fmt.Sprintf("Pixabay %d", hit.ID)
		}
		thumb := hit.UserImageURL
		if thumb == "" {
			thumb = hit.PreviewURL
		}
		videos = append(videos, Video{
			ID:    strconv.Itoa(hit.ID),
			Title: title,
			Thumb: thumb,
			URL:   direct,
		})
	}
	return videos, nil
}

package sermon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
)

const youtubeSearchURL = "https://www.googleapis.com/youtube/v3/search"

// YouTubeClient fetches channel uploads and live state from the YouTube Data
// API v3.
type YouTubeClient struct {
	apiKey    string
	channelID string
	searchURL string
	client    *http.Client
	logger    *slog.Logger
}

func NewYouTubeClient(apiKey, channelID string, logger *slog.Logger) *YouTubeClient {
	return &YouTubeClient{
		apiKey:    apiKey,
		channelID: channelID,
		searchURL: youtubeSearchURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger,
	}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			PublishedAt time.Time `json:"publishedAt"`
			Thumbnails  struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *YouTubeClient) search(ctx context.Context, params url.Values) (*youtubeSearchResponse, error) {
	params.Set("key", c.apiKey)
	params.Set("channelId", c.channelID)
	params.Set("part", "snippet")
	params.Set("type", "video")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search returned status %d", resp.StatusCode)
	}

	var result youtubeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube response: %w", err)
	}
	return &result, nil
}

// FetchRecent returns the channel's most recent uploads, newest first.
func (c *YouTubeClient) FetchRecent(ctx context.Context, maxResults int) ([]sermondm.Sermon, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("order", "date")
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))

	result, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}

	sermons := make([]sermondm.Sermon, 0, len(result.Items))
	for _, item := range result.Items {
		if item.ID.VideoID == "" {
			continue
		}
		sermons = append(sermons, sermondm.Sermon{
			Title:       item.Snippet.Title,
			VideoID:     item.ID.VideoID,
			Thumbnail:   item.Snippet.Thumbnails.High.URL,
			Description: item.Snippet.Description,
			PublishedAt: item.Snippet.PublishedAt,
			Source:      sermondm.SourceYouTube,
		})
	}
	return sermons, nil
}

// IsLive reports whether the channel is currently streaming.
func (c *YouTubeClient) IsLive(ctx context.Context) (bool, error) {
	params := url.Values{}
	params.Set("eventType", "live")

	result, err := c.search(ctx, params)
	if err != nil {
		return false, err
	}
	return len(result.Items) > 0, nil
}

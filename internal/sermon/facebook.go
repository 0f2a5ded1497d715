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

const facebookGraphURL = "https://graph.facebook.com/v20.0"

// FacebookClient fetches page videos and live state from the Graph API.
type FacebookClient struct {
	pageID      string
	accessToken string
	graphURL    string
	client      *http.Client
	logger      *slog.Logger
}

func NewFacebookClient(pageID, accessToken string, logger *slog.Logger) *FacebookClient {
	return &FacebookClient{
		pageID:      pageID,
		accessToken: accessToken,
		graphURL:    facebookGraphURL,
		client:      &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
}

// Graph timestamps come as ISO8601 with a +0000 offset, which is not RFC3339.
const facebookTimeLayout = "2006-01-02T15:04:05-0700"

type facebookVideosResponse struct {
	Data []struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		CreatedTime  string `json:"created_time"`
		PermalinkURL string `json:"permalink_url"`
		Thumbnails   struct {
			Data []struct {
				URI string `json:"uri"`
			} `json:"data"`
		} `json:"thumbnails"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// FetchAll walks the page's video list, following paging.next until
// exhausted. The context bounds the whole walk.
func (c *FacebookClient) FetchAll(ctx context.Context) ([]sermondm.Sermon, error) {
	params := url.Values{}
	params.Set("fields", "id,title,description,created_time,permalink_url,thumbnails")
	params.Set("access_token", c.accessToken)
	params.Set("limit", "25")

	next := fmt.Sprintf("%s/%s/videos?%s", c.graphURL, c.pageID, params.Encode())

	var sermons []sermondm.Sermon
	for next != "" {
		page, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}

		for _, vid := range page.Data {
			title := vid.Title
			if title == "" {
				title = "Untitled Sermon"
			}
			thumbnail := ""
			if len(vid.Thumbnails.Data) > 0 {
				thumbnail = vid.Thumbnails.Data[0].URI
			}
			publishedAt, err := time.Parse(facebookTimeLayout, vid.CreatedTime)
			if err != nil {
				publishedAt, _ = time.Parse(time.RFC3339, vid.CreatedTime)
			}
			sermons = append(sermons, sermondm.Sermon{
				Title:       title,
				VideoID:     vid.ID,
				Thumbnail:   thumbnail,
				Description: vid.Description,
				PublishedAt: publishedAt,
				Permalink:   vid.PermalinkURL,
				Source:      sermondm.SourceFacebook,
			})
		}

		next = page.Paging.Next
	}

	return sermons, nil
}

func (c *FacebookClient) fetchPage(ctx context.Context, pageURL string) (*facebookVideosResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("facebook videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook videos returned status %d", resp.StatusCode)
	}

	var result facebookVideosResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode facebook response: %w", err)
	}
	return &result, nil
}

type facebookLiveResponse struct {
	Data []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// IsLive reports whether the page has a stream running right now.
func (c *FacebookClient) IsLive(ctx context.Context) (bool, error) {
	params := url.Values{}
	params.Set("status", "LIVE_NOW")
	params.Set("access_token", c.accessToken)

	liveURL := fmt.Sprintf("%s/%s/live_videos?%s", c.graphURL, c.pageID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, liveURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("facebook live check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("facebook live check returned status %d", resp.StatusCode)
	}

	var result facebookLiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode facebook live response: %w", err)
	}
	return len(result.Data) > 0, nil
}

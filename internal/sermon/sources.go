package sermon

import (
	"context"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
)

type youtubeSource struct {
	client     *YouTubeClient
	maxResults int
}

// NewYouTubeSource adapts a YouTubeClient to the VideoSource port.
func NewYouTubeSource(client *YouTubeClient, maxResults int) VideoSource {
	return &youtubeSource{client: client, maxResults: maxResults}
}

func (s *youtubeSource) Name() string {
	return sermondm.SourceYouTube
}

func (s *youtubeSource) Fetch(ctx context.Context) ([]sermondm.Sermon, error) {
	return s.client.FetchRecent(ctx, s.maxResults)
}

type facebookSource struct {
	client *FacebookClient
}

// NewFacebookSource adapts a FacebookClient to the VideoSource port.
func NewFacebookSource(client *FacebookClient) VideoSource {
	return &facebookSource{client: client}
}

func (s *facebookSource) Name() string {
	return sermondm.SourceFacebook
}

func (s *facebookSource) Fetch(ctx context.Context) ([]sermondm.Sermon, error) {
	return s.client.FetchAll(ctx)
}

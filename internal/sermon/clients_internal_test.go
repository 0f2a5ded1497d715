package sermon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
)

var _ = Describe("YouTubeClient", func() {
	var (
		server *httptest.Server
		client *YouTubeClient
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	AfterEach(func() {
		server.Close()
	})

	Context("FetchRecent", func() {
		It("should map search items to sermons", func() {
			var query map[string][]string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{
							"id": map[string]any{"videoId": "abc123"},
							"snippet": map[string]any{
								"title":       "Sunday Service",
								"description": "Live from the sanctuary",
								"publishedAt": "2025-06-01T11:00:00Z",
								"thumbnails": map[string]any{
									"high": map[string]any{"url": "https://img.example/abc123.jpg"},
								},
							},
						},
						// Items without a videoId (channel results) are skipped
						{"id": map[string]any{}, "snippet": map[string]any{"title": "noise"}},
					},
				})
			}))
			client = NewYouTubeClient("test-key", "UCchannel", logger)
			client.searchURL = server.URL

			sermons, err := client.FetchRecent(context.Background(), 5)

			Expect(err).ToNot(HaveOccurred())
			Expect(sermons).To(HaveLen(1))
			Expect(sermons[0].VideoID).To(Equal("abc123"))
			Expect(sermons[0].Title).To(Equal("Sunday Service"))
			Expect(sermons[0].Thumbnail).To(Equal("https://img.example/abc123.jpg"))
			Expect(sermons[0].Source).To(Equal(sermondm.SourceYouTube))

			Expect(query["key"]).To(ConsistOf("test-key"))
			Expect(query["channelId"]).To(ConsistOf("UCchannel"))
			Expect(query["order"]).To(ConsistOf("date"))
			Expect(query["maxResults"]).To(ConsistOf("5"))
		})

		It("should surface a non-200 status", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			client = NewYouTubeClient("bad-key", "UCchannel", logger)
			client.searchURL = server.URL

			_, err := client.FetchRecent(context.Background(), 5)

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("403"))
		})
	})

	Context("IsLive", func() {
		It("should report live when the live search has items", func() {
			var eventType string
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				eventType = r.URL.Query().Get("eventType")
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{
						{"id": map[string]any{"videoId": "live123"}},
					},
				})
			}))
			client = NewYouTubeClient("test-key", "UCchannel", logger)
			client.searchURL = server.URL

			live, err := client.IsLive(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(live).To(BeTrue())
			Expect(eventType).To(Equal("live"))
		})

		It("should report offline when the live search is empty", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}))
			client = NewYouTubeClient("test-key", "UCchannel", logger)
			client.searchURL = server.URL

			live, err := client.IsLive(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(live).To(BeFalse())
		})
	})
})

var _ = Describe("FacebookClient", func() {
	var (
		server *httptest.Server
		client *FacebookClient
	)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	AfterEach(func() {
		server.Close()
	})

	Context("FetchAll", func() {
		It("should walk every page and default empty titles", func() {
			mux := http.NewServeMux()
			mux.HandleFunc("/page-1/videos", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{
							"id":            "fb-1",
							"title":         "Sunday Service",
							"created_time":  "2025-06-01T11:00:00+0000",
							"permalink_url": "/page-1/videos/fb-1",
							"thumbnails": map[string]any{
								"data": []map[string]any{{"uri": "https://img.example/fb-1.jpg"}},
							},
						},
					},
					"paging": map[string]any{"next": fmt.Sprintf("http://%s/second-page", r.Host)},
				})
			})
			mux.HandleFunc("/second-page", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{
						{"id": "fb-2", "title": "", "created_time": "2025-05-25T11:00:00+0000"},
					},
				})
			})
			server = httptest.NewServer(mux)
			client = NewFacebookClient("page-1", "token", logger)
			client.graphURL = server.URL

			sermons, err := client.FetchAll(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(sermons).To(HaveLen(2))
			Expect(sermons[0].VideoID).To(Equal("fb-1"))
			Expect(sermons[0].Thumbnail).To(Equal("https://img.example/fb-1.jpg"))
			Expect(sermons[0].Source).To(Equal(sermondm.SourceFacebook))
			Expect(sermons[1].VideoID).To(Equal("fb-2"))
			Expect(sermons[1].Title).To(Equal("Untitled Sermon"))
		})
	})

	Context("IsLive", func() {
		It("should report live when a LIVE_NOW video exists", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/page-1/live_videos"))
				Expect(r.URL.Query().Get("status")).To(Equal("LIVE_NOW"))
				json.NewEncoder(w).Encode(map[string]any{
					"data": []map[string]any{{"id": "live-1", "status": "LIVE_NOW"}},
				})
			}))
			client = NewFacebookClient("page-1", "token", logger)
			client.graphURL = server.URL

			live, err := client.IsLive(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(live).To(BeTrue())
		})

		It("should report offline on an empty list", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			}))
			client = NewFacebookClient("page-1", "token", logger)
			client.graphURL = server.URL

			live, err := client.IsLive(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(live).To(BeFalse())
		})
	})
})

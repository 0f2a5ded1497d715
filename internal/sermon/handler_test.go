package sermon_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
	sermonPkg "github.com/gracechapel/church-backend/internal/sermon"
)

var errTestDatabase = errors.New("database error")

var _ = Describe("SermonHandler", func() {
	var (
		mockRepo *mockSermonRepository
		handler  *sermonPkg.Handler
	)

	BeforeEach(func() {
		mockRepo = newMockSermonRepository()
		service := sermonPkg.NewService(mockRepo, nil, testLogger())
		handler = sermonPkg.NewHandler(service, testLogger())
	})

	Describe("List", func() {
		Context("when the mirror has sermons", func() {
			It("should return the page with totals", func() {
				// Given
				for _, id := range []string{"v1", "v2", "v3"} {
					mockRepo.byVideoID[id] = sermondm.Sermon{VideoID: id, Source: sermondm.SourceYouTube}
					mockRepo.order = append(mockRepo.order, id)
				}

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/sermons?page=1&limit=2", nil)
				rec := httptest.NewRecorder()
				handler.List(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				var resp sermonPkg.ListResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Sermons).To(HaveLen(2))
				Expect(resp.Total).To(Equal(int64(3)))
				Expect(resp.Page).To(Equal(1))
				Expect(resp.Limit).To(Equal(2))
			})
		})

		Context("when the mirror is empty", func() {
			It("should return an empty array, not null", func() {
				// When
				req := httptest.NewRequest(http.MethodGet, "/api/sermons", nil)
				rec := httptest.NewRecorder()
				handler.List(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(ContainSubstring(`"sermons":[]`))
			})
		})

		Context("when the repository fails", func() {
			It("should return 500 with an error body", func() {
				// Given
				mockRepo.listError = errTestDatabase

				// When
				req := httptest.NewRequest(http.MethodGet, "/api/sermons", nil)
				rec := httptest.NewRecorder()
				handler.List(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				Expect(rec.Body.String()).To(ContainSubstring("Failed to fetch sermons"))
			})
		})

		Context("with malformed paging parameters", func() {
			It("should fall back to the defaults", func() {
				// When
				req := httptest.NewRequest(http.MethodGet, "/api/sermons?page=abc&limit=-4", nil)
				rec := httptest.NewRecorder()
				handler.List(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
				var resp sermonPkg.ListResponse
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Page).To(Equal(1))
				Expect(resp.Limit).To(Equal(9))
			})
		})
	})

	Describe("Refresh", func() {
		Context("when every source syncs", func() {
			It("should return 200", func() {
				// When
				req := httptest.NewRequest(http.MethodPost, "/api/sermons/refresh", nil)
				rec := httptest.NewRecorder()
				handler.Refresh(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusOK))
			})
		})

		Context("when the sync fails", func() {
			It("should return 500 with an error body", func() {
				// Given a healthy source but a failing upsert
				mockRepo.upsertError = errTestDatabase
				source := &mockVideoSource{name: "youtube", sermons: []sermondm.Sermon{
					{VideoID: "yt-1", Source: sermondm.SourceYouTube},
				}}
				service := sermonPkg.NewService(mockRepo, []sermonPkg.VideoSource{source}, testLogger())
				failing := sermonPkg.NewHandler(service, testLogger())

				// When
				req := httptest.NewRequest(http.MethodPost, "/api/sermons/refresh", nil)
				rec := httptest.NewRecorder()
				failing.Refresh(rec, req)

				// Then
				Expect(rec.Code).To(Equal(http.StatusInternalServerError))
				Expect(rec.Body.String()).To(ContainSubstring("Failed to refresh sermons"))
			})
		})
	})
})

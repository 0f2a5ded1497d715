package livestatus_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gracechapel/church-backend/internal/livestatus"
)

func TestLiveStatus(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Live Status Suite")
}

// Mock checker for testing
type mockChecker struct {
	mu   sync.Mutex
	live bool
	err  error
}

func (m *mockChecker) IsLive(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.live, nil
}

func (m *mockChecker) set(live bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = live
	m.err = err
}

var _ = Describe("Poller", func() {
	var (
		youtube  *mockChecker
		facebook *mockChecker
		poller   *livestatus.Poller
		logger   *slog.Logger
		ctx      context.Context
		cancel   context.CancelFunc
	)

	BeforeEach(func() {
		youtube = &mockChecker{}
		facebook = &mockChecker{}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		poller = livestatus.NewPoller(youtube, facebook, 10*time.Millisecond, logger)
		ctx, cancel = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		cancel()
	})

	Context("before the first poll", func() {
		It("should report both platforms offline", func() {
			status := poller.Status()

			Expect(status.YouTubeLive).To(BeFalse())
			Expect(status.FacebookLive).To(BeFalse())
		})
	})

	Context("when a platform goes live", func() {
		It("should pick up the change on the next tick", func() {
			youtube.set(true, nil)
			poller.Start(ctx)

			Eventually(func() bool {
				return poller.Status().YouTubeLive
			}).Should(BeTrue())
			Expect(poller.Status().FacebookLive).To(BeFalse())

			facebook.set(true, nil)
			Eventually(func() bool {
				return poller.Status().FacebookLive
			}).Should(BeTrue())
		})
	})

	Context("when a check fails", func() {
		It("should keep the previous value instead of flapping offline", func() {
			youtube.set(true, nil)
			poller.Start(ctx)

			Eventually(func() bool {
				return poller.Status().YouTubeLive
			}).Should(BeTrue())

			// The API starts erroring; the flag must hold
			youtube.set(false, errors.New("quota exceeded"))
			Consistently(func() bool {
				return poller.Status().YouTubeLive
			}, 100*time.Millisecond).Should(BeTrue())
		})
	})
})

var _ = Describe("StatusHandler", func() {
	It("should serve the current snapshot", func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		poller := livestatus.NewPoller(nil, nil, time.Minute, logger)
		handler := livestatus.NewHandler(poller, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/live-status", nil)
		rec := httptest.NewRecorder()
		handler.Status(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`{"youtube":{"isLive":false},"facebook":{"isLive":false}}`))
	})
})

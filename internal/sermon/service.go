package sermon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sermondm "github.com/gracechapel/church-backend/internal/core/datamodel/sermon"
)

const (
	defaultPageSize = 9
	maxPageSize     = 50

	fetchAttempts   = 3
	fetchRetryDelay = time.Second
)

// SermonRepository is the persistence port for mirrored sermons.
type SermonRepository interface {
	// BulkUpsert inserts sermons keyed by external video id, skipping ones
	// already mirrored. Returns the number of new rows.
	BulkUpsert(sermons []sermondm.Sermon) (int64, error)
	List(offset, limit int) ([]sermondm.Sermon, error)
	Count() (int64, error)
}

// VideoSource is one platform the mirror pulls from.
type VideoSource interface {
	Name() string
	Fetch(ctx context.Context) ([]sermondm.Sermon, error)
}

// Service owns the mirror: periodic sync from each source plus the paginated
// read path.
type Service struct {
	repo    SermonRepository
	sources []VideoSource
	logger  *slog.Logger
}

func NewService(repo SermonRepository, sources []VideoSource, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		sources: sources,
		logger:  logger,
	}
}

// Sync pulls every source and upserts the results. One failing source does
// not stop the others; the first error is returned once all sources ran.
func (s *Service) Sync(ctx context.Context) error {
	var firstErr error

	for _, source := range s.sources {
		sermons, err := fetchWithRetry(ctx, source, s.logger)
		if err != nil {
			s.logger.Error("sermon fetch failed", "source", source.Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("sync %s: %w", source.Name(), err)
			}
			continue
		}

		if len(sermons) == 0 {
			s.logger.Info("no sermons fetched", "source", source.Name())
			continue
		}

		inserted, err := s.repo.BulkUpsert(sermons)
		if err != nil {
			s.logger.Error("sermon upsert failed", "source", source.Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("upsert %s: %w", source.Name(), err)
			}
			continue
		}

		s.logger.Info("sermons synced",
			"source", source.Name(),
			"fetched", len(sermons),
			"new", inserted)
	}

	return firstErr
}

// fetchWithRetry retries a source with linear backoff, respecting ctx.
func fetchWithRetry(ctx context.Context, source VideoSource, logger *slog.Logger) ([]sermondm.Sermon, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		sermons, err := source.Fetch(ctx)
		if err == nil {
			return sermons, nil
		}
		lastErr = err

		if attempt < fetchAttempts {
			logger.Warn("sermon fetch retrying",
				"source", source.Name(),
				"attempt", attempt,
				"error", err)
			select {
			case <-time.After(fetchRetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// List returns one page of sermons, newest first, plus the total count.
// Page numbers start at 1; limit is clamped to keep responses bounded.
func (s *Service) List(ctx context.Context, page, limit int) ([]sermondm.Sermon, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	sermons, err := s.repo.List((page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count()
	if err != nil {
		return nil, 0, err
	}

	return sermons, total, nil
}

// Count exposes the mirror size, used at startup to decide on an initial sync.
func (s *Service) Count() (int64, error) {
	return s.repo.Count()
}

// Package livestatus owns the "is a livestream running" flags. The poller is
// the only writer; everything else reads a snapshot through the getter, so
// there is no ambient mutable state.
package livestatus

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LiveChecker reports whether a platform is currently streaming.
type LiveChecker interface {
	IsLive(ctx context.Context) (bool, error)
}

// Status is a point-in-time snapshot of both platforms.
type Status struct {
	YouTubeLive  bool
	FacebookLive bool
}

type Poller struct {
	youtube  LiveChecker
	facebook LiveChecker
	interval time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	status Status
}

func NewPoller(youtube, facebook LiveChecker, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Poller{
		youtube:  youtube,
		facebook: facebook,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the poll loop until ctx is cancelled. One immediate check first
// so the flags are meaningful before the first tick.
func (p *Poller) Start(ctx context.Context) {
	go func() {
		p.poll(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.poll(ctx)
			case <-ctx.Done():
				p.logger.Info("live status poller stopped")
				return
			}
		}
	}()
}

// poll refreshes both flags. A failed check keeps the previous value rather
// than flapping to offline on a transient API error.
func (p *Poller) poll(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	prev := p.Status()
	next := prev

	if p.youtube != nil {
		if live, err := p.youtube.IsLive(checkCtx); err != nil {
			p.logger.Warn("youtube live check failed", "error", err)
		} else {
			next.YouTubeLive = live
		}
	}

	if p.facebook != nil {
		if live, err := p.facebook.IsLive(checkCtx); err != nil {
			p.logger.Warn("facebook live check failed", "error", err)
		} else {
			next.FacebookLive = live
		}
	}

	if next.YouTubeLive != prev.YouTubeLive {
		p.logger.Info("youtube live status changed", "is_live", next.YouTubeLive)
	}
	if next.FacebookLive != prev.FacebookLive {
		p.logger.Info("facebook live status changed", "is_live", next.FacebookLive)
	}

	p.mu.Lock()
	p.status = next
	p.mu.Unlock()
}

// Status returns the latest snapshot.
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// DraftSource fetches not-yet-ingested drafts from a polling channel.
type DraftSource interface {
	Channel() channel.Code
	// FetchDrafts returns the drafts of the [since, to) window. Records
	// the source could not parse are skipped and logged by the source.
	FetchDrafts(ctx context.Context, since, to time.Time) ([]*channel.OrderDraft, error)
}

// Poller drives a polling channel: each run fetches the lookback window and
// ingests every draft sequentially. Duplicates are expected on overlapping
// windows and are skipped quietly.
type Poller struct {
	source  DraftSource
	service *Service
	window  time.Duration
	logger  *zap.Logger
}

// NewPoller creates a poller over a draft source
func NewPoller(source DraftSource, service *Service, window time.Duration, logger *zap.Logger) *Poller {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Poller{source: source, service: service, window: window, logger: logger}
}

// PollOnce fetches and ingests one window, returning how many new orders
// were committed.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	to := time.Now().UTC()
	since := to.Add(-p.window)

	drafts, err := p.source.FetchDrafts(ctx, since, to)
	if err != nil {
		return 0, err
	}

	committed := 0
	for _, draft := range drafts {
		result, err := p.service.IngestDraft(ctx, draft)
		if err != nil {
			if errors.Is(err, ErrDuplicateOrder) {
				continue
			}
			p.logger.Error("polled draft ingestion failed",
				zap.String("channel", p.source.Channel().String()),
				zap.String("external_order_id", draft.ExternalOrderID),
				zap.Error(err),
			)
			continue
		}
		if result.Commit.Succeeded() {
			committed++
		}
		p.service.Dispatch(ctx, result)
	}

	p.logger.Info("poll window processed",
		zap.String("channel", p.source.Channel().String()),
		zap.Int("fetched", len(drafts)),
		zap.Int("committed", committed),
	)
	return committed, nil
}

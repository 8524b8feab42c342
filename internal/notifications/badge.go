package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tiendashop/storefront-go/internal/poller"
)

// Badge keeps the unread-notification counter fresh on an interval. Fetch
// failures keep the last known value.
type Badge struct {
	svc    *Service
	logger *slog.Logger
	poller *poller.Poller

	mu    sync.Mutex
	count int
}

func NewBadge(svc *Service, interval time.Duration, logger *slog.Logger) *Badge {
	b := &Badge{svc: svc, logger: logger}
	b.poller = poller.New(interval, b.refresh)
	return b
}

func (b *Badge) Start(ctx context.Context) {
	b.poller.Start(ctx)
}

func (b *Badge) Stop() {
	b.poller.Stop()
}

func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Badge) refresh(ctx context.Context) {
	count, err := b.svc.UnreadCount(ctx)
	if err != nil {
		b.logger.Warn("badge refresh failed", "error", err)
		return
	}

	b.mu.Lock()
	b.count = count
	b.mu.Unlock()
}

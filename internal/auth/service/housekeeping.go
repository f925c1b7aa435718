package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/solsticehq/solstice/internal/auth/store"
)

// Housekeeping defaults. Retention keeps consumed-or-expired rows around
// briefly for debugging before they are purged.
const (
	DefaultHousekeepingInterval = 1 * time.Hour
	DefaultTokenRetention       = 24 * time.Hour
)

// HousekeepingService periodically purges stale action tokens. Expired
// tokens already read as invalid; this reclaims the rows.
type HousekeepingService struct {
	store     store.Store
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	if retention <= 0 {
		retention = DefaultTokenRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HousekeepingService{
		store:     st,
		logger:    logger,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run blocks, sweeping on the configured interval until the context is
// cancelled. One sweep runs immediately at startup.
func (s *HousekeepingService) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HousekeepingService) sweep(ctx context.Context) {
	if err := s.store.ActionTokens().PurgeStaleTokens(ctx, s.now(), s.retention); err != nil {
		s.logger.ErrorContext(ctx, "token purge failed", slog.Any("error", err))
		return
	}
	s.logger.DebugContext(ctx, "token purge completed")
}

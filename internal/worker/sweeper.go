// Package worker holds background loops that run alongside the HTTP
// server.  The expiry sweeper is an optimization: every read and write
// path already expires overdue holds lazily, so the sweeper only keeps
// availability fresh on routes nobody is currently looking at.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andikarp/bus-ticketing/internal/metrics"
	"github.com/andikarp/bus-ticketing/internal/repository"
)

// RunExpirySweeper cancels overdue pending tickets on a fixed cadence
// until ctx is done.  The underlying statement is idempotent, so the
// sweeper racing a lazy expiry in a request path is harmless.
func RunExpirySweeper(ctx context.Context, tickets *repository.TicketRepo, interval time.Duration) {
	if interval <= 0 {
		zap.L().Info("expiry sweeper disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("expiry sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			expired, err := tickets.ExpireOverdueAll(ctx)
			if err != nil {
				zap.L().Error("expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				metrics.TicketsExpiredTotal.Add(float64(expired))
				zap.L().Info("expired overdue tickets", zap.Int64("count", expired))
			}
		}
	}
}

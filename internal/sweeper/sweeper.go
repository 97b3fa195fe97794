// Package sweeper purges checkout artifacts that never reached commit.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-checkout/internal/clock"
	"github.com/Shivanand-hulikatti/event-checkout/internal/metrics"
	"github.com/Shivanand-hulikatti/event-checkout/internal/repository"
)

// Table names used in reports, logs and metrics.
const (
	TableRegistrations = "registrations"
	TableCarts         = "carts"
	TableOrders        = "orders"
	TablePayments      = "payments"
)

// Report counts the rows deleted by one sweep. Failed lists the tables
// whose sweep query failed.
type Report struct {
	DeletedRegistrations int64    `json:"deleted_registrations"`
	DeletedCarts         int64    `json:"deleted_carts"`
	DeletedOrders        int64    `json:"deleted_orders"`
	DeletedPayments      int64    `json:"deleted_payments"`
	Failed               []string `json:"failed,omitempty"`
}

// Sweeper deletes registrations, carts, orders and payments left behind by
// abandoned checkouts once they are older than the TTL.
type Sweeper struct {
	sweeps repository.SweepRepository
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a Sweeper.
func New(sweeps repository.SweepRepository, clk clock.Clock, ttl time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{sweeps: sweeps, clock: clk, ttl: ttl, logger: logger}
}

// RunExpirySweep runs the four sweep queries in dependency order. A failing
// query is logged and does not stop the others.
func (s *Sweeper) RunExpirySweep(ctx context.Context) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.clock.Now().Add(-s.ttl)
	var report Report
	queries := []struct {
		table string
		run   func(context.Context, time.Time) (int64, error)
		out   *int64
	}{
		{TableRegistrations, s.sweeps.DeleteExpiredRegistrations, &report.DeletedRegistrations},
		{TableCarts, s.sweeps.DeleteOrphanedCarts, &report.DeletedCarts},
		{TableOrders, s.sweeps.DeleteOrphanedOrders, &report.DeletedOrders},
		{TablePayments, s.sweeps.DeleteOrphanedPayments, &report.DeletedPayments},
	}
	for _, q := range queries {
		n, err := q.run(ctx, before)
		if err != nil {
			metrics.SweepErrors.WithLabelValues(q.table).Inc()
			report.Failed = append(report.Failed, q.table)
			s.logger.ErrorContext(ctx, "expiry sweep failed",
				slog.String("table", q.table),
				slog.String("error", err.Error()),
			)
			continue
		}
		*q.out = n
		metrics.SweepDeleted.WithLabelValues(q.table).Add(float64(n))
		s.logger.InfoContext(ctx, "expiry sweep finished",
			slog.String("table", q.table),
			slog.Int64("deleted", n),
		)
	}
	return report
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "expiry sweeper started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", s.ttl),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "expiry sweeper stopped")
			return nil
		case <-ticker.C:
			s.RunExpirySweep(ctx)
		}
	}
}

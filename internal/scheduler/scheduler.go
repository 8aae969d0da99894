// Package scheduler runs periodic ledger maintenance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mfs-core/mfs_ledger/internal/ledger"
)

const auditTimeout = 30 * time.Second

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	ledger ledger.Ledger
	logger *slog.Logger
}

// New registers the ledger audit on auditSpec, a six-field cron expression
// (seconds first) evaluated in UTC.
func New(l ledger.Ledger, auditSpec string, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)
	s := &Scheduler{cron: c, ledger: l, logger: logger}
	if _, err := c.AddFunc(auditSpec, s.auditJob); err != nil {
		return nil, fmt.Errorf("schedule ledger audit %q: %w", auditSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) auditJob() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	_, _ = s.Audit(ctx)
}

// Audit checks the ledger invariants once and logs the outcome.
func (s *Scheduler) Audit(ctx context.Context) (ledger.AuditReport, error) {
	report, err := s.ledger.Audit(ctx)
	if err != nil {
		s.logger.Error("ledger audit failed", slog.Any("error", err))
		return report, err
	}
	attrs := []any{
		slog.Int("wallets", report.Wallets),
		slog.Int("entries", report.Entries),
		slog.Int64("supply", report.Supply),
		slog.Int64("entry_fees", report.EntryFees),
		slog.Int64("commission_ledger", report.CommissionLedger),
	}
	if !report.Healthy() {
		attrs = append(attrs, slog.Any("negative_wallets", report.NegativeWallets))
		s.logger.Warn("ledger audit found inconsistencies", attrs...)
		return report, nil
	}
	s.logger.Info("ledger audit passed", attrs...)
	return report, nil
}

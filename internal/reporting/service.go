// Package reporting serves read-only views of the entry log: transaction
// history and commission summaries.
package reporting

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
)

// AgentSummary is the commission an agent has earned so far.
type AgentSummary struct {
	AgentID          string `json:"agent_id"`
	AgentCommission  int64  `json:"agent_commission"`
	TransactionCount int    `json:"transaction_count"`
}

// OperatorSummary breaks the operator's income down by transfer type.
type OperatorSummary struct {
	TotalCommission  int64 `json:"total_commission"`
	CashOutFee       int64 `json:"cash_out_fee"`
	SendMoneyFee     int64 `json:"send_money_fee"`
	TransactionCount int   `json:"transaction_count"`
}

type Service struct {
	ledger ledger.Ledger
	cache  summaryCache
	logger *slog.Logger
}

// NewService builds the reporting service. Summaries are cached for ttl when
// rdb is non-nil.
func NewService(l ledger.Ledger, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{ledger: l, cache: summaryCache{client: rdb, ttl: ttl}, logger: logger}
}

// MyTransactions lists entries where the caller is the source or destination.
func (s *Service) MyTransactions(ctx context.Context, caller domain.Caller, q ledger.EntryQuery) (ledger.EntryPage, error) {
	q.OwnerID = caller.PartyID
	q.Visibility = ledger.VisibilityAll
	return s.ledger.Entries(ctx, q)
}

// AllTransactions lists the whole log through the given filter.
func (s *Service) AllTransactions(ctx context.Context, q ledger.EntryQuery) (ledger.EntryPage, error) {
	return s.ledger.Entries(ctx, q)
}

// AgentCommissions lists entries that paid agentID a commission.
func (s *Service) AgentCommissions(ctx context.Context, agentID string, q ledger.EntryQuery) (ledger.EntryPage, error) {
	q.OwnerID = agentID
	q.Visibility = ledger.VisibilityAgent
	return s.ledger.Entries(ctx, q)
}

// OperatorCommissions lists entries that paid the operator.
func (s *Service) OperatorCommissions(ctx context.Context, q ledger.EntryQuery) (ledger.EntryPage, error) {
	q.OwnerID = ""
	q.Visibility = ledger.VisibilityOperator
	return s.ledger.Entries(ctx, q)
}

func (s *Service) AgentSummary(ctx context.Context, agentID string) (AgentSummary, error) {
	key := s.cache.key("agent", agentID)
	var summary AgentSummary
	if s.cached(ctx, key, &summary) {
		return summary, nil
	}

	totals, err := s.ledger.SumCommissions(ctx, ledger.EntryQuery{
		OwnerID:    agentID,
		Status:     domain.EntryCompleted,
		Visibility: ledger.VisibilityAgent,
	})
	if err != nil {
		return AgentSummary{}, err
	}
	summary = AgentSummary{
		AgentID:          agentID,
		AgentCommission:  totals.AgentCommission,
		TransactionCount: totals.Count,
	}
	s.store(ctx, key, summary)
	return summary, nil
}

func (s *Service) OperatorSummary(ctx context.Context) (OperatorSummary, error) {
	key := s.cache.key("operator", "all")
	var summary OperatorSummary
	if s.cached(ctx, key, &summary) {
		return summary, nil
	}

	totals, err := s.ledger.SumCommissions(ctx, ledger.EntryQuery{
		Status:     domain.EntryCompleted,
		Visibility: ledger.VisibilityOperator,
	})
	if err != nil {
		return OperatorSummary{}, err
	}
	summary = OperatorSummary{
		TotalCommission:  totals.OperatorCommission + totals.SystemFee,
		CashOutFee:       totals.OperatorCommission,
		SendMoneyFee:     totals.SystemFee,
		TransactionCount: totals.Count,
	}
	s.store(ctx, key, summary)
	return summary, nil
}

// cached reports a hit. Cache failures are logged and treated as misses.
func (s *Service) cached(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("summary cache read failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if err := s.cache.set(ctx, key, value); err != nil {
		s.logger.Warn("summary cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

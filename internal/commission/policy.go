// Package commission computes the fee and commission split of each transfer
// type. It performs no I/O and never mutates state.
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// Schedule holds the fee parameters. Rates are fractions of the gross amount
// (0.01 is one percent).
type Schedule struct {
	SendMoneyFee        int64
	CashOutAgentRate    decimal.Decimal
	CashOutOperatorRate decimal.Decimal
}

// DefaultSchedule is a flat 5 unit send-money fee and a 1.5% cash-out fee split
// 1% to the agent and 0.5% to the operator.
func DefaultSchedule() Schedule {
	return Schedule{
		SendMoneyFee:        5,
		CashOutAgentRate:    decimal.RequireFromString("0.01"),
		CashOutOperatorRate: decimal.RequireFromString("0.005"),
	}
}

// Policy applies a Schedule.
type Policy struct {
	schedule Schedule
}

// NewPolicy validates the schedule and builds a policy.
func NewPolicy(s Schedule) (*Policy, error) {
	if s.SendMoneyFee < 0 {
		return nil, fmt.Errorf("send money fee must not be negative")
	}
	if s.CashOutAgentRate.IsNegative() || s.CashOutOperatorRate.IsNegative() {
		return nil, fmt.Errorf("cash out rates must not be negative")
	}
	if s.CashOutAgentRate.Add(s.CashOutOperatorRate).GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("cash out rates must total less than 1")
	}
	return &Policy{schedule: s}, nil
}

// Schedule returns the fee parameters in use.
func (p *Policy) Schedule() Schedule {
	return p.schedule
}

// Split is the outcome of applying the policy to a gross amount. Net is what
// the destination party is paid for the transfer itself and is what the
// ledger entry records.
type Split struct {
	Type       domain.EntryType
	Gross      int64
	Net        int64
	Commission domain.Commission
}

// Debit is the amount taken from the source wallet.
func (s Split) Debit() int64 {
	return s.Net + s.Commission.Total()
}

// DestinationCredit is the amount credited to the destination wallet: the net
// amount plus the agent share, if any.
func (s Split) DestinationCredit() int64 {
	return s.Net + s.Commission.AgentCommission
}

// OperatorCredit is the amount routed to the operator wallet.
func (s Split) OperatorCredit() int64 {
	return s.Commission.OperatorCommission + s.Commission.SystemFee
}

// WithoutOperator drops the operator's share. The sender keeps it, so the
// debit shrinks by the same amount.
func (s Split) WithoutOperator() Split {
	s.Commission.OperatorCommission = 0
	s.Commission.SystemFee = 0
	s.Gross = s.Debit()
	return s
}

// Compute returns the split for a transfer of gross minor units.
func (p *Policy) Compute(t domain.EntryType, gross int64) (Split, error) {
	const op = "commission.Compute"
	if gross <= 0 {
		return Split{}, domain.Validation(op, "amount must be positive")
	}

	switch t {
	case domain.EntryAddMoney, domain.EntryWithdraw, domain.EntryCashIn:
		return Split{Type: t, Gross: gross, Net: gross}, nil
	case domain.EntrySendMoney:
		return p.sendMoney(gross)
	case domain.EntryCashOut:
		return p.cashOut(gross)
	default:
		return Split{}, domain.Validation(op, "unknown transfer type %q", t)
	}
}

func (p *Policy) sendMoney(gross int64) (Split, error) {
	fee := p.schedule.SendMoneyFee
	net := gross - fee
	if net <= 0 {
		return Split{}, domain.Validation("commission.Compute", "amount must be greater than the system fee of %d", fee)
	}
	return Split{
		Type:       domain.EntrySendMoney,
		Gross:      gross,
		Net:        net,
		Commission: domain.Commission{SystemFee: fee},
	}, nil
}

func (p *Policy) cashOut(gross int64) (Split, error) {
	amount := decimal.NewFromInt(gross)
	agent := share(amount, p.schedule.CashOutAgentRate)
	operator := share(amount, p.schedule.CashOutOperatorRate)
	net := gross - agent - operator
	if net <= 0 {
		return Split{}, domain.Validation("commission.Compute", "amount must be greater than the cash out commission")
	}
	return Split{
		Type:  domain.EntryCashOut,
		Gross: gross,
		Net:   net,
		Commission: domain.Commission{
			AgentCommission:    agent,
			OperatorCommission: operator,
		},
	}, nil
}

// share rounds half away from zero to whole minor units.
func share(amount, rate decimal.Decimal) int64 {
	return amount.Mul(rate).Round(0).IntPart()
}

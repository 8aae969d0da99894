// Package transfer implements the five money movements. Each transfer runs as
// one ledger unit of work: the debit, every credit, the commission totals and
// the entry commit together or not at all.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfs-core/mfs_ledger/internal/commission"
	"github.com/mfs-core/mfs_ledger/internal/domain"
	"github.com/mfs-core/mfs_ledger/internal/ledger"
	"github.com/mfs-core/mfs_ledger/internal/notification"
	"github.com/mfs-core/mfs_ledger/internal/party"
)

// PartyResolver resolves and checks the parties of a transfer.
type PartyResolver interface {
	Resolve(ctx context.Context, phone string, req party.Requirements) (party.Handle, error)
	ResolveID(ctx context.Context, partyID string, req party.Requirements) (party.Handle, error)
}

// Request is one transfer as submitted by an authenticated caller.
type Request struct {
	Type              domain.EntryType
	Caller            domain.Caller
	CounterpartyPhone string
	Amount            int64
}

// Result describes a committed transfer. Wallets holds the post-commit
// snapshot of every wallet the transfer touched, source first.
type Result struct {
	Entry      domain.Entry       `json:"entry"`
	Wallets    []domain.Wallet    `json:"wallets"`
	Commission *domain.Commission `json:"commission,omitempty"`
}

// Service orchestrates transfers over the ledger.
type Service struct {
	ledger        ledger.Ledger
	parties       PartyResolver
	policy        *commission.Policy
	operatorPhone string
	notifier      notification.Notifier
	logger        *slog.Logger
}

// NewService constructs a transfer service. operatorPhone identifies the
// SUPER_ADMIN whose wallet receives operator fees.
func NewService(l ledger.Ledger, parties PartyResolver, policy *commission.Policy, operatorPhone string, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		ledger:        l,
		parties:       parties,
		policy:        policy,
		operatorPhone: operatorPhone,
		notifier:      notifier,
		logger:        logger,
	}
}

// AddMoney moves float from an admin wallet to an approved agent.
func (s *Service) AddMoney(ctx context.Context, caller domain.Caller, agentPhone string, amount int64) (Result, error) {
	return s.Execute(ctx, Request{Type: domain.EntryAddMoney, Caller: caller, CounterpartyPhone: agentPhone, Amount: amount})
}

// Withdraw returns agent float to an admin.
func (s *Service) Withdraw(ctx context.Context, caller domain.Caller, adminPhone string, amount int64) (Result, error) {
	return s.Execute(ctx, Request{Type: domain.EntryWithdraw, Caller: caller, CounterpartyPhone: adminPhone, Amount: amount})
}

// SendMoney moves value between two users, charging the flat system fee.
func (s *Service) SendMoney(ctx context.Context, caller domain.Caller, receiverPhone string, amount int64) (Result, error) {
	return s.Execute(ctx, Request{Type: domain.EntrySendMoney, Caller: caller, CounterpartyPhone: receiverPhone, Amount: amount})
}

// CashIn credits a verified user against the agent's float.
func (s *Service) CashIn(ctx context.Context, caller domain.Caller, userPhone string, amount int64) (Result, error) {
	return s.Execute(ctx, Request{Type: domain.EntryCashIn, Caller: caller, CounterpartyPhone: userPhone, Amount: amount})
}

// CashOut pays a user out through an agent, splitting the fee between the
// agent and the operator.
func (s *Service) CashOut(ctx context.Context, caller domain.Caller, agentPhone string, amount int64) (Result, error) {
	return s.Execute(ctx, Request{Type: domain.EntryCashOut, Caller: caller, CounterpartyPhone: agentPhone, Amount: amount})
}

// participants are the resolved parties of one transfer. operator is nil when
// no operator share is routed.
type participants struct {
	source      party.Handle
	destination party.Handle
	operator    *party.Handle
}

func (p participants) walletIDs() []string {
	ids := []string{p.source.WalletID, p.destination.WalletID}
	if p.operator != nil {
		ids = append(ids, p.operator.WalletID)
	}
	return ids
}

// Execute runs one transfer end to end.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	res, err := s.execute(ctx, req)
	if err != nil {
		s.logger.Warn("transfer rejected",
			slog.String("type", string(req.Type)),
			slog.Int64("amount", req.Amount),
			slog.String("caller", req.Caller.PartyID),
			slog.String("kind", string(domain.KindOf(err))),
			slog.Any("error", err),
		)
		return Result{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("type", string(req.Type)),
		slog.Int64("amount", req.Amount),
		slog.String("entry_id", res.Entry.ID),
	)
	s.notify(ctx, res.Entry)
	return res, nil
}

func (s *Service) execute(ctx context.Context, req Request) (Result, error) {
	const op = "transfer.Execute"

	proto, split, err := s.validate(req)
	if err != nil {
		return Result{}, err
	}
	if !proto.allows(req.Caller.Role) {
		return Result{}, domain.NotEligible(op, "role %s cannot perform %s", req.Caller.Role, req.Type)
	}

	parts, split, err := s.resolve(ctx, req, proto, split)
	if err != nil {
		return Result{}, failed(op, err)
	}

	var res Result
	err = s.ledger.RunInTx(ctx, parts.walletIDs(), func(tx ledger.Tx) error {
		var err error
		res, err = s.apply(ctx, tx, req, proto, parts, split)
		return err
	})
	if err != nil {
		return Result{}, failed(op, err)
	}
	return res, nil
}

// validate checks the request shape and computes the fee split. It never
// touches storage.
func (s *Service) validate(req Request) (protocol, commission.Split, error) {
	const op = "transfer.validate"
	proto, ok := protocols[req.Type]
	if !ok {
		return protocol{}, commission.Split{}, domain.Validation(op, "unknown transfer type %q", req.Type)
	}
	if req.Caller.PartyID == "" {
		return protocol{}, commission.Split{}, domain.Validation(op, "caller is required")
	}
	if strings.TrimSpace(req.CounterpartyPhone) == "" {
		return protocol{}, commission.Split{}, domain.Validation(op, "phone is required")
	}
	if req.Amount <= 0 {
		return protocol{}, commission.Split{}, domain.Validation(op, "amount must be positive")
	}
	split, err := s.policy.Compute(req.Type, req.Amount)
	if err != nil {
		return protocol{}, commission.Split{}, err
	}
	return proto, split, nil
}

// resolve looks up the caller, the counterparty and, when a fee is routed to
// it, the operator. A missing operator leaves its share with the sender.
func (s *Service) resolve(ctx context.Context, req Request, proto protocol, split commission.Split) (participants, commission.Split, error) {
	const op = "transfer.resolve"
	var parts participants
	var err error

	parts.source, err = s.parties.ResolveID(ctx, req.Caller.PartyID, proto.source)
	if err != nil {
		return participants{}, split, err
	}
	parts.destination, err = s.parties.Resolve(ctx, strings.TrimSpace(req.CounterpartyPhone), proto.destination)
	if err != nil {
		return participants{}, split, err
	}
	if parts.source.WalletID == parts.destination.WalletID {
		return participants{}, split, domain.Validation(op, "cannot transfer to your own wallet")
	}

	if split.OperatorCredit() == 0 {
		return parts, split, nil
	}
	operator, err := s.operator(ctx)
	if err != nil {
		return participants{}, split, err
	}
	if operator == nil || operator.WalletID == parts.source.WalletID {
		s.logger.Warn("operator not provisioned, fee retained by sender",
			slog.String("type", string(req.Type)),
			slog.Int64("fee", split.OperatorCredit()),
		)
		return parts, split.WithoutOperator(), nil
	}
	parts.operator = operator
	return parts, split, nil
}

func (s *Service) operator(ctx context.Context) (*party.Handle, error) {
	if s.operatorPhone == "" {
		return nil, nil
	}
	h, err := s.parties.Resolve(ctx, s.operatorPhone, party.Requirements{Roles: []domain.Role{domain.RoleSuperAdmin}})
	if errors.Is(err, domain.ErrPartyNotEligible) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// apply performs every mutation of the transfer inside the unit of work.
func (s *Service) apply(ctx context.Context, tx ledger.Tx, req Request, proto protocol, parts participants, split commission.Split) (Result, error) {
	const op = "transfer.apply"

	if proto.sourceActive {
		if err := requireActive(ctx, tx, op, parts.source); err != nil {
			return Result{}, err
		}
	}
	if proto.destActive {
		if err := requireActive(ctx, tx, op, parts.destination); err != nil {
			return Result{}, err
		}
	}

	src, err := tx.Debit(ctx, parts.source.WalletID, split.Debit())
	if err != nil {
		return Result{}, err
	}
	dst, err := tx.Credit(ctx, parts.destination.WalletID, split.DestinationCredit())
	if err != nil {
		return Result{}, err
	}
	wallets := []domain.Wallet{src, dst}

	if err := tx.AddCommission(ctx, parts.destination.PartyID, split.Commission.AgentCommission); err != nil {
		return Result{}, err
	}
	if parts.operator != nil {
		opWallet, err := tx.Credit(ctx, parts.operator.WalletID, split.OperatorCredit())
		if err != nil {
			return Result{}, err
		}
		wallets = append(wallets, opWallet)
		if err := tx.AddCommission(ctx, parts.operator.PartyID, split.OperatorCredit()); err != nil {
			return Result{}, err
		}
	}

	entry, err := tx.Append(ctx, domain.Entry{
		FromOwnerID:  parts.source.PartyID,
		ToOwnerID:    parts.destination.PartyID,
		FromWalletID: parts.source.WalletID,
		ToWalletID:   parts.destination.WalletID,
		Amount:       split.Net,
		Type:         req.Type,
		InitiatedBy:  parts.source.Role.Initiator(),
		Status:       domain.EntryCompleted,
		Commission:   split.Commission,
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Entry: entry, Wallets: wallets}
	if !split.Commission.IsZero() {
		c := split.Commission
		res.Commission = &c
	}
	return res, nil
}

func requireActive(ctx context.Context, tx ledger.Tx, op string, h party.Handle) error {
	w, err := tx.Wallet(ctx, h.WalletID)
	if err != nil {
		return err
	}
	if !w.Active() {
		return domain.NotEligible(op, "wallet of %s is %s", h.Phone, w.Status)
	}
	return nil
}

// failed keeps classified errors as they are and reports anything else as a
// failed transfer.
func failed(op string, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.TransferFailed(op, err)
}

func (s *Service) notify(ctx context.Context, e domain.Entry) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindFor(e.Type),
		Destination: e.ToOwnerID,
		EntryID:     e.ID,
		Body:        fmt.Sprintf("You received %d from %s", e.Amount, e.FromOwnerID),
	})
	if err != nil {
		s.logger.Warn("notification failed", slog.String("entry_id", e.ID), slog.Any("error", err))
	}
}

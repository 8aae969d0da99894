package auth

import (
	"context"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// Authenticator checks a phone and PIN pair.
type Authenticator interface {
	Authenticate(ctx context.Context, phone, pin string) (domain.Party, error)
}

// Service issues access tokens for authenticated parties.
type Service struct {
	parties Authenticator
	tokens  *Issuer
}

func NewService(parties Authenticator, tokens *Issuer) *Service {
	return &Service{parties: parties, tokens: tokens}
}

// Session is the result of a successful login.
type Session struct {
	PartyID     string      `json:"party_id"`
	Role        domain.Role `json:"role"`
	WalletID    string      `json:"wallet_id,omitempty"`
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
}

// Login validates credentials and issues an access token.
func (s *Service) Login(ctx context.Context, phone, pin string) (Session, error) {
	p, err := s.parties.Authenticate(ctx, phone, pin)
	if err != nil {
		return Session{}, err
	}
	token, ttl, err := s.tokens.Issue(p)
	if err != nil {
		return Session{}, err
	}
	return Session{
		PartyID:     p.ID,
		Role:        p.Role,
		WalletID:    p.WalletID,
		AccessToken: token,
		ExpiresIn:   int64(ttl.Seconds()),
	}, nil
}

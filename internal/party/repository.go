package party

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

var (
	// ErrNotFound is returned when no party matches the lookup.
	ErrNotFound = errors.New("party not found")
	// ErrExists is returned when the phone number is already registered.
	ErrExists = errors.New("party already exists")
)

// Repository persists parties.
type Repository interface {
	Create(ctx context.Context, p domain.Party) error
	FindByID(ctx context.Context, id string) (domain.Party, error)
	FindByPhone(ctx context.Context, phone string) (domain.Party, error)
	// Update stores the mutable onboarding fields of p. CommissionTotal is
	// owned by the ledger and is never written here.
	Update(ctx context.Context, p domain.Party) error
}

const partyColumns = `id, name, phone, email, role, status, verified, deleted, approval,
        commission_total, COALESCE(wallet_id, ''), pin_hash, created_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed party repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new party.
func (r *PostgresRepository) Create(ctx context.Context, p domain.Party) error {
	_, err := r.db.Exec(ctx, `INSERT INTO parties (id, name, phone, email, role, status, verified, deleted, approval, pin_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Phone, p.Email, string(p.Role), string(p.Status), p.Verified, p.Deleted,
		string(p.Approval), p.PINHash, p.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("phone %s: %w", p.Phone, ErrExists)
		}
		return err
	}
	return nil
}

// FindByID fetches a party by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (domain.Party, error) {
	return scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE id = $1`, id))
}

// FindByPhone fetches a party by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (domain.Party, error) {
	return scanParty(r.db.QueryRow(ctx, `SELECT `+partyColumns+` FROM parties WHERE phone = $1`, phone))
}

// Update writes the onboarding state of a party.
func (r *PostgresRepository) Update(ctx context.Context, p domain.Party) error {
	var walletID any
	if p.WalletID != "" {
		walletID = p.WalletID
	}
	cmd, err := r.db.Exec(ctx, `UPDATE parties SET name = $2, email = $3, status = $4, verified = $5,
        deleted = $6, approval = $7, wallet_id = $8 WHERE id = $1`,
		p.ID, p.Name, p.Email, string(p.Status), p.Verified, p.Deleted, string(p.Approval), walletID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanParty(row pgx.Row) (domain.Party, error) {
	var (
		p                      domain.Party
		role, status, approval string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &role, &status, &p.Verified, &p.Deleted, &approval,
		&p.CommissionTotal, &p.WalletID, &p.PINHash, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Party{}, ErrNotFound
		}
		return domain.Party{}, err
	}
	p.Role = domain.Role(role)
	p.Status = domain.PartyStatus(status)
	p.Approval = domain.Approval(approval)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

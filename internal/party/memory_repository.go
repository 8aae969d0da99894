package party

import (
	"context"
	"fmt"
	"sync"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

type memoryRepository struct {
	mu      sync.RWMutex
	parties map[string]domain.Party
	phones  map[string]string
}

// NewMemoryRepository builds an in-memory party store for tests and development.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		parties: make(map[string]domain.Party),
		phones:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, p domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.phones[p.Phone]; exists {
		return fmt.Errorf("phone %s: %w", p.Phone, ErrExists)
	}
	if _, exists := r.parties[p.ID]; exists {
		return fmt.Errorf("id %s: %w", p.ID, ErrExists)
	}
	r.parties[p.ID] = p
	r.phones[p.Phone] = p.ID
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (domain.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parties[id]
	if !ok {
		return domain.Party{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) FindByPhone(ctx context.Context, phone string) (domain.Party, error) {
	r.mu.RLock()
	id, ok := r.phones[phone]
	r.mu.RUnlock()
	if !ok {
		return domain.Party{}, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memoryRepository) Update(_ context.Context, p domain.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.parties[p.ID]
	if !ok {
		return ErrNotFound
	}
	current.Name = p.Name
	current.Email = p.Email
	current.Status = p.Status
	current.Verified = p.Verified
	current.Deleted = p.Deleted
	current.Approval = p.Approval
	current.WalletID = p.WalletID
	r.parties[p.ID] = current
	return nil
}

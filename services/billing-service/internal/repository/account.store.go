package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pulsetrack/services/billing-service/internal/domain"
	"pulsetrack/shared/utils/cache"
	xerrors "pulsetrack/shared/utils/errors"
)

const accountNamespace = "billing:account"

// AccountStore keeps one account per patient id.
type AccountStore interface {
	// GetOrCreate stores acc unless an account for acc.PatientID exists, and
	// returns whichever account is stored. created reports which case won.
	GetOrCreate(ctx context.Context, acc domain.Account) (stored domain.Account, created bool, err error)
	Get(ctx context.Context, patientID string) (domain.Account, error)
}

type redisStore struct {
	cache *cache.Cache
}

// NewRedisStore keys accounts as billing:account:<patientId>.
func NewRedisStore(c *cache.Cache) AccountStore {
	return &redisStore{cache: c}
}

func (s *redisStore) GetOrCreate(ctx context.Context, acc domain.Account) (domain.Account, bool, error) {
	raw, err := json.Marshal(acc)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("encode account: %w", err)
	}
	ok, err := s.cache.SetNX(ctx, accountNamespace, acc.PatientID, raw, 0)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("store account: %w", err)
	}
	if ok {
		return acc, true, nil
	}
	existing, err := s.Get(ctx, acc.PatientID)
	return existing, false, err
}

func (s *redisStore) Get(ctx context.Context, patientID string) (domain.Account, error) {
	raw, err := s.cache.Get(ctx, accountNamespace, patientID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return domain.Account{}, xerrors.ErrNotFound
		}
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	var acc domain.Account
	if err := json.Unmarshal([]byte(raw), &acc); err != nil {
		return domain.Account{}, fmt.Errorf("decode account: %w", err)
	}
	return acc, nil
}

type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

// NewMemoryStore is used when redis is unreachable and in tests. Accounts do
// not survive a restart.
func NewMemoryStore() AccountStore {
	return &memoryStore{accounts: make(map[string]domain.Account)}
}

func (s *memoryStore) GetOrCreate(ctx context.Context, acc domain.Account) (domain.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.accounts[acc.PatientID]; ok {
		return existing, false, nil
	}
	s.accounts[acc.PatientID] = acc
	return acc, true, nil
}

func (s *memoryStore) Get(ctx context.Context, patientID string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[patientID]
	if !ok {
		return domain.Account{}, xerrors.ErrNotFound
	}
	return acc, nil
}

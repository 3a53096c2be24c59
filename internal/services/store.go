package services

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"flipball-backend/internal/models"
)

const (
	// maxLedgerRetries bounds optimistic retries when concurrent writers touch the same account.
	maxLedgerRetries = 10

	ledgerRetryBase = time.Millisecond
	ledgerRetryMax  = 25 * time.Millisecond

	ledgerLockStripes = 256
)

// LedgerMutation changes an account in place. Returning an error aborts the
// write and the error is handed back to the caller untouched.
type LedgerMutation func(acc *models.Account) error

type AccountStore interface {
	CreateAccount(ctx context.Context, acc *models.Account) error
	GetAccount(ctx context.Context, email string) (*models.Account, error)
	UpdateLedger(ctx context.Context, email string, mutate LedgerMutation) (*models.Account, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactions(ctx context.Context, email string, limit int64) ([]*models.Transaction, error)
	Close() error
}

// waitLedgerRetry sleeps a jittered, doubling delay before optimistic retry
// number attempt (zero based).
func waitLedgerRetry(ctx context.Context, attempt int) error {
	delay := ledgerRetryBase << attempt
	if delay <= 0 || delay > ledgerRetryMax {
		delay = ledgerRetryMax
	}
	delay = delay/2 + rand.N(delay/2+1)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// serializedStore queues ledger writes for the same account inside this
// process, so optimistic retries are only spent on writers elsewhere.
type serializedStore struct {
	AccountStore
	stripes [ledgerLockStripes]sync.Mutex
}

func newSerializedStore(store AccountStore) *serializedStore {
	return &serializedStore{AccountStore: store}
}

func (s *serializedStore) UpdateLedger(ctx context.Context, email string, mutate LedgerMutation) (*models.Account, error) {
	mu := &s.stripes[xxhash.Sum64String(email)%ledgerLockStripes]
	mu.Lock()
	defer mu.Unlock()

	return s.AccountStore.UpdateLedger(ctx, email, mutate)
}

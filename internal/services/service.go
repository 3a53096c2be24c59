package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"flipball-backend/internal/models"
	"flipball-backend/internal/monitoring"
)

// Options carries the collaborators shared by the account and game services.
// Nil fields fall back to defaults.
type Options struct {
	Random      RandomSource
	Verifier    CredentialVerifier
	Broadcaster Broadcaster
	Metrics     *monitoring.Metrics
	Logger      logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Random == nil {
		o.Random = DefaultRandomSource()
	}
	if o.Verifier == nil {
		o.Verifier = PlaintextVerifier{}
	}
	if o.Broadcaster == nil {
		o.Broadcaster = noopBroadcaster{}
	}
	if o.Metrics == nil {
		o.Metrics = monitoring.Noop()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Service holds all business logic services.
type Service struct {
	Accounts *AccountService
	Game     *GameService
}

// NewService shares one per-account write queue between the account and
// game services.
func NewService(store AccountStore, opts Options) *Service {
	opts = opts.withDefaults()
	store = newSerializedStore(store)
	return &Service{
		Accounts: NewAccountService(store, opts),
		Game:     NewGameService(store, opts),
	}
}

// ledgerRecorder appends to the transaction log and pushes the new balance.
// Both are best effort: the ledger write has already happened.
type ledgerRecorder struct {
	store       AccountStore
	broadcaster Broadcaster
	log         logrus.FieldLogger
}

func (r ledgerRecorder) record(ctx context.Context, acc *models.Account, tx *models.Transaction) {
	tx.ID = models.GenerateTransactionID()
	tx.Email = acc.Email
	tx.BalanceAfter = acc.Balance
	tx.CreatedAt = time.Now().UTC()

	if err := r.store.SaveTransaction(ctx, tx); err != nil {
		r.log.WithError(err).WithField("email", acc.Email).Warn("LedgerRecorder.SaveTransaction.Error")
	}

	r.broadcaster.BroadcastBalance(acc.Email, acc.Balance, acc.Attempts)
}

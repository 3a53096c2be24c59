package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"flipball-backend/internal/models"
	"flipball-backend/internal/monitoring"
)

type AccountService struct {
	store    AccountStore
	verifier CredentialVerifier
	metrics  *monitoring.Metrics
	recorder ledgerRecorder
}

func NewAccountService(store AccountStore, opts Options) *AccountService {
	opts = opts.withDefaults()
	return &AccountService{
		store:    store,
		verifier: opts.Verifier,
		metrics:  opts.Metrics,
		recorder: ledgerRecorder{store: store, broadcaster: opts.Broadcaster, log: opts.Logger},
	}
}

func (s *AccountService) Signup(ctx context.Context, req models.SignupRequest) (*models.Account, error) {
	acc := models.NewAccount(req.Email, req.FirstName, req.LastName, req.Password)
	if err := s.store.CreateAccount(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Login reports an unknown email the same way as a wrong password.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.store.GetAccount(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.verifier.Verify(acc, password) {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (s *AccountService) GetAccount(ctx context.Context, email string) (*models.Account, error) {
	return s.store.GetAccount(ctx, email)
}

// UpdateLedger overwrites balance and attempts without any checks.
func (s *AccountService) UpdateLedger(ctx context.Context, email string, update models.LedgerUpdate) (*models.Account, error) {
	var before decimal.Decimal
	acc, err := s.store.UpdateLedger(ctx, email, func(acc *models.Account) error {
		before = acc.Balance
		update.Apply(acc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.record(ctx, acc, &models.Transaction{
		Type:          models.TransactionTypeAdjustment,
		Amount:        acc.Balance.Sub(before),
		BalanceBefore: before,
		Description:   fmt.Sprintf("Ledger set to balance %s, attempts %d", acc.Balance, acc.Attempts),
	})
	return acc, nil
}

// AddFunds credits amount and grants a fixed batch of attempts per top-up.
func (s *AccountService) AddFunds(ctx context.Context, email string, amount decimal.Decimal) (*models.Account, error) {
	if amount.LessThan(decimal.NewFromInt(models.MinimumTopUp)) {
		return nil, ErrBelowMinimum
	}

	var before decimal.Decimal
	acc, err := s.store.UpdateLedger(ctx, email, func(acc *models.Account) error {
		before = acc.Balance
		acc.Balance = acc.Balance.Add(amount)
		acc.Attempts += models.AttemptsPerTopUp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTopUp()
	s.recorder.record(ctx, acc, &models.Transaction{
		Type:          models.TransactionTypeDeposit,
		Amount:        amount,
		BalanceBefore: before,
		Description:   fmt.Sprintf("Added %s for %d attempts", models.FormatCurrency(amount), models.AttemptsPerTopUp),
	})
	return acc, nil
}

func (s *AccountService) History(ctx context.Context, email string, limit int64) ([]*models.Transaction, error) {
	if _, err := s.store.GetAccount(ctx, email); err != nil {
		return nil, err
	}
	return s.store.GetTransactions(ctx, email, limit)
}

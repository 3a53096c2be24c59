package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"flipball-backend/internal/models"
	"flipball-backend/internal/monitoring"
)

type GameService struct {
	store    AccountStore
	engine   *WagerEngine
	metrics  *monitoring.Metrics
	recorder ledgerRecorder
}

func NewGameService(store AccountStore, opts Options) *GameService {
	opts = opts.withDefaults()
	return &GameService{
		store:    store,
		engine:   NewWagerEngine(opts.Random),
		metrics:  opts.Metrics,
		recorder: ledgerRecorder{store: store, broadcaster: opts.Broadcaster, log: opts.Logger},
	}
}

// Play settles one round for email and persists the ledger in the same write.
func (s *GameService) Play(ctx context.Context, email string, bet decimal.Decimal, choice models.BoxChoice) (*models.PlayResult, error) {
	var (
		result *models.PlayResult
		before decimal.Decimal
	)

	acc, err := s.store.UpdateLedger(ctx, email, func(acc *models.Account) error {
		before = acc.Balance
		r, err := s.engine.Play(acc, bet, choice)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPlay(result.Win)

	tx := &models.Transaction{
		Type:          models.TransactionTypeBet,
		Amount:        result.Lost.Neg(),
		BalanceBefore: before,
		AttemptNumber: result.AttemptNumber,
		Description:   fmt.Sprintf("Lost %s on attempt %d (blue box %d)", result.Lost, result.AttemptNumber, result.BlueBox),
	}
	if result.Win {
		tx.Type = models.TransactionTypeWin
		tx.Amount = result.WinAmount
		tx.Description = fmt.Sprintf("Won %s on attempt %d (blue box %d)", result.WinAmount, result.AttemptNumber, result.BlueBox)
	}
	s.recorder.record(ctx, acc, tx)

	return result, nil
}

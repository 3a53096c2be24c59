package services

import (
	"github.com/shopspring/decimal"

	"flipball-backend/internal/models"
)

const payoutMultiplier = 5

// Even attempts take the blue box from this cycle instead of the RNG.
var evenAttemptSequence = [...]int{2, 1, 3}

type WagerEngine struct {
	rng RandomSource
}

func NewWagerEngine(rng RandomSource) *WagerEngine {
	if rng == nil {
		rng = DefaultRandomSource()
	}
	return &WagerEngine{rng: rng}
}

// BlueBox returns the 1-based winning box for the given attempt.
func (w *WagerEngine) BlueBox(attemptNumber int64) int {
	if attemptNumber%2 == 0 {
		n := int64(len(evenAttemptSequence))
		idx := ((attemptNumber/2-1)%n + n) % n
		return evenAttemptSequence[idx]
	}
	return w.rng.IntN(models.NumBoxes) + 1
}

// Play settles one round against acc. The account is only modified when
// both preconditions hold.
func (w *WagerEngine) Play(acc *models.Account, bet decimal.Decimal, choice models.BoxChoice) (*models.PlayResult, error) {
	if acc.Attempts <= 0 {
		return nil, ErrNoAttemptsLeft
	}
	if bet.GreaterThan(acc.Balance) {
		return nil, ErrInsufficientBalance
	}

	attemptNumber := acc.TotalAttemptsPlayed + 1
	blueBox := w.BlueBox(attemptNumber)
	win := choice.Is(blueBox)

	winAmount := decimal.Zero
	lost := bet
	if win {
		winAmount = bet.Mul(decimal.NewFromInt(payoutMultiplier))
		lost = decimal.Zero
	}

	acc.Balance = acc.Balance.Add(winAmount).Sub(lost)
	acc.Attempts--
	acc.TotalAttemptsPlayed = attemptNumber

	return &models.PlayResult{
		AttemptNumber:     attemptNumber,
		BlueBox:           blueBox,
		Win:               win,
		WinAmount:         winAmount,
		Lost:              lost,
		NewBalance:        acc.Balance,
		RemainingAttempts: acc.Attempts,
	}, nil
}

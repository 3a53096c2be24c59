package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Balances are rendered as plain JSON numbers, like the browser client expects.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultBalance      = 100
	DefaultAttempts     = 0
	MinimumTopUp        = 1000
	AttemptsPerTopUp    = 25
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

type Account struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Password  string `json:"password"`

	Balance             decimal.Decimal `json:"balance"`
	Attempts            int64           `json:"attempts"`
	TotalAttemptsPlayed int64           `json:"totalAttemptsPlayed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewAccount(email, firstName, lastName, password string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New().String(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Password:  password,
		Balance:   decimal.NewFromInt(DefaultBalance),
		Attempts:  DefaultAttempts,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LedgerUpdate overwrites the ledger fields that are set and leaves nil ones alone.
type LedgerUpdate struct {
	Balance             *decimal.Decimal
	Attempts            *int64
	TotalAttemptsPlayed *int64
}

func (u LedgerUpdate) Apply(acc *Account) {
	if u.Balance != nil {
		acc.Balance = *u.Balance
	}
	if u.Attempts != nil {
		acc.Attempts = *u.Attempts
	}
	if u.TotalAttemptsPlayed != nil {
		acc.TotalAttemptsPlayed = *u.TotalAttemptsPlayed
	}
}

type Profile struct {
	FirstName string          `json:"firstname"`
	LastName  string          `json:"lastname"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	Attempts  int64           `json:"attempts"`
}

func (a *Account) Profile() Profile {
	return Profile{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Balance:   a.Balance,
		Attempts:  a.Attempts,
	}
}

package models

import "github.com/shopspring/decimal"

type SignupRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateBalanceRequest struct {
	Email    string           `json:"email"`
	Balance  *decimal.Decimal `json:"balance"`
	Attempts *int64           `json:"attempts"`
}

type AddFundsRequest struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

type PlayRequest struct {
	Email  string          `json:"email"`
	Bet    decimal.Decimal `json:"bet"`
	Choice BoxChoice       `json:"choice"`
}

package services

import "github.com/shopspring/decimal"

type Broadcaster interface {
	BroadcastBalance(email string, balance decimal.Decimal, attempts int64)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastBalance(string, decimal.Decimal, int64) {}

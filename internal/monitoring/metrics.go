package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	Plays          *prometheus.CounterVec
	FundsAdded     prometheus.Counter
	BalanceChanges prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		Plays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flipball_plays_total",
				Help: "Completed plays by outcome",
			},
			[]string{"outcome"},
		),
		FundsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flipball_fund_topups_total",
				Help: "Successful fund top-ups",
			},
		),
		BalanceChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wallet_balance_updates_total",
				Help: "Total wallet balance updates",
			},
		),
	}
}

// Noop returns metrics registered on a throwaway registry.
func Noop() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func (m *Metrics) RecordPlay(win bool) {
	outcome := "loss"
	if win {
		outcome = "win"
	}
	m.Plays.WithLabelValues(outcome).Inc()
	m.BalanceChanges.Inc()
}

func (m *Metrics) RecordTopUp() {
	m.FundsAdded.Inc()
	m.BalanceChanges.Inc()
}

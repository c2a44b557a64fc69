package house

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics agrupa os coletores Prometheus da house
type Metrics struct {
	locksAcquired *prometheus.CounterVec
	locksReleased *prometheus.CounterVec
	stakeTotal    *prometheus.CounterVec
	feesTotal     *prometheus.CounterVec
	payoutTotal   *prometheus.CounterVec
	rejected      *prometheus.CounterVec

	treasuryBalance prometheus.Gauge
	accruedFees     prometheus.Gauge
	sharesSupply    prometheus.Gauge
}

// NewMetrics cria e registra os coletores em reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		locksAcquired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_bet_locks_acquired_total",
			Help: "Bet locks acquired, by game type.",
		}, []string{"game_type"}),
		locksReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_bet_locks_released_total",
			Help: "Bet locks released, by game type.",
		}, []string{"game_type"}),
		stakeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_stake_total",
			Help: "Sum of wager principals taken into custody.",
		}, []string{"game_type"}),
		feesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_fees_total",
			Help: "Sum of fees accrued.",
		}, []string{"game_type"}),
		payoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_payout_total",
			Help: "Sum of payouts sent to players.",
		}, []string{"game_type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_wagers_rejected_total",
			Help: "Wagers rejected, by game type and error kind.",
		}, []string{"game_type", "kind"}),
		treasuryBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "house_treasury_balance",
			Help: "Funds in treasury custody.",
		}),
		accruedFees: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "house_accrued_fees",
			Help: "Fees accrued and not yet withdrawn.",
		}),
		sharesSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "house_shares_supply",
			Help: "Treasury shares outstanding.",
		}),
	}
	reg.MustRegister(
		m.locksAcquired, m.locksReleased, m.stakeTotal, m.feesTotal, m.payoutTotal, m.rejected,
		m.treasuryBalance, m.accruedFees, m.sharesSupply,
	)
	return m
}

func (m *Metrics) LockAcquired(gameType string, stake, fee uint64) {
	m.locksAcquired.WithLabelValues(gameType).Inc()
	m.stakeTotal.WithLabelValues(gameType).Add(float64(stake))
	m.feesTotal.WithLabelValues(gameType).Add(float64(fee))
}

func (m *Metrics) LockReleased(gameType string, payout uint64) {
	m.locksReleased.WithLabelValues(gameType).Inc()
	m.payoutTotal.WithLabelValues(gameType).Add(float64(payout))
}

func (m *Metrics) PaidOut(gameType string, stake, fee, payout uint64) {
	m.stakeTotal.WithLabelValues(gameType).Add(float64(stake))
	m.feesTotal.WithLabelValues(gameType).Add(float64(fee))
	m.payoutTotal.WithLabelValues(gameType).Add(float64(payout))
}

func (m *Metrics) Rejected(gameType string, kind Kind) {
	m.rejected.WithLabelValues(gameType, string(kind)).Inc()
}

func (m *Metrics) SetTreasury(v TreasuryView) {
	m.treasuryBalance.Set(float64(v.Balance))
	m.accruedFees.Set(float64(v.AccruedFees))
	m.sharesSupply.Set(float64(v.SharesSupply))
}

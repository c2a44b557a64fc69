package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/casino-house/internal/house"
)

type TreasuryResponse struct {
	Admin         string `json:"admin"`
	Balance       uint64 `json:"balance"`
	FreeBalance   uint64 `json:"free_balance"`
	MinBet        uint64 `json:"min_bet"`
	MaxBet        uint64 `json:"max_bet"`
	MaxMultiplier uint64 `json:"max_multiplier"`
	FeeBps        uint32 `json:"fee_bps"`
	FeePercent    string `json:"fee_percent"` // só exibição, ex.: "1.00"
	AccruedFees   uint64 `json:"accrued_fees"`
	SharesSupply  uint64 `json:"shares_supply"`
}

func NewTreasuryResponse(v house.TreasuryView) TreasuryResponse {
	return TreasuryResponse{
		Admin:         v.Admin,
		Balance:       v.Balance,
		FreeBalance:   v.FreeBalance(),
		MinBet:        v.MinBet,
		MaxBet:        v.MaxBet,
		MaxMultiplier: v.MaxMultiplier,
		FeeBps:        v.FeeBps,
		FeePercent:    decimal.New(int64(v.FeeBps), -2).StringFixed(2),
		AccruedFees:   v.AccruedFees,
		SharesSupply:  v.SharesSupply,
	}
}

type GameResponse struct {
	GameType   string     `json:"game_type"`
	Approved   bool       `json:"approved"`
	FeeBps     *uint32    `json:"fee_bps,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

type AmountResponse struct {
	Amount uint64 `json:"amount"`
}

type SharesResponse struct {
	Shares uint64 `json:"shares"`
}

type AccountResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
	Shares  uint64 `json:"shares"`
}

type LockResponse struct {
	ID         string    `json:"id"`
	GameType   string    `json:"game_type"`
	Bettor     string    `json:"bettor"`
	Stake      uint64    `json:"stake"`
	Fee        uint64    `json:"fee"`
	MaxPayout  uint64    `json:"max_payout"`
	Escrowed   uint64    `json:"escrowed"`
	Multiplier string    `json:"multiplier"` // max_payout / stake, só exibição
	CreatedAt  time.Time `json:"created_at"`
}

func NewLockResponse(l house.LockRecord) LockResponse {
	return LockResponse{
		ID:         l.ID,
		GameType:   l.GameType,
		Bettor:     l.Bettor,
		Stake:      l.Stake,
		Fee:        l.Fee,
		MaxPayout:  l.MaxPayout,
		Escrowed:   l.Escrowed,
		Multiplier: house.NewRatio(l.MaxPayout, l.Stake).Decimal().StringFixed(4),
		CreatedAt:  l.CreatedAt,
	}
}

type LocksResponse struct {
	Locks     []LockResponse `json:"locks"`
	Liability uint64         `json:"liability"` // soma dos escrows em aberto
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

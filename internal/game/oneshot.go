package game

import (
	"context"

	errorsmod "cosmossdk.io/errors"

	"github.com/radieske/casino-house/internal/house"
	"github.com/radieske/casino-house/pkg/contracts/events"
)

// Wager é uma aposta one-shot: o stake já saiu da conta do player e só
// existe dentro da sessão que o criou. Se não for resolvida, a sessão aborta.
type Wager struct {
	player   string
	gameType string
	stake    *house.Funds
	resolved bool
}

func (w *Wager) Player() string    { return w.player }
func (w *Wager) GameType() string  { return w.gameType }
func (w *Wager) BetAmount() uint64 { return w.stake.Value() }

// Result é o resultado de uma resolução
type Result struct {
	WagerID   string `json:"wager_id,omitempty"`
	GameType  string `json:"game_type"`
	Player    string `json:"player"`
	BetAmount uint64 `json:"bet_amount"`
	Payout    uint64 `json:"payout"`
}

// CreateGame confere a aprovação do jogo e saca bet da conta do player
func CreateGame(s *house.Session, w house.Witness, player string, bet uint64) (*Wager, error) {
	wager, err := createGame(s, w, player, bet)
	return wager, s.Fail(err)
}

func createGame(s *house.Session, w house.Witness, player string, bet uint64) (*Wager, error) {
	if _, err := s.RequireApproved(w); err != nil {
		return nil, err
	}
	if bet == 0 {
		return nil, house.ErrBetAmountIsZero
	}
	stake, err := s.Withdraw(player, bet)
	if err != nil {
		return nil, err
	}
	return &Wager{player: player, gameType: w.GameType(), stake: stake}, nil
}

// ResolveGame liquida a aposta com a razão num/den calculada pelo jogo.
// O payout é medido pela diferença de saldo do player.
func ResolveGame(s *house.Session, wager *Wager, num, den uint64, w house.Witness) (Result, error) {
	res, err := resolveGame(s, wager, num, den, w)
	return res, s.Fail(err)
}

func resolveGame(s *house.Session, wager *Wager, num, den uint64, w house.Witness) (Result, error) {
	if wager == nil || wager.resolved {
		return Result{}, house.ErrWagerResolved
	}
	if !w.Valid() {
		return Result{}, house.ErrInvalidWitness
	}
	if w.GameType() != wager.gameType {
		return Result{}, errorsmod.Wrapf(house.ErrWitnessMismatch, "wager %s, witness %s", wager.gameType, w.GameType())
	}
	before, err := s.Balance(wager.player)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.PayOut(w, wager.player, wager.stake, house.NewRatio(num, den)); err != nil {
		return Result{}, err
	}
	after, err := s.Balance(wager.player)
	if err != nil {
		return Result{}, err
	}
	wager.resolved = true

	res := Result{
		GameType:  wager.gameType,
		Player:    wager.player,
		BetAmount: wager.stake.Value(),
		Payout:    after - before,
	}
	s.Emit(events.WagerResolved{
		GameType:  res.GameType,
		Player:    res.Player,
		BetAmount: res.BetAmount,
		Payout:    res.Payout,
		TsUnixMs:  s.Now().UnixMilli(),
	})
	return res, nil
}

// Play cria e resolve uma aposta one-shot numa única transação.
// r é o resultado já sorteado pelo jogo.
func Play(ctx context.Context, h *house.House, w house.Witness, player string, bet uint64, r house.Ratio) (Result, error) {
	var res Result
	err := h.Atomically(ctx, func(s *house.Session) error {
		wager, err := CreateGame(s, w, player, bet)
		if err != nil {
			return err
		}
		res, err = ResolveGame(s, wager, r.Num, r.Den, w)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

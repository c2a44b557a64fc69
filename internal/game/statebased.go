package game

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/radieske/casino-house/internal/house"
	"github.com/radieske/casino-house/pkg/contracts/events"
)

// DefaultWagerTTL é a idade mínima para o admin forçar a resolução de uma aposta abandonada
const DefaultWagerTTL = 24 * time.Hour

// StateBased adapta jogos de várias jogadas (blackjack, mines).
// Mantém no máximo uma aposta viva por player para o tipo de jogo.
type StateBased struct {
	h   *house.House
	w   house.Witness
	ttl time.Duration
}

type StateOption func(*StateBased)

// WithWagerTTL define a idade a partir da qual ExpireWager é permitido
func WithWagerTTL(d time.Duration) StateOption { return func(g *StateBased) { g.ttl = d } }

// LiveWager é a aposta em aberto de um player
type LiveWager struct {
	ID        string    `json:"id"` // id do bet lock
	GameType  string    `json:"game_type"`
	Player    string    `json:"player"`
	BetAmount uint64    `json:"bet_amount"`
	Fee       uint64    `json:"fee"`
	MaxPayout uint64    `json:"max_payout"`
	Escrowed  uint64    `json:"escrowed"`
	CreatedAt time.Time `json:"created_at"`
}

func newStateBased(h *house.House, w house.Witness, opts []StateOption) *StateBased {
	g := &StateBased{h: h, w: w, ttl: DefaultWagerTTL}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Init registra o adaptador stateful do tipo de jogo do witness.
// Só o criador (namespace do tipo) pode chamar, e só uma vez por tipo.
func Init(ctx context.Context, h *house.House, creator string, w house.Witness, opts ...StateOption) (*StateBased, error) {
	if !w.Valid() {
		return nil, house.ErrInvalidWitness
	}
	if house.Namespace(w.GameType()) != creator {
		return nil, errorsmod.Wrapf(house.ErrCallerNotCreator, "creator %s, game type %s", creator, w.GameType())
	}
	err := h.Atomically(ctx, func(s *house.Session) error {
		if err := s.VerifyWitness(w); err != nil {
			return err
		}
		_, ok, err := s.Tx().StateGame(ctx, w.GameType())
		if err != nil {
			return err
		}
		if ok {
			return errorsmod.Wrap(house.ErrAlreadyInitialized, w.GameType())
		}
		return s.Tx().PutStateGame(ctx, house.StateGameRecord{GameType: w.GameType(), Creator: creator})
	})
	if err != nil {
		return nil, err
	}
	h.Logger().Info("state based game initialized", zap.String("game_type", w.GameType()), zap.String("creator", creator))
	return newStateBased(h, w, opts), nil
}

// Open reabre um adaptador já inicializado (ex.: depois de um restart)
func Open(ctx context.Context, h *house.House, w house.Witness, opts ...StateOption) (*StateBased, error) {
	err := h.Atomically(ctx, func(s *house.Session) error {
		if err := s.VerifyWitness(w); err != nil {
			return err
		}
		_, ok, err := s.Tx().StateGame(ctx, w.GameType())
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrap(house.ErrNotInitialized, w.GameType())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newStateBased(h, w, opts), nil
}

func (g *StateBased) GameType() string { return g.w.GameType() }

// CreateGame abre a aposta do player com payout máximo maxMult
func (g *StateBased) CreateGame(ctx context.Context, player string, bet uint64, maxMult house.Ratio) (LiveWager, error) {
	var lw LiveWager
	err := g.h.Atomically(ctx, func(s *house.Session) error {
		var err error
		lw, err = g.CreateGameIn(s, player, bet, maxMult)
		return err
	})
	if err != nil {
		return LiveWager{}, err
	}
	return lw, nil
}

// CreateGameIn é CreateGame dentro de uma sessão do chamador.
// Uma falha marca a sessão: o chamador não consegue commitar metade da aposta.
func (g *StateBased) CreateGameIn(s *house.Session, player string, bet uint64, maxMult house.Ratio) (LiveWager, error) {
	lw, err := g.createIn(s, player, bet, maxMult)
	return lw, s.Fail(err)
}

func (g *StateBased) createIn(s *house.Session, player string, bet uint64, maxMult house.Ratio) (LiveWager, error) {
	ctx, tx, gameType := s.Context(), s.Tx(), g.w.GameType()

	if _, ok, err := tx.StateGame(ctx, gameType); err != nil {
		return LiveWager{}, err
	} else if !ok {
		return LiveWager{}, errorsmod.Wrap(house.ErrNotInitialized, gameType)
	}
	if _, ok, err := tx.LiveWager(ctx, gameType, player); err != nil {
		return LiveWager{}, err
	} else if ok {
		return LiveWager{}, errorsmod.Wrapf(house.ErrPlayerAlreadyInGame, "player %s", player)
	}
	if _, err := s.RequireApproved(g.w); err != nil {
		return LiveWager{}, err
	}
	if bet == 0 {
		return LiveWager{}, house.ErrBetAmountIsZero
	}
	stake, err := s.Withdraw(player, bet)
	if err != nil {
		return LiveWager{}, err
	}
	lock, err := s.AcquireBetLock(g.w, player, stake, maxMult.Num, maxMult.Den)
	if err != nil {
		return LiveWager{}, err
	}
	if err := tx.PutLiveWager(ctx, house.LiveWager{
		GameType:  gameType,
		Player:    player,
		LockID:    lock.ID(),
		CreatedAt: lock.CreatedAt(),
	}); err != nil {
		return LiveWager{}, err
	}
	s.Emit(events.WagerCreated{
		WagerID:   lock.ID(),
		GameType:  gameType,
		Player:    player,
		BetAmount: lock.Stake(),
		Fee:       lock.Fee(),
		MaxPayout: lock.MaxPayout(),
		TsUnixMs:  lock.CreatedAt().UnixMilli(),
	})
	return liveWagerOf(lock.Record()), nil
}

// ResolveGame liquida a aposta viva do player com a razão num/den
func (g *StateBased) ResolveGame(ctx context.Context, player string, num, den uint64) (Result, error) {
	var res Result
	err := g.h.Atomically(ctx, func(s *house.Session) error {
		var err error
		res, err = g.ResolveGameIn(s, player, num, den)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	g.h.Logger().Info("wager resolved",
		zap.String("game_type", res.GameType),
		zap.String("wager_id", res.WagerID),
		zap.String("player", res.Player),
		zap.Uint64("bet_amount", res.BetAmount),
		zap.Uint64("payout", res.Payout),
	)
	return res, nil
}

// ResolveGameIn é ResolveGame dentro de uma sessão do chamador
func (g *StateBased) ResolveGameIn(s *house.Session, player string, num, den uint64) (Result, error) {
	res, err := g.resolveIn(s, player, num, den)
	return res, s.Fail(err)
}

func (g *StateBased) resolveIn(s *house.Session, player string, num, den uint64) (Result, error) {
	lock, err := g.liveLock(s, player)
	if err != nil {
		return Result{}, err
	}
	payout, err := lock.PayoutFor(house.NewRatio(num, den))
	if err != nil {
		return Result{}, err
	}
	return settle(s, lock, payout, false)
}

// ExpireWager permite ao admin liquidar uma aposta abandonada há mais de ttl.
// A aposta é tratada como empate: o player recebe stake - fee.
func (g *StateBased) ExpireWager(ctx context.Context, admin, player string) (Result, error) {
	return expireWager(ctx, g.h, admin, g.w.GameType(), player, g.ttl)
}

// expireWager é o caminho do admin: carrega o lock sem witness, via LoadLockAsAdmin
func expireWager(ctx context.Context, h *house.House, admin, gameType, player string, ttl time.Duration) (Result, error) {
	var res Result
	err := h.Atomically(ctx, func(s *house.Session) error {
		if _, err := s.RequireAdmin(admin); err != nil {
			return err
		}
		lw, ok, err := s.Tx().LiveWager(ctx, gameType, player)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrapf(house.ErrPlayerNotInGame, "player %s", player)
		}
		lock, err := s.LoadLockAsAdmin(admin, lw.LockID)
		if err != nil {
			return err
		}
		if age := s.Now().Sub(lock.CreatedAt()); age < ttl {
			return errorsmod.Wrapf(house.ErrWagerNotExpired, "age %s, ttl %s", age, ttl)
		}
		payout, err := lock.PayoutFor(house.NewRatio(1, 1))
		if err != nil {
			return err
		}
		res, err = settle(s, lock, payout, true)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	h.Logger().Warn("wager expired",
		zap.String("game_type", res.GameType),
		zap.String("wager_id", res.WagerID),
		zap.String("player", res.Player),
		zap.String("admin", admin),
		zap.Uint64("payout", res.Payout),
	)
	return res, nil
}

// LiveWager lê a aposta viva do player, se houver
func (g *StateBased) LiveWager(ctx context.Context, player string) (LiveWager, bool, error) {
	var (
		lw LiveWager
		ok bool
	)
	err := g.h.Atomically(ctx, func(s *house.Session) error {
		lock, err := g.liveLock(s, player)
		if errorsmod.IsOf(err, house.ErrPlayerNotInGame) {
			return nil
		}
		if err != nil {
			return err
		}
		lw, ok = liveWagerOf(lock.Record()), true
		return nil
	})
	return lw, ok, err
}

func (g *StateBased) liveLock(s *house.Session, player string) (*house.Lock, error) {
	lw, ok, err := s.Tx().LiveWager(s.Context(), g.w.GameType(), player)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorsmod.Wrapf(house.ErrPlayerNotInGame, "player %s", player)
	}
	return s.LoadLock(g.w, lw.LockID)
}

func settle(s *house.Session, lock *house.Lock, payout uint64, forced bool) (Result, error) {
	if err := s.ReleaseBetLock(lock, payout); err != nil {
		return Result{}, err
	}
	if err := s.Tx().DeleteLiveWager(s.Context(), lock.GameType(), lock.Bettor()); err != nil {
		return Result{}, err
	}
	res := Result{
		WagerID:   lock.ID(),
		GameType:  lock.GameType(),
		Player:    lock.Bettor(),
		BetAmount: lock.Stake(),
		Payout:    payout,
	}
	s.Emit(events.WagerResolved{
		WagerID:   res.WagerID,
		GameType:  res.GameType,
		Player:    res.Player,
		BetAmount: res.BetAmount,
		Payout:    res.Payout,
		Forced:    forced,
		TsUnixMs:  s.Now().UnixMilli(),
	})
	return res, nil
}

func liveWagerOf(rec house.LockRecord) LiveWager {
	return LiveWager{
		ID:        rec.ID,
		GameType:  rec.GameType,
		Player:    rec.Bettor,
		BetAmount: rec.Stake,
		Fee:       rec.Fee,
		MaxPayout: rec.MaxPayout,
		Escrowed:  rec.Escrowed,
		CreatedAt: rec.CreatedAt,
	}
}

package game

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"

	"github.com/radieske/casino-house/internal/house"
)

// Keeper dá ao operador da house acesso às apostas vivas de qualquer jogo
// stateful inicializado. Não tem witness: lê o store e só liquida pelo caminho do admin.
type Keeper struct {
	h   *house.House
	ttl time.Duration
}

func NewKeeper(h *house.House, ttl time.Duration) *Keeper {
	if ttl <= 0 {
		ttl = DefaultWagerTTL
	}
	return &Keeper{h: h, ttl: ttl}
}

// Live lê a aposta viva de player em gameType
func (k *Keeper) Live(ctx context.Context, gameType, player string) (LiveWager, bool, error) {
	var (
		lw LiveWager
		ok bool
	)
	err := k.h.Atomically(ctx, func(s *house.Session) error {
		tx := s.Tx()
		if _, found, err := tx.StateGame(ctx, gameType); err != nil {
			return err
		} else if !found {
			return errorsmod.Wrap(house.ErrNotInitialized, gameType)
		}
		live, found, err := tx.LiveWager(ctx, gameType, player)
		if err != nil || !found {
			return err
		}
		rec, found, err := tx.Lock(ctx, live.LockID)
		if err != nil {
			return err
		}
		if !found {
			return errorsmod.Wrap(house.ErrLockNotFound, live.LockID)
		}
		lw, ok = liveWagerOf(rec), true
		return nil
	})
	return lw, ok, err
}

// Expire força a resolução de uma aposta abandonada; só o admin
func (k *Keeper) Expire(ctx context.Context, admin, gameType, player string) (Result, error) {
	return expireWager(ctx, k.h, admin, gameType, player, k.ttl)
}

package repo

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/radieske/casino-house/internal/house"
	"github.com/radieske/casino-house/internal/shared/db"
)

// newTestStore conecta no Postgres de HOUSE_TEST_POSTGRES_DSN e limpa as tabelas da house
func newTestStore(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("HOUSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HOUSE_TEST_POSTGRES_DSN not set")
	}
	pg, err := db.ConnectPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	ctx := context.Background()
	p := NewPostgres(pg)
	require.NoError(t, p.EnsureSchema(ctx))
	_, err = pg.ExecContext(ctx, `
		TRUNCATE house_balances, house_shares, house_games, house_bet_locks, house_state_games, house_live_wagers, house_witnesses;
		UPDATE house_treasury SET initialized = FALSE, admin = '', min_bet = 0, max_bet = 0, max_multiplier = 0,
		    fee_bps = 0, accrued_fees = 0, shares_supply = 0 WHERE id = 1`)
	require.NoError(t, err)
	return p
}

func TestPostgres_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestStore(t)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	err := p.InTx(ctx, func(tx house.Tx) error {
		_, ok, err := tx.Treasury(ctx)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, tx.PutTreasury(ctx, house.Treasury{
			Admin: "0xadmin", MinBet: 1, MaxBet: math.MaxUint64, MaxMultiplier: 20, FeeBps: 100,
			AccruedFees: 7, SharesSupply: 9,
		}))
		require.NoError(t, tx.SetBalance(ctx, "0xp", math.MaxUint64))
		require.NoError(t, tx.SetShares(ctx, "0xp", 9))
		require.NoError(t, tx.PutGame(ctx, house.GameEntry{GameType: "0xg::a::A", ApprovedAt: at}))
		require.NoError(t, tx.PutGame(ctx, house.GameEntry{GameType: "0xg::b::B", FeeBps: 0, HasFee: true, ApprovedAt: at}))
		require.NoError(t, tx.PutLock(ctx, house.LockRecord{
			ID: "6f1c2a4e-8a53-4c34-9a51-0b1f6f0f6d11", GameType: "0xg::a::A", Bettor: "0xp",
			Stake: 10, Fee: 1, MaxPayout: 20, Escrowed: 19, CreatedAt: at,
		}))
		require.NoError(t, tx.PutStateGame(ctx, house.StateGameRecord{GameType: "0xg::a::A", Creator: "0xg"}))
		return tx.PutLiveWager(ctx, house.LiveWager{
			GameType: "0xg::a::A", Player: "0xp", LockID: "6f1c2a4e-8a53-4c34-9a51-0b1f6f0f6d11", CreatedAt: at,
		})
	})
	require.NoError(t, err)

	err = p.InTx(ctx, func(tx house.Tx) error {
		tr, ok, err := tx.Treasury(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, uint64(math.MaxUint64), tr.MaxBet)
		require.Equal(t, uint32(100), tr.FeeBps)
		require.Equal(t, uint64(7), tr.AccruedFees)

		bal, err := tx.Balance(ctx, "0xp")
		require.NoError(t, err)
		require.Equal(t, uint64(math.MaxUint64), bal)

		bal, err = tx.Balance(ctx, "0xnobody")
		require.NoError(t, err)
		require.Zero(t, bal)

		g, ok, err := tx.Game(ctx, "0xg::a::A")
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, g.HasFee)

		g, ok, err = tx.Game(ctx, "0xg::b::B")
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, g.HasFee)
		require.Zero(t, g.FeeBps)

		locks, err := tx.Locks(ctx)
		require.NoError(t, err)
		require.Len(t, locks, 1)
		require.Equal(t, uint64(19), locks[0].Escrowed)
		require.True(t, at.Equal(locks[0].CreatedAt))

		lw, ok, err := tx.LiveWager(ctx, "0xg::a::A", "0xp")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, locks[0].ID, lw.LockID)

		require.NoError(t, tx.SetBalance(ctx, "0xp", 0))
		require.NoError(t, tx.DeleteLock(ctx, lw.LockID))
		return tx.DeleteLiveWager(ctx, "0xg::a::A", "0xp")
	})
	require.NoError(t, err)

	err = p.InTx(ctx, func(tx house.Tx) error {
		bal, err := tx.Balance(ctx, "0xp")
		require.NoError(t, err)
		require.Zero(t, bal)
		_, ok, err := tx.LiveWager(ctx, "0xg::a::A", "0xp")
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgres_HouseScenario(t *testing.T) {
	ctx := context.Background()
	h := house.New(newTestStore(t), "0xdeployer")

	_, err := h.Credit(ctx, "0xdeployer", 10_000_000)
	require.NoError(t, err)
	require.NoError(t, h.Init(ctx, "0xdeployer", house.InitParams{
		InitialDeposit: 10_000_000, MinBet: 1_000_000, MaxBet: 10_000_000, MaxMultiplier: 20, FeeBps: 100,
	}))
	require.ErrorIs(t, h.Init(ctx, "0xdeployer", house.InitParams{MinBet: 1, MaxBet: 1, MaxMultiplier: 1}), house.ErrAlreadyInitialized)
	require.NoError(t, h.ApproveGame(ctx, "0xdeployer", "0xgames::coinflip::Coinflip", nil))
	_, err = h.Credit(ctx, "0xplayer", 5_000_000)
	require.NoError(t, err)

	w, err := h.IssueWitness(ctx, "0xgames", "0xgames::coinflip::Coinflip")
	require.NoError(t, err)
	_, err = h.IssueWitness(ctx, "0xgames", "0xgames::coinflip::Coinflip")
	require.ErrorIs(t, err, house.ErrWitnessIssued)
	_, err = h.AcquireBetLock(ctx, house.RestoreWitness(w.GameType(), "guess"), "0xplayer", 1_000_000, house.NewRatio(2, 1))
	require.ErrorIs(t, err, house.ErrInvalidWitness)
	lock, err := h.AcquireBetLock(ctx, w, "0xplayer", 1_000_000, house.NewRatio(2, 1))
	require.NoError(t, err)

	v, err := h.Treasury(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(9_010_000), v.Balance)

	require.ErrorIs(t, h.ReleaseBetLock(ctx, lock, 1_990_001), house.ErrPayoutExceedsMaxPayout)
	require.NoError(t, h.ReleaseBetLock(ctx, lock, 0))

	v, err = h.Treasury(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11_000_000), v.Balance)
	require.Equal(t, uint64(10_000), v.AccruedFees)
}

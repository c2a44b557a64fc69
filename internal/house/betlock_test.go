package house

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBetLock_Scenario(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)
	total := totalValue(t, h, player, deployer)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), lock.Stake())
	require.Equal(t, uint64(10_000), lock.Fee())
	require.Equal(t, uint64(2_000_000), lock.MaxPayout())
	require.Equal(t, uint64(1_990_000), lock.Escrowed())
	require.Equal(t, coinflip, lock.GameType())
	require.Equal(t, player, lock.Bettor())
	require.False(t, lock.Consumed())

	v := treasuryOf(t, h)
	require.Equal(t, uint64(9_010_000), v.Balance)
	require.Equal(t, uint64(10_000), v.AccruedFees)
	require.Equal(t, uint64(4_000_000), balanceOf(t, h, player))
	require.Equal(t, total, totalValue(t, h, player, deployer))

	locks, err := h.OutstandingLocks(ctx)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	require.Equal(t, lock.Record(), locks[0])

	require.NoError(t, h.ReleaseBetLock(ctx, lock, 0))
	require.True(t, lock.Consumed())

	v = treasuryOf(t, h)
	require.Equal(t, uint64(11_000_000), v.Balance)
	require.Equal(t, uint64(10_000), v.AccruedFees)
	require.Equal(t, uint64(4_000_000), balanceOf(t, h, player))
	require.Equal(t, total, totalValue(t, h, player, deployer))

	locks, err = h.OutstandingLocks(ctx)
	require.NoError(t, err)
	require.Empty(t, locks)
}

func TestBetLock_ReleaseMaxPayout(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)

	payout, err := lock.PayoutFor(NewRatio(2, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(1_990_000), payout)

	require.NoError(t, h.ReleaseBetLock(ctx, lock, payout))
	require.Equal(t, uint64(5_990_000), balanceOf(t, h, player))
	require.Equal(t, uint64(9_010_000), treasuryOf(t, h).Balance)
	require.Equal(t, uint64(10_000), treasuryOf(t, h).AccruedFees)
}

func TestBetLock_PayoutCeiling(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)

	err = h.ReleaseBetLock(ctx, lock, 1_990_001)
	require.ErrorIs(t, err, ErrPayoutExceedsMaxPayout)
	require.Equal(t, KindInvariantViolation, KindOf(err))
	require.False(t, lock.Consumed())
	require.Equal(t, uint64(4_000_000), balanceOf(t, h, player))

	// o lock continua utilizável depois da liberação rejeitada
	require.NoError(t, h.ReleaseBetLock(ctx, lock, 1_990_000))
	require.True(t, lock.Consumed())
}

func TestBetLock_DoubleRelease(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)
	require.NoError(t, h.ReleaseBetLock(ctx, lock, 500_000))

	err = h.ReleaseBetLock(ctx, lock, 0)
	require.ErrorIs(t, err, ErrLockConsumed)
	require.Equal(t, uint64(4_500_000), balanceOf(t, h, player))
}

func TestBetLock_DoubleReleaseInOneSession(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)

	err = h.Atomically(ctx, func(s *Session) error {
		if err := s.ReleaseBetLock(lock, 1_990_000); err != nil {
			return err
		}
		return s.ReleaseBetLock(lock, 1_990_000)
	})
	require.ErrorIs(t, err, ErrLockConsumed)
	require.False(t, lock.Consumed())
	require.Equal(t, uint64(4_000_000), balanceOf(t, h, player))

	err = h.Atomically(ctx, func(s *Session) error {
		if _, err := s.LoadLock(w, lock.ID()); err != nil {
			return err
		}
		return s.ReleaseBetLock(lock, 0)
	})
	require.NoError(t, err)
	require.True(t, lock.Consumed())

	err = h.Atomically(ctx, func(s *Session) error {
		_, err := s.LoadLock(w, lock.ID())
		return err
	})
	require.ErrorIs(t, err, ErrLockNotFound)
}

func TestBetLock_Bounds(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)
	_, err := h.Credit(ctx, player, 20_000_000)
	require.NoError(t, err)

	cases := []struct {
		name string
		bet  uint64
		r    Ratio
		err  error
	}{
		{"at min bet", 1_000_000, NewRatio(2, 1), nil},
		{"below min bet", 999_999, NewRatio(2, 1), ErrBetBelowMin},
		{"at max bet", 10_000_000, NewRatio(3, 2), nil},
		{"above max bet", 10_000_001, NewRatio(3, 2), ErrBetAboveMax},
		{"multiplier of one", 1_000_000, NewRatio(1, 1), ErrBetBelowMinMultiplier},
		{"multiplier below one", 1_000_000, NewRatio(1, 2), ErrBetBelowMinMultiplier},
		{"multiplier above max", 1_000_000, NewRatio(41, 2), ErrBetExceedsMaxMultiplier},
		{"zero denominator", 1_000_000, NewRatio(2, 0), ErrInvalidRatio},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			total := totalValue(t, h, player, deployer)
			lock, err := h.AcquireBetLock(ctx, w, player, tc.bet, tc.r)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, lock)
				require.Equal(t, total, totalValue(t, h, player, deployer))
				return
			}
			require.NoError(t, err)
			require.NoError(t, h.ReleaseBetLock(ctx, lock, 0))
		})
	}
}

func TestBetLock_MaxMultiplierAccepted(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	// 1M a 20x exige 20M livres: com 11M na custódia não cabe
	_, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(20, 1))
	require.ErrorIs(t, err, ErrHouseInsufficientBalance)
	require.Equal(t, KindInsufficientFunds, KindOf(err))
	require.Equal(t, uint64(10_000_000), treasuryOf(t, h).Balance)
	require.Zero(t, treasuryOf(t, h).AccruedFees)
	require.Equal(t, uint64(5_000_000), balanceOf(t, h, player))

	_, err = h.Credit(ctx, deployer, 10_000_000)
	require.NoError(t, err)
	require.NoError(t, h.Deposit(ctx, deployer, 10_000_000))

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(20, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(19_990_000), lock.Escrowed())
	require.Equal(t, uint64(1_010_000), treasuryOf(t, h).Balance)
}

func TestBetLock_CapacityBoundary(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)
	require.NoError(t, h.SetFeeBps(ctx, deployer, 0))

	// free = 10M + 5M = 15M, max payout = 5M * 3 = 15M
	lock, err := h.AcquireBetLock(ctx, w, player, 5_000_000, NewRatio(3, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(15_000_000), lock.Escrowed())
	require.Zero(t, treasuryOf(t, h).Balance)
	require.NoError(t, h.ReleaseBetLock(ctx, lock, 0))
	require.Equal(t, uint64(15_000_000), treasuryOf(t, h).Balance)

	// free = 15M + 7_500_001, max payout = 22_500_003
	_, err = h.Credit(ctx, player, 7_500_001)
	require.NoError(t, err)
	_, err = h.AcquireBetLock(ctx, w, player, 7_500_001, NewRatio(3, 1))
	require.ErrorIs(t, err, ErrHouseInsufficientBalance)
	require.Equal(t, uint64(15_000_000), treasuryOf(t, h).Balance)
	require.Equal(t, uint64(7_500_001), balanceOf(t, h, player))
}

func TestBetLock_InsufficientPlayerBalance(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	_, err := h.AcquireBetLock(ctx, w, player, 6_000_000, NewRatio(3, 2))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(5_000_000), balanceOf(t, h, player))
}

func TestBetLock_NotApproved(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	_, err := h.AcquireBetLock(ctx, Witness{}, player, 1_000_000, NewRatio(2, 1))
	require.ErrorIs(t, err, ErrInvalidWitness)

	require.NoError(t, h.RevokeGame(ctx, deployer, coinflip))
	_, err = h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.ErrorIs(t, err, ErrGameNotApproved)
	require.Equal(t, uint64(5_000_000), balanceOf(t, h, player))
}

func TestBetLock_ReleaseAfterRevoke(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)
	require.NoError(t, h.RevokeGame(ctx, deployer, coinflip))

	// locks em aberto continuam liquidáveis
	require.NoError(t, h.ReleaseBetLock(ctx, lock, 1_990_000))
	require.Equal(t, uint64(5_990_000), balanceOf(t, h, player))
}

func TestBetLock_GameFeeOverride(t *testing.T) {
	ctx := context.Background()
	h, _ := setup(t)
	zero := uint32(0)
	dice := "0xgames::dice::Dice"
	require.NoError(t, h.ApproveGame(ctx, deployer, dice, &zero))
	w, err := h.IssueWitness(ctx, creator, dice)
	require.NoError(t, err)

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)
	require.Zero(t, lock.Fee())
	require.Equal(t, uint64(2_000_000), lock.Escrowed())
}

func TestBetLock_CreatedAtFromClock(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h, w := setup(t, WithClock(func() time.Time { return at }))

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)
	require.Equal(t, at, lock.CreatedAt())
}

// acquireLegs abre um lock com uma perna por stake, todas a 2x
func acquireLegs(t *testing.T, h *House, w Witness, stakes ...uint64) *Lock {
	t.Helper()
	var lock *Lock
	err := h.Atomically(context.Background(), func(s *Session) error {
		legs := make([]Leg, 0, len(stakes))
		for _, amt := range stakes {
			f, err := s.Withdraw(player, amt)
			if err != nil {
				return err
			}
			legs = append(legs, Leg{Stake: f, Multiplier: NewRatio(2, 1)})
		}
		var err error
		lock, err = s.AcquireMultiBetLock(w, player, legs)
		return err
	})
	require.NoError(t, err)
	return lock
}

func TestFeePolicy_SingleLegMatchesScenario(t *testing.T) {
	for _, policy := range []FeePolicy{FeePerWager, FeePerLeg} {
		t.Run(string(policy), func(t *testing.T) {
			h, w := setup(t, WithFeePolicy(policy))
			lock := acquireLegs(t, h, w, 1_000_000)
			require.Equal(t, uint64(10_000), lock.Fee())
			require.Equal(t, uint64(1_990_000), lock.Escrowed())
			require.Equal(t, uint64(9_010_000), treasuryOf(t, h).Balance)
		})
	}
}

func TestFeePolicy_MultiLegDrift(t *testing.T) {
	stakes := []uint64{333_333, 333_333, 333_334}

	h, w := setup(t, WithFeePolicy(FeePerWager))
	lock := acquireLegs(t, h, w, stakes...)
	require.Equal(t, uint64(1_000_000), lock.Stake())
	require.Equal(t, uint64(10_000), lock.Fee())
	require.Equal(t, uint64(1_990_000), lock.Escrowed())

	// por perna, o truncamento de cada fee deixa 1 unidade a menos
	h, w = setup(t, WithFeePolicy(FeePerLeg))
	lock = acquireLegs(t, h, w, stakes...)
	require.Equal(t, uint64(9_999), lock.Fee())
	require.Equal(t, uint64(1_990_001), lock.Escrowed())
	require.Equal(t, uint64(9_999), treasuryOf(t, h).AccruedFees)
}

func TestMultiBetLock_Validation(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	err := h.Atomically(ctx, func(s *Session) error {
		_, err := s.AcquireMultiBetLock(w, player, nil)
		return err
	})
	require.ErrorIs(t, err, ErrBetAmountIsZero)

	// pernas abaixo do min individualmente, mas o total respeita o min bet
	lock := acquireLegs(t, h, w, 600_000, 400_000)
	require.Equal(t, uint64(1_000_000), lock.Stake())
	require.Equal(t, uint64(2_000_000), lock.MaxPayout())

	err = h.Atomically(ctx, func(s *Session) error {
		f, err := s.Withdraw(player, 1_000_000)
		if err != nil {
			return err
		}
		_, err = s.AcquireMultiBetLock(w, player, []Leg{{Stake: f, Multiplier: NewRatio(2, 1)}, {Stake: f, Multiplier: NewRatio(2, 1)}})
		return err
	})
	require.ErrorIs(t, err, ErrFundsLeaked)
}

func TestPayOut(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)

	cases := []struct {
		name   string
		r      Ratio
		payout uint64
	}{
		{"loss", NewRatio(0, 1), 0},
		{"push", NewRatio(1, 1), 990_000},
		{"win", NewRatio(2, 1), 1_990_000},
		{"fee above gross", NewRatio(1, 1000), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := balanceOf(t, h, player)
			fees := treasuryOf(t, h).AccruedFees
			var payout uint64
			err := h.Atomically(ctx, func(s *Session) error {
				f, err := s.Withdraw(player, 1_000_000)
				if err != nil {
					return err
				}
				payout, err = s.PayOut(w, player, f, tc.r)
				return err
			})
			require.NoError(t, err)
			require.Equal(t, tc.payout, payout)
			require.Equal(t, before-1_000_000+tc.payout, balanceOf(t, h, player))
			require.Equal(t, fees+10_000, treasuryOf(t, h).AccruedFees)
		})
	}

	err := h.Atomically(ctx, func(s *Session) error {
		f, err := s.Withdraw(player, 1_000_000)
		if err != nil {
			return err
		}
		_, err = s.PayOut(w, player, f, NewRatio(21, 1))
		return err
	})
	require.ErrorIs(t, err, ErrBetExceedsMaxMultiplier)
}

func TestBetLock_ConcurrentConservation(t *testing.T) {
	ctx := context.Background()
	h, w := setup(t)
	players := []string{"0xp1", "0xp2", "0xp3", "0xp4"}
	for _, p := range players {
		_, err := h.Credit(ctx, p, 3_000_000)
		require.NoError(t, err)
	}
	accounts := append([]string{player, deployer}, players...)
	total := totalValue(t, h, accounts...)

	var wg sync.WaitGroup
	for i, p := range players {
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				lock, err := h.AcquireBetLock(ctx, w, p, 1_000_000, NewRatio(3, 2))
				if err != nil {
					continue
				}
				payout := uint64(0)
				if (i+j)%2 == 0 {
					payout = lock.Escrowed()
				}
				_ = h.ReleaseBetLock(ctx, lock, payout)
			}
		}(i, p)
	}
	wg.Wait()

	require.Equal(t, total, totalValue(t, h, accounts...))
	locks, err := h.OutstandingLocks(ctx)
	require.NoError(t, err)
	require.Empty(t, locks)
	v := treasuryOf(t, h)
	require.GreaterOrEqual(t, v.Balance, v.AccruedFees)
}

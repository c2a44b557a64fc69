package house

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	h, w := setup(t, WithMetrics(m))

	lock, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(2, 1))
	require.NoError(t, err)

	require.Equal(t, float64(1), testutil.ToFloat64(m.locksAcquired.WithLabelValues(coinflip)))
	require.Equal(t, float64(1_000_000), testutil.ToFloat64(m.stakeTotal.WithLabelValues(coinflip)))
	require.Equal(t, float64(10_000), testutil.ToFloat64(m.feesTotal.WithLabelValues(coinflip)))
	require.Equal(t, float64(9_010_000), testutil.ToFloat64(m.treasuryBalance))
	require.Equal(t, float64(10_000), testutil.ToFloat64(m.accruedFees))

	require.NoError(t, h.ReleaseBetLock(ctx, lock, 1_990_000))
	require.Equal(t, float64(1), testutil.ToFloat64(m.locksReleased.WithLabelValues(coinflip)))
	require.Equal(t, float64(1_990_000), testutil.ToFloat64(m.payoutTotal.WithLabelValues(coinflip)))

	_, err = h.AcquireBetLock(ctx, w, player, 1, NewRatio(2, 1))
	require.ErrorIs(t, err, ErrBetBelowMin)
	require.Equal(t, float64(1), testutil.ToFloat64(m.rejected.WithLabelValues(coinflip, string(KindBoundsViolation))))
}

func TestMetrics_NotTouchedOnRollback(t *testing.T) {
	ctx := context.Background()
	m := NewMetrics(prometheus.NewRegistry())
	h, w := setup(t, WithMetrics(m))

	_, err := h.AcquireBetLock(ctx, w, player, 1_000_000, NewRatio(20, 1))
	require.ErrorIs(t, err, ErrHouseInsufficientBalance)
	require.Equal(t, float64(0), testutil.ToFloat64(m.locksAcquired.WithLabelValues(coinflip)))
	require.Equal(t, float64(0), testutil.ToFloat64(m.stakeTotal.WithLabelValues(coinflip)))
	require.Equal(t, float64(1), testutil.ToFloat64(m.rejected.WithLabelValues(coinflip, string(KindInsufficientFunds))))
}

package house

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"
)

// mintShares deposita f na custódia e emite shares proporcionais para holder.
// shares = amount * supply / free_balance, com free_balance medido antes do depósito.
// Com supply == 0 a emissão é 1:1 e o depositante fica com qualquer saldo remanescente.
func (s *Session) mintShares(t Treasury, holder string, f *Funds) (Treasury, error) {
	amount := f.Value()
	minted := amount
	if t.SharesSupply > 0 {
		bal, err := s.Balance(TreasuryAccount)
		if err != nil {
			return t, err
		}
		free := subSaturating(bal, t.AccruedFees)
		if free == 0 {
			return t, errorsmod.Wrapf(ErrTreasuryDepleted, "supply %d", t.SharesSupply)
		}
		if minted, err = mulDiv(amount, t.SharesSupply, free); err != nil {
			return t, err
		}
		if minted == 0 {
			return t, errorsmod.Wrapf(ErrAmountInvalid, "deposit %d mints no shares", amount)
		}
	}
	if err := s.Deposit(TreasuryAccount, f); err != nil {
		return t, err
	}
	held, err := s.tx.Shares(s.ctx, holder)
	if err != nil {
		return t, err
	}
	if held, err = addChecked(held, minted, "shares of "+holder); err != nil {
		return t, err
	}
	if t.SharesSupply, err = addChecked(t.SharesSupply, minted, "shares supply"); err != nil {
		return t, err
	}
	if err := s.tx.SetShares(s.ctx, holder, held); err != nil {
		return t, err
	}
	return t, nil
}

// AddLiquidity deposita amount de provider na treasury e devolve as shares emitidas
func (h *House) AddLiquidity(ctx context.Context, provider string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrAmountInvalid
	}
	var minted uint64
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.Treasury()
		if err != nil {
			return err
		}
		before := t.SharesSupply
		f, err := s.Withdraw(provider, amount)
		if err != nil {
			return err
		}
		if t, err = s.mintShares(t, provider, f); err != nil {
			return err
		}
		minted = t.SharesSupply - before
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return 0, err
	}
	h.log.Info("liquidity added", zap.String("provider", provider), zap.Uint64("amount", amount), zap.Uint64("shares", minted))
	h.refreshGauges(ctx)
	return minted, nil
}

// RedeemShares queima shares de holder e paga shares * free_balance / supply
func (h *House) RedeemShares(ctx context.Context, holder string, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, ErrAmountInvalid
	}
	var amount uint64
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.Treasury()
		if err != nil {
			return err
		}
		held, err := s.tx.Shares(ctx, holder)
		if err != nil {
			return err
		}
		if held < shares {
			return errorsmod.Wrapf(ErrInsufficientShares, "%s holds %d, redeeming %d", holder, held, shares)
		}
		bal, err := s.Balance(TreasuryAccount)
		if err != nil {
			return err
		}
		if amount, err = mulDiv(shares, subSaturating(bal, t.AccruedFees), t.SharesSupply); err != nil {
			return err
		}
		if err := s.debit(TreasuryAccount, amount); err != nil {
			return err
		}
		if err := s.credit(holder, amount); err != nil {
			return err
		}
		if err := s.tx.SetShares(ctx, holder, held-shares); err != nil {
			return err
		}
		t.SharesSupply -= shares
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return 0, err
	}
	h.log.Info("shares redeemed", zap.String("holder", holder), zap.Uint64("shares", shares), zap.Uint64("amount", amount))
	h.refreshGauges(ctx)
	return amount, nil
}

// Shares lê as shares de holder
func (h *House) Shares(ctx context.Context, holder string) (uint64, error) {
	var n uint64
	err := h.store.InTx(ctx, func(tx Tx) error {
		var err error
		n, err = tx.Shares(ctx, holder)
		return err
	})
	return n, err
}

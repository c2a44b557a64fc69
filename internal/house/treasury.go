package house

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"go.uber.org/zap"

	"github.com/radieske/casino-house/pkg/contracts/events"
)

// InitParams são os parâmetros iniciais da treasury
type InitParams struct {
	InitialDeposit uint64
	MinBet         uint64
	MaxBet         uint64
	MaxMultiplier  uint64
	FeeBps         uint32
}

func validateParams(minBet, maxBet, maxMultiplier uint64, feeBps uint32) error {
	switch {
	case minBet == 0 || minBet > maxBet:
		return errorsmod.Wrapf(ErrInvalidParams, "min bet %d, max bet %d", minBet, maxBet)
	case maxMultiplier < 1:
		return errorsmod.Wrapf(ErrInvalidParams, "max multiplier %d", maxMultiplier)
	case uint64(feeBps) > FeeDivisor:
		return errorsmod.Wrapf(ErrInvalidParams, "fee bps %d", feeBps)
	}
	return nil
}

// TreasuryView é a leitura completa da treasury, incluindo o saldo em custódia
type TreasuryView struct {
	Treasury
	Balance uint64 `json:"balance"`
}

// FreeBalance é o saldo que não pertence aos fees acumulados
func (v TreasuryView) FreeBalance() uint64 { return subSaturating(v.Balance, v.AccruedFees) }

// FeeAmount = bet * fee_bps / 10000
func (t Treasury) FeeAmount(bet uint64) uint64 { return feeAmount(bet, t.FeeBps) }

// Init cria a treasury. Só o deployer pode chamar, e só uma vez.
func (h *House) Init(ctx context.Context, deployer string, p InitParams) error {
	if deployer != h.deployer {
		return errorsmod.Wrapf(ErrNotDeployer, "caller %s", deployer)
	}
	if err := validateParams(p.MinBet, p.MaxBet, p.MaxMultiplier, p.FeeBps); err != nil {
		return err
	}
	err := h.Atomically(ctx, func(s *Session) error {
		_, ok, err := s.tx.Treasury(ctx)
		if err != nil {
			return err
		}
		if ok {
			return ErrAlreadyInitialized
		}
		t := Treasury{
			Admin:         deployer,
			MinBet:        p.MinBet,
			MaxBet:        p.MaxBet,
			MaxMultiplier: p.MaxMultiplier,
			FeeBps:        p.FeeBps,
		}
		if p.InitialDeposit > 0 {
			f, err := s.Withdraw(deployer, p.InitialDeposit)
			if err != nil {
				return err
			}
			if t, err = s.mintShares(t, deployer, f); err != nil {
				return err
			}
		}
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return err
	}
	h.log.Info("treasury initialized",
		zap.String("admin", deployer),
		zap.Uint64("initial_deposit", p.InitialDeposit),
		zap.Uint64("min_bet", p.MinBet),
		zap.Uint64("max_bet", p.MaxBet),
		zap.Uint64("max_multiplier", p.MaxMultiplier),
		zap.Uint32("fee_bps", p.FeeBps),
	)
	h.refreshGauges(ctx)
	return nil
}

// Deposit move fundos do admin para a custódia, emitindo shares
func (h *House) Deposit(ctx context.Context, admin string, amount uint64) error {
	if amount == 0 {
		return ErrAmountInvalid
	}
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.RequireAdmin(admin)
		if err != nil {
			return err
		}
		f, err := s.Withdraw(admin, amount)
		if err != nil {
			return err
		}
		if t, err = s.mintShares(t, admin, f); err != nil {
			return err
		}
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return err
	}
	h.log.Info("treasury deposit", zap.String("admin", admin), zap.Uint64("amount", amount))
	h.refreshGauges(ctx)
	return nil
}

// WithdrawFees transfere os fees acumulados para o admin e zera o contador
func (h *House) WithdrawFees(ctx context.Context, admin string) (uint64, error) {
	var amount uint64
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.RequireAdmin(admin)
		if err != nil {
			return err
		}
		amount = t.AccruedFees
		if err := s.debit(TreasuryAccount, amount); err != nil {
			return err
		}
		if err := s.credit(admin, amount); err != nil {
			return err
		}
		t.AccruedFees = 0
		if err := s.tx.PutTreasury(ctx, t); err != nil {
			return err
		}
		s.Emit(events.FeesWithdrawn{Admin: admin, Amount: amount, TsUnixMs: s.Now().UnixMilli()})
		return nil
	})
	if err != nil {
		return 0, err
	}
	h.log.Info("fees withdrawn", zap.String("admin", admin), zap.Uint64("amount", amount))
	h.refreshGauges(ctx)
	return amount, nil
}

// updateParams aplica fn na treasury depois de conferir o admin; a escrita é o último passo
func (h *House) updateParams(ctx context.Context, admin, field string, fn func(t *Treasury) error) error {
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.RequireAdmin(admin)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return err
	}
	h.log.Info("treasury param updated", zap.String("field", field), zap.String("admin", admin))
	return nil
}

func (h *House) SetMinBet(ctx context.Context, admin string, v uint64) error {
	return h.updateParams(ctx, admin, "min_bet", func(t *Treasury) error {
		if err := validateParams(v, t.MaxBet, t.MaxMultiplier, t.FeeBps); err != nil {
			return err
		}
		t.MinBet = v
		return nil
	})
}

func (h *House) SetMaxBet(ctx context.Context, admin string, v uint64) error {
	return h.updateParams(ctx, admin, "max_bet", func(t *Treasury) error {
		if err := validateParams(t.MinBet, v, t.MaxMultiplier, t.FeeBps); err != nil {
			return err
		}
		t.MaxBet = v
		return nil
	})
}

func (h *House) SetMaxMultiplier(ctx context.Context, admin string, v uint64) error {
	return h.updateParams(ctx, admin, "max_multiplier", func(t *Treasury) error {
		if err := validateParams(t.MinBet, t.MaxBet, v, t.FeeBps); err != nil {
			return err
		}
		t.MaxMultiplier = v
		return nil
	})
}

func (h *House) SetFeeBps(ctx context.Context, admin string, v uint32) error {
	return h.updateParams(ctx, admin, "fee_bps", func(t *Treasury) error {
		if err := validateParams(t.MinBet, t.MaxBet, t.MaxMultiplier, v); err != nil {
			return err
		}
		t.FeeBps = v
		return nil
	})
}

// SetAdmin troca o admin; só o deployer pode chamar
func (h *House) SetAdmin(ctx context.Context, deployer, newAdmin string) error {
	if deployer != h.deployer {
		return errorsmod.Wrapf(ErrNotDeployer, "caller %s", deployer)
	}
	if newAdmin == "" {
		return errorsmod.Wrap(ErrInvalidParams, "empty admin")
	}
	err := h.Atomically(ctx, func(s *Session) error {
		t, err := s.Treasury()
		if err != nil {
			return err
		}
		t.Admin = newAdmin
		return s.tx.PutTreasury(ctx, t)
	})
	if err != nil {
		return err
	}
	h.log.Info("treasury admin changed", zap.String("admin", newAdmin))
	return nil
}

// Treasury lê todos os campos e o saldo em custódia
func (h *House) Treasury(ctx context.Context) (TreasuryView, error) {
	var v TreasuryView
	err := h.store.InTx(ctx, func(tx Tx) error {
		t, ok, err := tx.Treasury(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotInitialized
		}
		bal, err := tx.Balance(ctx, TreasuryAccount)
		if err != nil {
			return err
		}
		v = TreasuryView{Treasury: t, Balance: bal}
		return nil
	})
	return v, err
}

// FeeAmount calcula o fee de um bet com o fee_bps atual
func (h *House) FeeAmount(ctx context.Context, bet uint64) (uint64, error) {
	v, err := h.Treasury(ctx)
	if err != nil {
		return 0, err
	}
	return v.FeeAmount(bet), nil
}

// Balance lê o saldo de uma conta
func (h *House) Balance(ctx context.Context, account string) (uint64, error) {
	var bal uint64
	err := h.store.InTx(ctx, func(tx Tx) error {
		var err error
		bal, err = tx.Balance(ctx, account)
		return err
	})
	return bal, err
}

// Credit credita fundos vindos de fora da house (rail de depósito da carteira)
func (h *House) Credit(ctx context.Context, account string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrAmountInvalid
	}
	if account == TreasuryAccount {
		return 0, errorsmod.Wrap(ErrInvalidParams, "treasury account is not creditable")
	}
	var bal uint64
	err := h.Atomically(ctx, func(s *Session) error {
		if err := s.credit(account, amount); err != nil {
			return err
		}
		var err error
		bal, err = s.Balance(account)
		return err
	})
	return bal, err
}

func (h *House) refreshGauges(ctx context.Context) {
	if h.metrics == nil {
		return
	}
	v, err := h.Treasury(ctx)
	if err != nil {
		return
	}
	h.metrics.SetTreasury(v)
}

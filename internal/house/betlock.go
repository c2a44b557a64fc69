package house

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Lock é o handle de um bet lock: NONE -> LOCKED -> RELEASED.
// Só é consumido uma vez; o flag consumed vira true apenas depois do commit da liberação.
type Lock struct {
	rec      LockRecord
	consumed bool
}

func (l *Lock) ID() string           { return l.rec.ID }
func (l *Lock) GameType() string     { return l.rec.GameType }
func (l *Lock) Bettor() string       { return l.rec.Bettor }
func (l *Lock) Stake() uint64        { return l.rec.Stake }
func (l *Lock) Fee() uint64          { return l.rec.Fee }
func (l *Lock) MaxPayout() uint64    { return l.rec.MaxPayout }
func (l *Lock) Escrowed() uint64     { return l.rec.Escrowed }
func (l *Lock) CreatedAt() time.Time { return l.rec.CreatedAt }
func (l *Lock) Consumed() bool       { return l.consumed }

// Record devolve uma cópia do estado persistido
func (l *Lock) Record() LockRecord { return l.rec }

// PayoutFor calcula stake*num/den - fee (mínimo zero) para o resultado do jogo
func (l *Lock) PayoutFor(r Ratio) (uint64, error) {
	gross, err := r.Apply(l.rec.Stake)
	if err != nil {
		return 0, err
	}
	return subSaturating(gross, l.rec.Fee), nil
}

// Leg é uma perna de aposta: stake e multiplicador máximo declarado
type Leg struct {
	Stake      *Funds
	Multiplier Ratio
}

// AcquireBetLock deposita stake na custódia, cobra o fee e separa o payout máximo num lock
func (s *Session) AcquireBetLock(w Witness, bettor string, stake *Funds, num, den uint64) (*Lock, error) {
	return s.AcquireMultiBetLock(w, bettor, []Leg{{Stake: stake, Multiplier: NewRatio(num, den)}})
}

// AcquireMultiBetLock cobre várias pernas com um único lock.
// O fee segue a FeePolicy da house: uma vez sobre o total, ou uma vez por perna.
func (s *Session) AcquireMultiBetLock(w Witness, bettor string, legs []Leg) (*Lock, error) {
	lock, err := s.acquire(w, bettor, legs)
	if err != nil {
		s.h.rejected(w.GameType(), err)
		return nil, s.fail(err)
	}
	return lock, nil
}

func (s *Session) acquire(w Witness, bettor string, legs []Leg) (*Lock, error) {
	if len(legs) == 0 {
		return nil, ErrBetAmountIsZero
	}
	g, err := s.requireApproved(w)
	if err != nil {
		return nil, err
	}
	t, err := s.Treasury()
	if err != nil {
		return nil, err
	}
	feeBps := t.FeeBps
	if g.HasFee {
		feeBps = g.FeeBps
	}

	// 1-2. valida limites antes de mover qualquer valor
	var stake, maxPayout, legFees uint64
	for _, leg := range legs {
		if leg.Stake == nil || leg.Stake.s != s || leg.Stake.spent {
			return nil, ErrForeignFunds
		}
		r := leg.Multiplier
		if err := r.validate(); err != nil {
			return nil, err
		}
		if !r.GreaterThanOne() {
			return nil, errorsmod.Wrapf(ErrBetBelowMinMultiplier, "multiplier %s", r)
		}
		if !r.AtMost(t.MaxMultiplier) {
			return nil, errorsmod.Wrapf(ErrBetExceedsMaxMultiplier, "multiplier %s, max %d", r, t.MaxMultiplier)
		}
		legMax, err := r.Apply(leg.Stake.Value())
		if err != nil {
			return nil, err
		}
		if stake, err = addChecked(stake, leg.Stake.Value(), "stake"); err != nil {
			return nil, err
		}
		if maxPayout, err = addChecked(maxPayout, legMax, "max payout"); err != nil {
			return nil, err
		}
		legFees += feeAmount(leg.Stake.Value(), feeBps)
	}
	if stake < t.MinBet {
		return nil, errorsmod.Wrapf(ErrBetBelowMin, "bet %d, min %d", stake, t.MinBet)
	}
	if stake > t.MaxBet {
		return nil, errorsmod.Wrapf(ErrBetAboveMax, "bet %d, max %d", stake, t.MaxBet)
	}

	// 3. stake entra na liquidez da treasury
	for _, leg := range legs {
		if err := s.Deposit(TreasuryAccount, leg.Stake); err != nil {
			return nil, err
		}
	}

	// 4. fee acumulado
	fee := feeAmount(stake, feeBps)
	if s.h.feePolicy == FeePerLeg {
		fee = legFees
	}
	if t.AccruedFees, err = addChecked(t.AccruedFees, fee, "accrued fees"); err != nil {
		return nil, err
	}

	// 5. capacidade medida depois do depósito: o próprio stake ajuda a cobrir o payout
	bal, err := s.Balance(TreasuryAccount)
	if err != nil {
		return nil, err
	}
	free := subSaturating(bal, t.AccruedFees)
	if free < maxPayout {
		return nil, errorsmod.Wrapf(ErrHouseInsufficientBalance, "free %d, max payout %d", free, maxPayout)
	}

	// 6. escrow = payout máximo - fee sai da custódia para o lock
	escrowed := subSaturating(maxPayout, fee)
	if err := s.debit(TreasuryAccount, escrowed); err != nil {
		return nil, err
	}
	if err := s.tx.PutTreasury(s.ctx, t); err != nil {
		return nil, err
	}
	rec := LockRecord{
		ID:        uuid.NewString(),
		GameType:  w.GameType(),
		Bettor:    bettor,
		Stake:     stake,
		Fee:       fee,
		MaxPayout: maxPayout,
		Escrowed:  escrowed,
		CreatedAt: s.Now(),
	}
	if err := s.tx.PutLock(s.ctx, rec); err != nil {
		return nil, err
	}
	s.OnCommit(func() { s.h.acquired(rec) })
	return &Lock{rec: rec}, nil
}

// LoadLock recupera o handle de um lock persistido (jogos stateful).
// Só o dono do witness do tipo do lock consegue o handle.
func (s *Session) LoadLock(w Witness, id string) (*Lock, error) {
	if err := s.verifyWitness(w); err != nil {
		return nil, s.fail(err)
	}
	lock, err := s.loadLock(id)
	if err != nil {
		return nil, s.fail(err)
	}
	if lock.rec.GameType != w.GameType() {
		return nil, s.fail(errorsmod.Wrapf(ErrWitnessMismatch, "lock %s is %s", id, lock.rec.GameType))
	}
	return lock, nil
}

// LoadLockAsAdmin recupera o handle sem witness, para liquidações forçadas do operador
func (s *Session) LoadLockAsAdmin(admin, id string) (*Lock, error) {
	if _, err := s.RequireAdmin(admin); err != nil {
		return nil, err
	}
	lock, err := s.loadLock(id)
	return lock, s.fail(err)
}

func (s *Session) loadLock(id string) (*Lock, error) {
	if s.released[id] {
		return nil, errorsmod.Wrap(ErrLockConsumed, id)
	}
	rec, ok, err := s.tx.Lock(s.ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errorsmod.Wrap(ErrLockNotFound, id)
	}
	return &Lock{rec: rec}, nil
}

// ReleaseBetLock paga payout ao bettor e devolve o restante do escrow à custódia
func (s *Session) ReleaseBetLock(lock *Lock, payout uint64) error {
	return s.fail(s.release(lock, payout))
}

func (s *Session) release(lock *Lock, payout uint64) error {
	if lock == nil || lock.consumed || s.released[lock.rec.ID] {
		return ErrLockConsumed
	}
	rec, ok, err := s.tx.Lock(s.ctx, lock.rec.ID)
	if err != nil {
		return err
	}
	if !ok {
		return errorsmod.Wrap(ErrLockNotFound, lock.rec.ID)
	}
	if payout > rec.Escrowed {
		return errorsmod.Wrapf(ErrPayoutExceedsMaxPayout, "payout %d, escrowed %d", payout, rec.Escrowed)
	}
	if err := s.credit(rec.Bettor, payout); err != nil {
		return err
	}
	// credit ignora restante zero: nada é mesclado na custódia
	if err := s.credit(TreasuryAccount, rec.Escrowed-payout); err != nil {
		return err
	}
	if err := s.tx.DeleteLock(s.ctx, rec.ID); err != nil {
		return err
	}
	s.released[rec.ID] = true
	s.OnCommit(func() {
		lock.consumed = true
		s.h.released(rec, payout)
	})
	return nil
}

// PayOut é o caminho de liquidação de jogos one-shot: stake entra na custódia,
// o fee é cobrado e stake*num/den - fee (mínimo zero) vai para player.
func (s *Session) PayOut(w Witness, player string, stake *Funds, r Ratio) (uint64, error) {
	payout, err := s.payOut(w, player, stake, r)
	return payout, s.fail(err)
}

func (s *Session) payOut(w Witness, player string, stake *Funds, r Ratio) (uint64, error) {
	g, err := s.requireApproved(w)
	if err != nil {
		return 0, err
	}
	t, err := s.Treasury()
	if err != nil {
		return 0, err
	}
	if err := r.validate(); err != nil {
		return 0, err
	}
	if !r.AtMost(t.MaxMultiplier) {
		return 0, errorsmod.Wrapf(ErrBetExceedsMaxMultiplier, "ratio %s, max %d", r, t.MaxMultiplier)
	}
	amount := stake.Value()
	if amount < t.MinBet {
		return 0, errorsmod.Wrapf(ErrBetBelowMin, "bet %d, min %d", amount, t.MinBet)
	}
	if amount > t.MaxBet {
		return 0, errorsmod.Wrapf(ErrBetAboveMax, "bet %d, max %d", amount, t.MaxBet)
	}
	gross, err := r.Apply(amount)
	if err != nil {
		return 0, err
	}
	if err := s.Deposit(TreasuryAccount, stake); err != nil {
		return 0, err
	}
	feeBps := t.FeeBps
	if g.HasFee {
		feeBps = g.FeeBps
	}
	fee := feeAmount(amount, feeBps)
	if t.AccruedFees, err = addChecked(t.AccruedFees, fee, "accrued fees"); err != nil {
		return 0, err
	}
	payout := subSaturating(gross, fee)
	bal, err := s.Balance(TreasuryAccount)
	if err != nil {
		return 0, err
	}
	if subSaturating(bal, t.AccruedFees) < payout {
		return 0, errorsmod.Wrapf(ErrHouseInsufficientBalance, "payout %d", payout)
	}
	if err := s.debit(TreasuryAccount, payout); err != nil {
		return 0, err
	}
	if err := s.credit(player, payout); err != nil {
		return 0, err
	}
	if err := s.tx.PutTreasury(s.ctx, t); err != nil {
		return 0, err
	}
	gameType := w.GameType()
	s.OnCommit(func() { s.h.paidOut(gameType, amount, fee, payout) })
	return payout, nil
}

// AcquireBetLock saca bet do bettor e abre o lock numa única transação
func (h *House) AcquireBetLock(ctx context.Context, w Witness, bettor string, bet uint64, r Ratio) (*Lock, error) {
	var lock *Lock
	err := h.Atomically(ctx, func(s *Session) error {
		f, err := s.Withdraw(bettor, bet)
		if err != nil {
			return err
		}
		lock, err = s.AcquireBetLock(w, bettor, f, r.Num, r.Den)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// ReleaseBetLock libera o lock numa única transação
func (h *House) ReleaseBetLock(ctx context.Context, lock *Lock, payout uint64) error {
	return h.Atomically(ctx, func(s *Session) error {
		return s.ReleaseBetLock(lock, payout)
	})
}

// OutstandingLocks lista os locks ainda não liberados
func (h *House) OutstandingLocks(ctx context.Context) ([]LockRecord, error) {
	var out []LockRecord
	err := h.store.InTx(ctx, func(tx Tx) error {
		var err error
		out, err = tx.Locks(ctx)
		return err
	})
	return out, err
}

func (h *House) acquired(rec LockRecord) {
	h.log.Debug("bet lock acquired",
		zap.String("lock_id", rec.ID),
		zap.String("game_type", rec.GameType),
		zap.String("bettor", rec.Bettor),
		zap.Uint64("stake", rec.Stake),
		zap.Uint64("fee", rec.Fee),
		zap.Uint64("escrowed", rec.Escrowed),
		zap.String("multiplier", NewRatio(rec.MaxPayout, rec.Stake).Decimal().StringFixed(4)),
	)
	if h.metrics != nil {
		h.metrics.LockAcquired(rec.GameType, rec.Stake, rec.Fee)
	}
	h.refreshGauges(context.Background())
}

func (h *House) released(rec LockRecord, payout uint64) {
	h.log.Debug("bet lock released",
		zap.String("lock_id", rec.ID),
		zap.String("game_type", rec.GameType),
		zap.Uint64("payout", payout),
		zap.Uint64("returned", rec.Escrowed-payout),
	)
	if h.metrics != nil {
		h.metrics.LockReleased(rec.GameType, payout)
	}
	h.refreshGauges(context.Background())
}

func (h *House) paidOut(gameType string, stake, fee, payout uint64) {
	if h.metrics != nil {
		h.metrics.PaidOut(gameType, stake, fee, payout)
	}
	h.refreshGauges(context.Background())
}

func (h *House) rejected(gameType string, err error) {
	h.log.Warn("bet lock rejected", zap.String("game_type", gameType), zap.Error(err))
	if h.metrics != nil {
		h.metrics.Rejected(gameType, KindOf(err))
	}
}

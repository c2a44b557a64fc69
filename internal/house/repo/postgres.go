package repo

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/radieske/casino-house/internal/house"
)

//go:embed schema.sql
var schema string

// Postgres implementa house.Store em banco.
// Toda transação começa travando a linha única da treasury (FOR UPDATE),
// o que serializa as operações da house como no MemStore.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema cria as tabelas (idempotente)
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) InTx(ctx context.Context, fn func(tx house.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var initialized bool
	if err := tx.QueryRowContext(ctx, `SELECT initialized FROM house_treasury WHERE id = 1 FOR UPDATE`).Scan(&initialized); err != nil {
		return fmt.Errorf("lock treasury row: %w", err)
	}

	if err := fn(&pgTx{tx: tx, initialized: initialized}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx          *sql.Tx
	initialized bool
}

// numeric converte u64 para o texto aceito por NUMERIC (database/sql não envia u64 com o bit alto)
func numeric(v uint64) string { return strconv.FormatUint(v, 10) }

func parseNumeric(field, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

// parseNumerics converte pares (campo, texto) para os destinos na mesma ordem
func parseNumerics(dst []*uint64, fields []string, src []string) error {
	for i := range dst {
		v, err := parseNumeric(fields[i], src[i])
		if err != nil {
			return err
		}
		*dst[i] = v
	}
	return nil
}

func (t *pgTx) Treasury(ctx context.Context) (house.Treasury, bool, error) {
	if !t.initialized {
		return house.Treasury{}, false, nil
	}
	var (
		tr                                            house.Treasury
		minBet, maxBet, maxMult, accrued, sharesTotal string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT admin, min_bet, max_bet, max_multiplier, fee_bps, accrued_fees, shares_supply
		FROM house_treasury WHERE id = 1`).
		Scan(&tr.Admin, &minBet, &maxBet, &maxMult, &tr.FeeBps, &accrued, &sharesTotal)
	if err != nil {
		return house.Treasury{}, false, fmt.Errorf("select treasury: %w", err)
	}
	err = parseNumerics(
		[]*uint64{&tr.MinBet, &tr.MaxBet, &tr.MaxMultiplier, &tr.AccruedFees, &tr.SharesSupply},
		[]string{"min_bet", "max_bet", "max_multiplier", "accrued_fees", "shares_supply"},
		[]string{minBet, maxBet, maxMult, accrued, sharesTotal},
	)
	if err != nil {
		return house.Treasury{}, false, err
	}
	return tr, true, nil
}

func (t *pgTx) PutTreasury(ctx context.Context, tr house.Treasury) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE house_treasury
		SET initialized = TRUE, admin = $1, min_bet = $2, max_bet = $3, max_multiplier = $4,
		    fee_bps = $5, accrued_fees = $6, shares_supply = $7
		WHERE id = 1`,
		tr.Admin, numeric(tr.MinBet), numeric(tr.MaxBet), numeric(tr.MaxMultiplier),
		int64(tr.FeeBps), numeric(tr.AccruedFees), numeric(tr.SharesSupply))
	if err != nil {
		return fmt.Errorf("update treasury: %w", err)
	}
	t.initialized = true
	return nil
}

func (t *pgTx) Balance(ctx context.Context, account string) (uint64, error) {
	return t.selectAmount(ctx, `SELECT amount FROM house_balances WHERE account = $1`, "balance", account)
}

func (t *pgTx) SetBalance(ctx context.Context, account string, amount uint64) error {
	if amount == 0 {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM house_balances WHERE account = $1`, account)
		return wrap("delete balance", err)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_balances(account, amount) VALUES($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount`, account, numeric(amount))
	return wrap("upsert balance", err)
}

func (t *pgTx) Shares(ctx context.Context, holder string) (uint64, error) {
	return t.selectAmount(ctx, `SELECT shares FROM house_shares WHERE holder = $1`, "shares", holder)
}

func (t *pgTx) SetShares(ctx context.Context, holder string, shares uint64) error {
	if shares == 0 {
		_, err := t.tx.ExecContext(ctx, `DELETE FROM house_shares WHERE holder = $1`, holder)
		return wrap("delete shares", err)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_shares(holder, shares) VALUES($1, $2)
		ON CONFLICT (holder) DO UPDATE SET shares = EXCLUDED.shares`, holder, numeric(shares))
	return wrap("upsert shares", err)
}

func (t *pgTx) selectAmount(ctx context.Context, query, field, key string) (uint64, error) {
	var s string
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select %s: %w", field, err)
	}
	return parseNumeric(field, s)
}

func (t *pgTx) Game(ctx context.Context, gameType string) (house.GameEntry, bool, error) {
	var (
		fee sql.NullInt64
		at  time.Time
	)
	err := t.tx.QueryRowContext(ctx, `SELECT fee_bps, approved_at FROM house_games WHERE game_type = $1`, gameType).
		Scan(&fee, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return house.GameEntry{}, false, nil
	}
	if err != nil {
		return house.GameEntry{}, false, fmt.Errorf("select game: %w", err)
	}
	g := house.GameEntry{GameType: gameType, ApprovedAt: at}
	if fee.Valid {
		g.FeeBps, g.HasFee = uint32(fee.Int64), true
	}
	return g, true, nil
}

func (t *pgTx) PutGame(ctx context.Context, g house.GameEntry) error {
	var fee sql.NullInt64
	if g.HasFee {
		fee = sql.NullInt64{Int64: int64(g.FeeBps), Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_games(game_type, fee_bps, approved_at) VALUES($1, $2, $3)
		ON CONFLICT (game_type) DO UPDATE SET fee_bps = EXCLUDED.fee_bps, approved_at = EXCLUDED.approved_at`,
		g.GameType, fee, g.ApprovedAt)
	return wrap("upsert game", err)
}

func (t *pgTx) DeleteGame(ctx context.Context, gameType string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM house_games WHERE game_type = $1`, gameType)
	return wrap("delete game", err)
}

const lockColumns = `id, game_type, bettor, stake, fee, max_payout, escrowed, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner) (house.LockRecord, error) {
	var (
		l                               house.LockRecord
		stake, fee, maxPayout, escrowed string
	)
	if err := row.Scan(&l.ID, &l.GameType, &l.Bettor, &stake, &fee, &maxPayout, &escrowed, &l.CreatedAt); err != nil {
		return house.LockRecord{}, err
	}
	err := parseNumerics(
		[]*uint64{&l.Stake, &l.Fee, &l.MaxPayout, &l.Escrowed},
		[]string{"stake", "fee", "max_payout", "escrowed"},
		[]string{stake, fee, maxPayout, escrowed},
	)
	return l, err
}

func (t *pgTx) Lock(ctx context.Context, id string) (house.LockRecord, bool, error) {
	l, err := scanLock(t.tx.QueryRowContext(ctx, `SELECT `+lockColumns+` FROM house_bet_locks WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return house.LockRecord{}, false, nil
	}
	if err != nil {
		return house.LockRecord{}, false, fmt.Errorf("select bet lock: %w", err)
	}
	return l, true, nil
}

func (t *pgTx) PutLock(ctx context.Context, l house.LockRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_bet_locks(`+lockColumns+`) VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET escrowed = EXCLUDED.escrowed`,
		l.ID, l.GameType, l.Bettor, numeric(l.Stake), numeric(l.Fee), numeric(l.MaxPayout), numeric(l.Escrowed), l.CreatedAt)
	return wrap("upsert bet lock", err)
}

func (t *pgTx) DeleteLock(ctx context.Context, id string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM house_bet_locks WHERE id = $1`, id)
	return wrap("delete bet lock", err)
}

func (t *pgTx) Locks(ctx context.Context) ([]house.LockRecord, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+lockColumns+` FROM house_bet_locks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select bet locks: %w", err)
	}
	defer rows.Close()

	out := []house.LockRecord{}
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet lock: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *pgTx) WitnessDigest(ctx context.Context, gameType string) (string, bool, error) {
	var d string
	err := t.tx.QueryRowContext(ctx, `SELECT digest FROM house_witnesses WHERE game_type = $1`, gameType).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select witness: %w", err)
	}
	return d, true, nil
}

// PutWitnessDigest não sobrescreve: o witness de um tipo é emitido uma única vez
func (t *pgTx) PutWitnessDigest(ctx context.Context, gameType, digest string) error {
	_, err := t.tx.ExecContext(ctx, `INSERT INTO house_witnesses(game_type, digest) VALUES($1, $2)`, gameType, digest)
	return wrap("insert witness", err)
}

func (t *pgTx) StateGame(ctx context.Context, gameType string) (house.StateGameRecord, bool, error) {
	r := house.StateGameRecord{GameType: gameType}
	err := t.tx.QueryRowContext(ctx, `SELECT creator FROM house_state_games WHERE game_type = $1`, gameType).Scan(&r.Creator)
	if errors.Is(err, sql.ErrNoRows) {
		return house.StateGameRecord{}, false, nil
	}
	if err != nil {
		return house.StateGameRecord{}, false, fmt.Errorf("select state game: %w", err)
	}
	return r, true, nil
}

func (t *pgTx) PutStateGame(ctx context.Context, r house.StateGameRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_state_games(game_type, creator) VALUES($1, $2)
		ON CONFLICT (game_type) DO UPDATE SET creator = EXCLUDED.creator`, r.GameType, r.Creator)
	return wrap("upsert state game", err)
}

func (t *pgTx) LiveWager(ctx context.Context, gameType, player string) (house.LiveWager, bool, error) {
	w := house.LiveWager{GameType: gameType, Player: player}
	err := t.tx.QueryRowContext(ctx, `
		SELECT lock_id, created_at FROM house_live_wagers WHERE game_type = $1 AND player = $2`, gameType, player).
		Scan(&w.LockID, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return house.LiveWager{}, false, nil
	}
	if err != nil {
		return house.LiveWager{}, false, fmt.Errorf("select live wager: %w", err)
	}
	return w, true, nil
}

func (t *pgTx) PutLiveWager(ctx context.Context, w house.LiveWager) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO house_live_wagers(game_type, player, lock_id, created_at) VALUES($1, $2, $3, $4)
		ON CONFLICT (game_type, player) DO UPDATE SET lock_id = EXCLUDED.lock_id, created_at = EXCLUDED.created_at`,
		w.GameType, w.Player, w.LockID, w.CreatedAt)
	return wrap("upsert live wager", err)
}

func (t *pgTx) DeleteLiveWager(ctx context.Context, gameType, player string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM house_live_wagers WHERE game_type = $1 AND player = $2`, gameType, player)
	return wrap("delete live wager", err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

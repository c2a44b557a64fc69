package house

import (
	"context"
	"time"
)

// TreasuryAccount é a conta de custódia da house no store de saldos
const TreasuryAccount = "house:treasury"

// Treasury é o singleton de parâmetros e contadores da house.
// O saldo em si fica na conta TreasuryAccount.
type Treasury struct {
	Admin         string `json:"admin"`
	MinBet        uint64 `json:"min_bet"`
	MaxBet        uint64 `json:"max_bet"`
	MaxMultiplier uint64 `json:"max_multiplier"`
	FeeBps        uint32 `json:"fee_bps"`
	AccruedFees   uint64 `json:"accrued_fees"`
	SharesSupply  uint64 `json:"shares_supply"`
}

// GameEntry é uma entrada do registro de jogos aprovados
type GameEntry struct {
	GameType string
	// FeeBps sobrescreve o fee da treasury quando HasFee
	FeeBps     uint32
	HasFee     bool
	ApprovedAt time.Time
}

// LockRecord é o estado persistido de um bet lock em aberto
type LockRecord struct {
	ID        string
	GameType  string
	Bettor    string
	Stake     uint64
	Fee       uint64
	MaxPayout uint64
	Escrowed  uint64
	CreatedAt time.Time
}

// StateGameRecord vincula um tipo de jogo stateful ao seu criador
type StateGameRecord struct {
	GameType string
	Creator  string
}

// LiveWager é o mapeamento player -> lock de um jogo stateful
type LiveWager struct {
	GameType  string
	Player    string
	LockID    string
	CreatedAt time.Time
}

// Tx é a visão transacional do store chave-valor
type Tx interface {
	Treasury(ctx context.Context) (Treasury, bool, error)
	PutTreasury(ctx context.Context, t Treasury) error

	Balance(ctx context.Context, account string) (uint64, error)
	SetBalance(ctx context.Context, account string, amount uint64) error

	Shares(ctx context.Context, holder string) (uint64, error)
	SetShares(ctx context.Context, holder string, shares uint64) error

	Game(ctx context.Context, gameType string) (GameEntry, bool, error)
	PutGame(ctx context.Context, g GameEntry) error
	DeleteGame(ctx context.Context, gameType string) error

	Lock(ctx context.Context, id string) (LockRecord, bool, error)
	PutLock(ctx context.Context, l LockRecord) error
	DeleteLock(ctx context.Context, id string) error
	Locks(ctx context.Context) ([]LockRecord, error)

	// WitnessDigest é o sha256 do token do witness emitido para gameType
	WitnessDigest(ctx context.Context, gameType string) (string, bool, error)
	PutWitnessDigest(ctx context.Context, gameType, digest string) error

	StateGame(ctx context.Context, gameType string) (StateGameRecord, bool, error)
	PutStateGame(ctx context.Context, r StateGameRecord) error

	LiveWager(ctx context.Context, gameType, player string) (LiveWager, bool, error)
	PutLiveWager(ctx context.Context, w LiveWager) error
	DeleteLiveWager(ctx context.Context, gameType, player string) error
}

// Store executa fn como uma unidade atômica: se fn falha, nada é persistido
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

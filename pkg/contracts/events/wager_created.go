package events

// Evento emitido quando um jogo stateful abre uma aposta com bet lock
type WagerCreated struct {
	WagerID   string `json:"wager_id"` // id do bet lock
	GameType  string `json:"game_type"`
	Player    string `json:"player"`
	BetAmount uint64 `json:"bet_amount"`
	Fee       uint64 `json:"fee"`
	MaxPayout uint64 `json:"max_payout"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

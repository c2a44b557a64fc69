package events

// Evento emitido na resolução de uma aposta (one-shot ou stateful)
type WagerResolved struct {
	WagerID   string `json:"wager_id,omitempty"`
	GameType  string `json:"game_type"`
	Player    string `json:"player"`
	BetAmount uint64 `json:"bet_amount"`
	Payout    uint64 `json:"payout"`
	Forced    bool   `json:"forced,omitempty"` // resolvida pelo admin por expiração
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

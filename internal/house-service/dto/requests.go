package dto

// InitRequest cria a treasury. Em todos os requests, Caller é a identidade
// de quem chama; a autenticação fica no gateway.
type InitRequest struct {
	Caller         string `json:"caller"`
	InitialDeposit uint64 `json:"initial_deposit"`
	MinBet         uint64 `json:"min_bet"`
	MaxBet         uint64 `json:"max_bet"`
	MaxMultiplier  uint64 `json:"max_multiplier"`
	FeeBps         uint32 `json:"fee_bps"`
}

type AmountRequest struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type CallerRequest struct {
	Caller string `json:"caller"`
}

// ParamsRequest altera só os campos informados
type ParamsRequest struct {
	Caller        string  `json:"caller"`
	MinBet        *uint64 `json:"min_bet,omitempty"`
	MaxBet        *uint64 `json:"max_bet,omitempty"`
	MaxMultiplier *uint64 `json:"max_multiplier,omitempty"`
	FeeBps        *uint32 `json:"fee_bps,omitempty"`
}

type SetAdminRequest struct {
	Caller string `json:"caller"`
	Admin  string `json:"admin"`
}

type GameRequest struct {
	Caller   string  `json:"caller"`
	GameType string  `json:"game_type"`
	FeeBps   *uint32 `json:"fee_bps,omitempty"` // só em approve
}

type RedeemRequest struct {
	Caller string `json:"caller"`
	Shares uint64 `json:"shares"`
}

type AccountDepositRequest struct {
	Account     string `json:"account"`
	Amount      uint64 `json:"amount"`
	ExternalRef string `json:"external_ref,omitempty"`
}

type ExpireWagerRequest struct {
	Caller   string `json:"caller"`
	GameType string `json:"game_type"`
	Player   string `json:"player"`
}

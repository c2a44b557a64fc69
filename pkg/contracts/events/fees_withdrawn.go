package events

// Evento publicado quando o admin saca os fees acumulados
type FeesWithdrawn struct {
	Admin    string `json:"admin"`
	Amount   uint64 `json:"amount"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/casino-house/internal/game"
	"github.com/radieske/casino-house/internal/house"
	"github.com/radieske/casino-house/internal/house-service/dto"
)

// Core define as operações da house expostas pela API
type Core interface {
	Init(ctx context.Context, deployer string, p house.InitParams) error
	Deposit(ctx context.Context, admin string, amount uint64) error
	WithdrawFees(ctx context.Context, admin string) (uint64, error)
	SetMinBet(ctx context.Context, admin string, v uint64) error
	SetMaxBet(ctx context.Context, admin string, v uint64) error
	SetMaxMultiplier(ctx context.Context, admin string, v uint64) error
	SetFeeBps(ctx context.Context, admin string, v uint32) error
	SetAdmin(ctx context.Context, deployer, newAdmin string) error
	Treasury(ctx context.Context) (house.TreasuryView, error)

	ApproveGame(ctx context.Context, admin, gameType string, feeBps *uint32) error
	RevokeGame(ctx context.Context, admin, gameType string) error
	Game(ctx context.Context, gameType string) (house.GameEntry, bool, error)

	AddLiquidity(ctx context.Context, provider string, amount uint64) (uint64, error)
	RedeemShares(ctx context.Context, holder string, shares uint64) (uint64, error)
	Shares(ctx context.Context, holder string) (uint64, error)

	Balance(ctx context.Context, account string) (uint64, error)
	Credit(ctx context.Context, account string, amount uint64) (uint64, error)
	OutstandingLocks(ctx context.Context) ([]house.LockRecord, error)
}

// Wagers dá acesso às apostas vivas dos jogos stateful
type Wagers interface {
	Live(ctx context.Context, gameType, player string) (game.LiveWager, bool, error)
	Expire(ctx context.Context, admin, gameType, player string) (game.Result, error)
}

// Server expõe a house via HTTP.
// Não autentica: o caller dos bodies vem do gateway, que já validou a identidade.
type Server struct {
	log             *zap.Logger
	core            Core
	wagers          Wagers
	accountDeposits bool
}

type Option func(*Server)

// WithAccountDeposits liga POST /accounts/deposit, a rampa de entrada de saldo externo.
// A rota cria saldo sem lastro na house; só faz sentido atrás do serviço de pagamentos.
func WithAccountDeposits() Option { return func(s *Server) { s.accountDeposits = true } }

func NewServer(log *zap.Logger, core Core, wagers Wagers, opts ...Option) *Server {
	s := &Server{log: log, core: core, wagers: wagers}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router retorna o roteador HTTP com as rotas da house
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/house", s.getTreasury)
	r.Post("/house/init", s.initHouse)
	r.Post("/house/deposit", s.deposit)
	r.Post("/house/fees/withdraw", s.withdrawFees)
	r.Post("/house/params", s.setParams)
	r.Post("/house/admin", s.setAdmin)

	r.Get("/games", s.getGame) // ?type=...
	r.Post("/games/approve", s.approveGame)
	r.Post("/games/revoke", s.revokeGame)

	r.Post("/liquidity/add", s.addLiquidity)
	r.Post("/liquidity/redeem", s.redeemShares)

	r.Get("/accounts", s.getAccount) // ?id=...
	if s.accountDeposits {
		// credita account sem débito correspondente: exposta só com HOUSE_ACCOUNT_DEPOSITS
		r.Post("/accounts/deposit", s.creditAccount)
	}

	r.Get("/locks", s.listLocks)
	r.Get("/wagers", s.getWager) // ?type=...&player=...
	r.Post("/wagers/expire", s.expireWager)
	return r
}

func (s *Server) getTreasury(w http.ResponseWriter, r *http.Request) {
	v, err := s.core.Treasury(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTreasuryResponse(v))
}

func (s *Server) initHouse(w http.ResponseWriter, r *http.Request) {
	var req dto.InitRequest
	if !decode(w, r, &req) {
		return
	}
	err := s.core.Init(r.Context(), req.Caller, house.InitParams{
		InitialDeposit: req.InitialDeposit,
		MinBet:         req.MinBet,
		MaxBet:         req.MaxBet,
		MaxMultiplier:  req.MaxMultiplier,
		FeeBps:         req.FeeBps,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.getTreasury(w, r)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.core.Deposit(r.Context(), req.Caller, req.Amount); err != nil {
		s.fail(w, err)
		return
	}
	s.getTreasury(w, r)
}

func (s *Server) withdrawFees(w http.ResponseWriter, r *http.Request) {
	var req dto.CallerRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := s.core.WithdrawFees(r.Context(), req.Caller)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: amount})
}

// setParams aplica cada campo em sequência; para no primeiro erro
func (s *Server) setParams(w http.ResponseWriter, r *http.Request) {
	var req dto.ParamsRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	steps := []func() error{}
	if req.MinBet != nil {
		steps = append(steps, func() error { return s.core.SetMinBet(ctx, req.Caller, *req.MinBet) })
	}
	if req.MaxBet != nil {
		steps = append(steps, func() error { return s.core.SetMaxBet(ctx, req.Caller, *req.MaxBet) })
	}
	if req.MaxMultiplier != nil {
		steps = append(steps, func() error { return s.core.SetMaxMultiplier(ctx, req.Caller, *req.MaxMultiplier) })
	}
	if req.FeeBps != nil {
		steps = append(steps, func() error { return s.core.SetFeeBps(ctx, req.Caller, *req.FeeBps) })
	}
	if len(steps) == 0 {
		writeError(w, http.StatusBadRequest, "no params", house.KindBoundsViolation)
		return
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.fail(w, err)
			return
		}
	}
	s.getTreasury(w, r)
}

func (s *Server) setAdmin(w http.ResponseWriter, r *http.Request) {
	var req dto.SetAdminRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.core.SetAdmin(r.Context(), req.Caller, req.Admin); err != nil {
		s.fail(w, err)
		return
	}
	s.getTreasury(w, r)
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	gameType := r.URL.Query().Get("type")
	if gameType == "" {
		writeError(w, http.StatusBadRequest, "type required", house.KindBoundsViolation)
		return
	}
	s.writeGame(r.Context(), w, gameType)
}

func (s *Server) approveGame(w http.ResponseWriter, r *http.Request) {
	var req dto.GameRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.core.ApproveGame(r.Context(), req.Caller, req.GameType, req.FeeBps); err != nil {
		s.fail(w, err)
		return
	}
	s.writeGame(r.Context(), w, req.GameType)
}

func (s *Server) revokeGame(w http.ResponseWriter, r *http.Request) {
	var req dto.GameRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.core.RevokeGame(r.Context(), req.Caller, req.GameType); err != nil {
		s.fail(w, err)
		return
	}
	s.writeGame(r.Context(), w, req.GameType)
}

func (s *Server) writeGame(ctx context.Context, w http.ResponseWriter, gameType string) {
	g, ok, err := s.core.Game(ctx, gameType)
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := dto.GameResponse{GameType: gameType, Approved: ok}
	if ok {
		at := g.ApprovedAt
		resp.ApprovedAt = &at
		if g.HasFee {
			fee := g.FeeBps
			resp.FeeBps = &fee
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) addLiquidity(w http.ResponseWriter, r *http.Request) {
	var req dto.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	minted, err := s.core.AddLiquidity(r.Context(), req.Caller, req.Amount)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SharesResponse{Shares: minted})
}

func (s *Server) redeemShares(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := s.core.RedeemShares(r.Context(), req.Caller, req.Shares)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AmountResponse{Amount: amount})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id required", house.KindBoundsViolation)
		return
	}
	s.writeAccount(r.Context(), w, id)
}

// creditAccount credita saldo externo (rampa de entrada) numa conta.
// O lastro é do chamador: external_ref liga o crédito ao pagamento confirmado lá fora.
func (s *Server) creditAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.AccountDepositRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account required", house.KindBoundsViolation)
		return
	}
	if _, err := s.core.Credit(r.Context(), req.Account, req.Amount); err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("account credited",
		zap.String("account", req.Account),
		zap.Uint64("amount", req.Amount),
		zap.String("external_ref", req.ExternalRef))
	s.writeAccount(r.Context(), w, req.Account)
}

func (s *Server) writeAccount(ctx context.Context, w http.ResponseWriter, id string) {
	bal, err := s.core.Balance(ctx, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	shares, err := s.core.Shares(ctx, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AccountResponse{Account: id, Balance: bal, Shares: shares})
}

func (s *Server) listLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := s.core.OutstandingLocks(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	resp := dto.LocksResponse{Locks: make([]dto.LockResponse, 0, len(locks))}
	for _, l := range locks {
		resp.Locks = append(resp.Locks, dto.NewLockResponse(l))
		resp.Liability += l.Escrowed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gameType, player := q.Get("type"), q.Get("player")
	if gameType == "" || player == "" {
		writeError(w, http.StatusBadRequest, "type and player required", house.KindBoundsViolation)
		return
	}
	lw, ok, err := s.wagers.Live(r.Context(), gameType, player)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no live wager", house.KindStateConflict)
		return
	}
	writeJSON(w, http.StatusOK, lw)
}

// expireWager força a resolução de uma aposta abandonada (empate)
func (s *Server) expireWager(w http.ResponseWriter, r *http.Request) {
	var req dto.ExpireWagerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.wagers.Expire(r.Context(), req.Caller, req.GameType, req.Player)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusOf mapeia o tipo de abort para o status HTTP
func statusOf(k house.Kind) int {
	switch k {
	case house.KindAuthorization:
		return http.StatusForbidden
	case house.KindBoundsViolation:
		return http.StatusBadRequest
	case house.KindInsufficientFunds, house.KindStateConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	k := house.KindOf(err)
	status := statusOf(k)
	if status == http.StatusInternalServerError {
		s.log.Error("house request failed", zap.Error(err))
	} else {
		s.log.Debug("house request rejected", zap.String("kind", string(k)), zap.Error(err))
	}
	writeError(w, status, err.Error(), k)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", house.KindBoundsViolation)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string, k house.Kind) {
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Kind: string(k)})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

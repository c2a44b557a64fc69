package house

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/casino-house/pkg/contracts/events"
)

// FeePolicy define como o fee incide em apostas com várias pernas
type FeePolicy string

const (
	// FeePerWager cobra um único fee sobre o stake total do lock
	FeePerWager FeePolicy = "per_wager"
	// FeePerLeg cobra o fee de cada perna separadamente
	FeePerLeg FeePolicy = "per_leg"
)

// ParseFeePolicy valida o valor vindo de config
func ParseFeePolicy(s string) (FeePolicy, error) {
	switch FeePolicy(s) {
	case "", FeePerWager:
		return FeePerWager, nil
	case FeePerLeg:
		return FeePerLeg, nil
	default:
		return "", fmt.Errorf("unknown fee policy %q", s)
	}
}

// Publisher recebe os eventos da house depois do commit
type Publisher interface {
	PublishWagerCreated(context.Context, events.WagerCreated) error
	PublishWagerResolved(context.Context, events.WagerResolved) error
	PublishFeesWithdrawn(context.Context, events.FeesWithdrawn) error
}

// ApprovalCache é um cache de leitura de IsGameApproved
type ApprovalCache interface {
	Get(ctx context.Context, gameType string) (approved bool, found bool, err error)
	Set(ctx context.Context, gameType string, approved bool) error
	Invalidate(ctx context.Context, gameType string) error
}

// House é o núcleo de liquidação: treasury, registro de jogos e bet locks.
// Toda operação pública roda como uma única transação do Store.
type House struct {
	store     Store
	log       *zap.Logger
	metrics   *Metrics
	publisher Publisher
	approvals ApprovalCache
	deployer  string
	feePolicy FeePolicy
	now       func() time.Time
}

type Option func(*House)

func WithLogger(l *zap.Logger) Option { return func(h *House) { h.log = l } }

func WithMetrics(m *Metrics) Option { return func(h *House) { h.metrics = m } }

func WithPublisher(p Publisher) Option { return func(h *House) { h.publisher = p } }

func WithApprovalCache(c ApprovalCache) Option { return func(h *House) { h.approvals = c } }

func WithFeePolicy(p FeePolicy) Option { return func(h *House) { h.feePolicy = p } }

func WithClock(now func() time.Time) Option { return func(h *House) { h.now = now } }

// New cria a house sobre o store; deployer é a identidade canônica que pode chamar Init
func New(store Store, deployer string, opts ...Option) *House {
	h := &House{
		store:     store,
		log:       zap.NewNop(),
		deployer:  deployer,
		feePolicy: FeePerWager,
		now:       time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *House) Deployer() string { return h.deployer }

func (h *House) FeePolicy() FeePolicy { return h.feePolicy }

func (h *House) Now() time.Time { return h.now() }

func (h *House) Logger() *zap.Logger { return h.log }

// Atomically executa fn numa sessão transacional.
// Se fn falhar, ou deixar fundos sacados sem destino, nada é persistido.
func (h *House) Atomically(ctx context.Context, fn func(s *Session) error) error {
	var s *Session
	err := h.store.InTx(ctx, func(tx Tx) error {
		s = newSession(ctx, h, tx)
		if err := fn(s); err != nil {
			return err
		}
		return s.finish()
	})
	if err != nil {
		return err
	}
	s.committed()
	return nil
}

func (h *House) publish(ctx context.Context, ev any) {
	if h.publisher == nil {
		return
	}
	var err error
	switch e := ev.(type) {
	case events.WagerCreated:
		err = h.publisher.PublishWagerCreated(ctx, e)
	case events.WagerResolved:
		err = h.publisher.PublishWagerResolved(ctx, e)
	case events.FeesWithdrawn:
		err = h.publisher.PublishFeesWithdrawn(ctx, e)
	default:
		err = fmt.Errorf("unknown event %T", ev)
	}
	if err != nil {
		h.log.Error("publish event", zap.String("event", fmt.Sprintf("%T", ev)), zap.Error(err))
	}
}

package house

import (
	"context"
	"time"

	errorsmod "cosmossdk.io/errors"
)

// Funds são valores sacados de uma conta e ainda sem destino.
// Devem ser depositados (ou entrar num lock) antes do fim da sessão.
type Funds struct {
	s      *Session
	amount uint64
	spent  bool
}

// Value retorna o valor dos fundos
func (f *Funds) Value() uint64 {
	if f == nil {
		return 0
	}
	return f.amount
}

// Session é a unidade atômica de trabalho sobre o store
type Session struct {
	ctx      context.Context
	h        *House
	tx       Tx
	funds    []*Funds
	released map[string]bool
	onCommit []func()
	events   []any
	// err é a primeira falha da sessão; uma vez setado, o commit é recusado
	err error
}

func newSession(ctx context.Context, h *House, tx Tx) *Session {
	return &Session{ctx: ctx, h: h, tx: tx, released: map[string]bool{}}
}

func (s *Session) Context() context.Context { return s.ctx }

// Tx expõe o store transacional para os adaptadores de jogo
func (s *Session) Tx() Tx { return s.tx }

func (s *Session) House() *House { return s.h }

func (s *Session) Now() time.Time { return s.h.now() }

// OnCommit registra fn para rodar só depois do commit
func (s *Session) OnCommit(fn func()) { s.onCommit = append(s.onCommit, fn) }

// Emit enfileira um evento para publicação depois do commit
func (s *Session) Emit(ev any) { s.events = append(s.events, ev) }

// Fail marca a sessão como falha e devolve err.
// Use quando o jogo já mexeu no store via Tx e não pode seguir.
func (s *Session) Fail(err error) error { return s.fail(err) }

func (s *Session) fail(err error) error {
	if err != nil && s.err == nil {
		s.err = err
	}
	return err
}

// Err retorna a falha que vai abortar a sessão, se houver
func (s *Session) Err() error { return s.err }

// Treasury carrega o singleton; ErrNotInitialized se a house não foi criada
func (s *Session) Treasury() (Treasury, error) {
	t, ok, err := s.tx.Treasury(s.ctx)
	if err != nil {
		return Treasury{}, err
	}
	if !ok {
		return Treasury{}, ErrNotInitialized
	}
	return t, nil
}

// RequireAdmin carrega a treasury e confere o admin
func (s *Session) RequireAdmin(caller string) (Treasury, error) {
	t, err := s.Treasury()
	if err != nil {
		return Treasury{}, s.fail(err)
	}
	if caller != t.Admin {
		return Treasury{}, s.fail(errorsmod.Wrapf(ErrNotAdmin, "caller %s", caller))
	}
	return t, nil
}

func (s *Session) Balance(account string) (uint64, error) {
	return s.tx.Balance(s.ctx, account)
}

// Withdraw debita a conta e devolve os fundos para a sessão
func (s *Session) Withdraw(account string, amount uint64) (*Funds, error) {
	if amount == 0 {
		return nil, s.fail(ErrAmountInvalid)
	}
	if err := s.debit(account, amount); err != nil {
		return nil, s.fail(err)
	}
	f := &Funds{s: s, amount: amount}
	s.funds = append(s.funds, f)
	return f, nil
}

// Deposit credita os fundos na conta e os consome
func (s *Session) Deposit(account string, f *Funds) error {
	if err := s.consume(f); err != nil {
		return s.fail(err)
	}
	return s.fail(s.credit(account, f.amount))
}

func (s *Session) consume(f *Funds) error {
	if f == nil || f.s != s {
		return ErrForeignFunds
	}
	if f.spent {
		return errorsmod.Wrap(ErrFundsLeaked, "funds already spent")
	}
	f.spent = true
	return nil
}

func (s *Session) credit(account string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := s.tx.Balance(s.ctx, account)
	if err != nil {
		return err
	}
	next, err := addChecked(bal, amount, "balance of "+account)
	if err != nil {
		return err
	}
	return s.tx.SetBalance(s.ctx, account, next)
}

func (s *Session) debit(account string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	bal, err := s.tx.Balance(s.ctx, account)
	if err != nil {
		return err
	}
	if bal < amount {
		return errorsmod.Wrapf(ErrInsufficientBalance, "%s has %d, needs %d", account, bal, amount)
	}
	return s.tx.SetBalance(s.ctx, account, bal-amount)
}

// finish roda antes do commit: nenhuma falha engolida, nenhum fundo solto e fees <= saldo
func (s *Session) finish() error {
	if s.err != nil {
		return s.err
	}
	for _, f := range s.funds {
		if !f.spent {
			return errorsmod.Wrapf(ErrFundsLeaked, "%d left in session", f.amount)
		}
	}
	t, ok, err := s.tx.Treasury(s.ctx)
	if err != nil || !ok {
		return err
	}
	bal, err := s.tx.Balance(s.ctx, TreasuryAccount)
	if err != nil {
		return err
	}
	if bal < t.AccruedFees {
		return errorsmod.Wrapf(ErrFeesExceedBalance, "balance=%d fees=%d", bal, t.AccruedFees)
	}
	return nil
}

func (s *Session) committed() {
	for _, fn := range s.onCommit {
		fn()
	}
	for _, ev := range s.events {
		s.h.publish(s.ctx, ev)
	}
}

package house

import (
	"context"
	"sort"
	"sync"
)

// memState é o estado completo do MemStore; cada tx trabalha sobre um clone
type memState struct {
	treasury   *Treasury
	balances   map[string]uint64
	shares     map[string]uint64
	games      map[string]GameEntry
	locks      map[string]LockRecord
	witnesses  map[string]string
	stateGames map[string]StateGameRecord
	liveWagers map[string]LiveWager
}

func newMemState() *memState {
	return &memState{
		balances:   map[string]uint64{},
		shares:     map[string]uint64{},
		games:      map[string]GameEntry{},
		locks:      map[string]LockRecord{},
		witnesses:  map[string]string{},
		stateGames: map[string]StateGameRecord{},
		liveWagers: map[string]LiveWager{},
	}
}

func (s *memState) clone() *memState {
	out := newMemState()
	if s.treasury != nil {
		t := *s.treasury
		out.treasury = &t
	}
	for k, v := range s.balances {
		out.balances[k] = v
	}
	for k, v := range s.shares {
		out.shares[k] = v
	}
	for k, v := range s.games {
		out.games[k] = v
	}
	for k, v := range s.locks {
		out.locks[k] = v
	}
	for k, v := range s.witnesses {
		out.witnesses[k] = v
	}
	for k, v := range s.stateGames {
		out.stateGames[k] = v
	}
	for k, v := range s.liveWagers {
		out.liveWagers[k] = v
	}
	return out
}

// MemStore guarda o estado em memória.
// Cada InTx executa sobre uma cópia e só troca o estado se fn retornar nil.
type MemStore struct {
	mu sync.Mutex
	st *memState
}

func NewMemStore() *MemStore { return &MemStore{st: newMemState()} }

func (m *MemStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := m.st.clone()
	if err := fn(&memTx{st: staged}); err != nil {
		return err
	}
	m.st = staged
	return nil
}

type memTx struct{ st *memState }

func liveWagerKey(gameType, player string) string { return gameType + "|" + player }

func (t *memTx) Treasury(_ context.Context) (Treasury, bool, error) {
	if t.st.treasury == nil {
		return Treasury{}, false, nil
	}
	return *t.st.treasury, true, nil
}

func (t *memTx) PutTreasury(_ context.Context, tr Treasury) error {
	t.st.treasury = &tr
	return nil
}

func (t *memTx) Balance(_ context.Context, account string) (uint64, error) {
	return t.st.balances[account], nil
}

func (t *memTx) SetBalance(_ context.Context, account string, amount uint64) error {
	if amount == 0 {
		delete(t.st.balances, account)
		return nil
	}
	t.st.balances[account] = amount
	return nil
}

func (t *memTx) Shares(_ context.Context, holder string) (uint64, error) {
	return t.st.shares[holder], nil
}

func (t *memTx) SetShares(_ context.Context, holder string, shares uint64) error {
	if shares == 0 {
		delete(t.st.shares, holder)
		return nil
	}
	t.st.shares[holder] = shares
	return nil
}

func (t *memTx) Game(_ context.Context, gameType string) (GameEntry, bool, error) {
	g, ok := t.st.games[gameType]
	return g, ok, nil
}

func (t *memTx) PutGame(_ context.Context, g GameEntry) error {
	t.st.games[g.GameType] = g
	return nil
}

func (t *memTx) DeleteGame(_ context.Context, gameType string) error {
	delete(t.st.games, gameType)
	return nil
}

func (t *memTx) Lock(_ context.Context, id string) (LockRecord, bool, error) {
	l, ok := t.st.locks[id]
	return l, ok, nil
}

func (t *memTx) PutLock(_ context.Context, l LockRecord) error {
	t.st.locks[l.ID] = l
	return nil
}

func (t *memTx) DeleteLock(_ context.Context, id string) error {
	delete(t.st.locks, id)
	return nil
}

func (t *memTx) Locks(_ context.Context) ([]LockRecord, error) {
	out := make([]LockRecord, 0, len(t.st.locks))
	for _, l := range t.st.locks {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memTx) WitnessDigest(_ context.Context, gameType string) (string, bool, error) {
	d, ok := t.st.witnesses[gameType]
	return d, ok, nil
}

func (t *memTx) PutWitnessDigest(_ context.Context, gameType, digest string) error {
	t.st.witnesses[gameType] = digest
	return nil
}

func (t *memTx) StateGame(_ context.Context, gameType string) (StateGameRecord, bool, error) {
	r, ok := t.st.stateGames[gameType]
	return r, ok, nil
}

func (t *memTx) PutStateGame(_ context.Context, r StateGameRecord) error {
	t.st.stateGames[r.GameType] = r
	return nil
}

func (t *memTx) LiveWager(_ context.Context, gameType, player string) (LiveWager, bool, error) {
	w, ok := t.st.liveWagers[liveWagerKey(gameType, player)]
	return w, ok, nil
}

func (t *memTx) PutLiveWager(_ context.Context, w LiveWager) error {
	t.st.liveWagers[liveWagerKey(w.GameType, w.Player)] = w
	return nil
}

func (t *memTx) DeleteLiveWager(_ context.Context, gameType, player string) error {
	delete(t.st.liveWagers, liveWagerKey(gameType, player))
	return nil
}

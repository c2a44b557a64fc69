package house

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Witness prova que o chamador é o módulo dono de um tipo de jogo.
// É emitido uma única vez por tipo (IssueWitness); o store guarda só o sha256 do token,
// e toda operação que move fundos confere o token contra esse digest.
type Witness struct {
	gameType string
	token    string
}

// IssueWitness emite o witness de gameType para o seu criador.
// O criador precisa ser o namespace do tipo ("<namespace>::<module>::<Name>"), e um
// tipo só recebe witness uma vez: guarde o token (Token) para RestoreWitness.
func (h *House) IssueWitness(ctx context.Context, creator, gameType string) (Witness, error) {
	ns := Namespace(gameType)
	if ns == "" || creator != ns {
		return Witness{}, errorsmod.Wrapf(ErrCallerNotCreator, "creator %s, game type %s", creator, gameType)
	}
	w := Witness{gameType: gameType, token: uuid.NewString()}
	err := h.store.InTx(ctx, func(tx Tx) error {
		_, ok, err := tx.WitnessDigest(ctx, gameType)
		if err != nil {
			return err
		}
		if ok {
			return errorsmod.Wrap(ErrWitnessIssued, gameType)
		}
		return tx.PutWitnessDigest(ctx, gameType, witnessDigest(w.token))
	})
	if err != nil {
		return Witness{}, err
	}
	h.log.Info("witness issued", zap.String("game_type", gameType), zap.String("creator", creator))
	return w, nil
}

// RestoreWitness remonta o witness a partir do token guardado pelo criador (ex.: depois de um restart).
// Um token errado só é detectado no uso, com ErrInvalidWitness.
func RestoreWitness(gameType, token string) Witness {
	return Witness{gameType: gameType, token: token}
}

func witnessDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Namespace retorna o prefixo do tipo de jogo antes do primeiro "::"
func Namespace(gameType string) string {
	ns, _, ok := strings.Cut(gameType, "::")
	if !ok {
		return ""
	}
	return ns
}

func (w Witness) GameType() string { return w.gameType }

// Token é o segredo do witness; quem o tiver age como o jogo
func (w Witness) Token() string { return w.token }

func (w Witness) Valid() bool { return w.gameType != "" && w.token != "" }

// VerifyWitness confere o token de w contra o digest emitido para o tipo
func (s *Session) VerifyWitness(w Witness) error {
	return s.fail(s.verifyWitness(w))
}

func (s *Session) verifyWitness(w Witness) error {
	if !w.Valid() {
		return ErrInvalidWitness
	}
	digest, ok, err := s.tx.WitnessDigest(s.ctx, w.gameType)
	if err != nil {
		return err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(digest), []byte(witnessDigest(w.token))) != 1 {
		return errorsmod.Wrapf(ErrInvalidWitness, "game type %s", w.gameType)
	}
	return nil
}

// RequireApproved confere o witness e a aprovação do jogo dentro da sessão
func (s *Session) RequireApproved(w Witness) (GameEntry, error) {
	g, err := s.requireApproved(w)
	return g, s.fail(err)
}

func (s *Session) requireApproved(w Witness) (GameEntry, error) {
	if err := s.verifyWitness(w); err != nil {
		return GameEntry{}, err
	}
	g, ok, err := s.tx.Game(s.ctx, w.gameType)
	if err != nil {
		return GameEntry{}, err
	}
	if !ok {
		return GameEntry{}, errorsmod.Wrap(ErrGameNotApproved, w.gameType)
	}
	return g, nil
}

// ApproveGame registra gameType; feeBps opcional sobrescreve o fee da treasury
func (h *House) ApproveGame(ctx context.Context, admin, gameType string, feeBps *uint32) error {
	if Namespace(gameType) == "" {
		return errorsmod.Wrapf(ErrInvalidParams, "malformed game type %q", gameType)
	}
	if feeBps != nil && uint64(*feeBps) > FeeDivisor {
		return errorsmod.Wrapf(ErrInvalidParams, "fee bps %d", *feeBps)
	}
	err := h.Atomically(ctx, func(s *Session) error {
		if _, err := s.RequireAdmin(admin); err != nil {
			return err
		}
		_, ok, err := s.tx.Game(ctx, gameType)
		if err != nil {
			return err
		}
		if ok {
			return errorsmod.Wrap(ErrGameAlreadyApproved, gameType)
		}
		g := GameEntry{GameType: gameType, ApprovedAt: s.Now()}
		if feeBps != nil {
			g.FeeBps, g.HasFee = *feeBps, true
		}
		if err := s.tx.PutGame(ctx, g); err != nil {
			return err
		}
		s.OnCommit(func() { h.invalidateApproval(ctx, gameType) })
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("game approved", zap.String("game_type", gameType))
	return nil
}

// RevokeGame remove gameType do registro
func (h *House) RevokeGame(ctx context.Context, admin, gameType string) error {
	err := h.Atomically(ctx, func(s *Session) error {
		if _, err := s.RequireAdmin(admin); err != nil {
			return err
		}
		_, ok, err := s.tx.Game(ctx, gameType)
		if err != nil {
			return err
		}
		if !ok {
			return errorsmod.Wrap(ErrGameNotApproved, gameType)
		}
		if err := s.tx.DeleteGame(ctx, gameType); err != nil {
			return err
		}
		s.OnCommit(func() { h.invalidateApproval(ctx, gameType) })
		return nil
	})
	if err != nil {
		return err
	}
	h.log.Info("game revoked", zap.String("game_type", gameType))
	return nil
}

// Game retorna a entrada do registro
func (h *House) Game(ctx context.Context, gameType string) (GameEntry, bool, error) {
	var (
		g  GameEntry
		ok bool
	)
	err := h.store.InTx(ctx, func(tx Tx) error {
		var err error
		g, ok, err = tx.Game(ctx, gameType)
		return err
	})
	return g, ok, err
}

// IsGameApproved consulta o cache (se houver) e cai no store
func (h *House) IsGameApproved(ctx context.Context, gameType string) (bool, error) {
	if h.approvals != nil {
		approved, found, err := h.approvals.Get(ctx, gameType)
		if err == nil && found {
			return approved, nil
		}
		if err != nil {
			h.log.Warn("approval cache get", zap.String("game_type", gameType), zap.Error(err))
		}
	}
	_, ok, err := h.Game(ctx, gameType)
	if err != nil {
		return false, err
	}
	if h.approvals == nil {
		return ok, nil
	}
	if err := h.approvals.Set(ctx, gameType, ok); err != nil {
		h.log.Warn("approval cache set", zap.String("game_type", gameType), zap.Error(err))
		return ok, nil
	}
	// approve/revoke entre a leitura e o Set: a invalidação deles já passou, então relê
	_, now, err := h.Game(ctx, gameType)
	if err != nil {
		h.invalidateApproval(ctx, gameType)
		return false, err
	}
	if now != ok {
		h.invalidateApproval(ctx, gameType)
	}
	return now, nil
}

func (h *House) invalidateApproval(ctx context.Context, gameType string) {
	if h.approvals == nil {
		return
	}
	if err := h.approvals.Invalidate(ctx, gameType); err != nil {
		h.log.Error("approval cache invalidate", zap.String("game_type", gameType), zap.Error(err))
	}
}

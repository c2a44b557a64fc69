package house

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// ModuleName é o codespace dos erros registrados pela house
const ModuleName = "house"

// Kind classifica os motivos de abort em cinco famílias
type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindAuthorization      Kind = "authorization"
	KindBoundsViolation    Kind = "bounds_violation"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindStateConflict      Kind = "state_conflict"
	KindInvariantViolation Kind = "invariant_violation"
)

var (
	// Authorization
	ErrNotDeployer      = errorsmod.Register(ModuleName, 1, "caller is not the deployer")
	ErrNotAdmin         = errorsmod.Register(ModuleName, 2, "caller is not the admin")
	ErrCallerNotCreator = errorsmod.Register(ModuleName, 3, "caller is not the game creator")
	ErrInvalidWitness   = errorsmod.Register(ModuleName, 4, "invalid game witness")
	ErrWitnessMismatch  = errorsmod.Register(ModuleName, 5, "witness does not match wager game type")

	// BoundsViolation
	ErrAmountInvalid           = errorsmod.Register(ModuleName, 10, "amount is invalid")
	ErrBetBelowMin             = errorsmod.Register(ModuleName, 11, "bet below min bet")
	ErrBetAboveMax             = errorsmod.Register(ModuleName, 12, "bet above max bet")
	ErrBetBelowMinMultiplier   = errorsmod.Register(ModuleName, 13, "multiplier must be greater than one")
	ErrBetExceedsMaxMultiplier = errorsmod.Register(ModuleName, 14, "multiplier exceeds max multiplier")
	ErrInvalidRatio            = errorsmod.Register(ModuleName, 15, "ratio denominator must be positive")
	ErrBetAmountIsZero         = errorsmod.Register(ModuleName, 16, "bet amount is zero")
	ErrInvalidParams           = errorsmod.Register(ModuleName, 17, "invalid treasury parameters")
	ErrArithmeticOverflow      = errorsmod.Register(ModuleName, 18, "arithmetic overflow")

	// InsufficientFunds
	ErrInsufficientBalance      = errorsmod.Register(ModuleName, 20, "insufficient balance")
	ErrHouseInsufficientBalance = errorsmod.Register(ModuleName, 21, "house has insufficient balance")
	ErrInsufficientShares       = errorsmod.Register(ModuleName, 22, "insufficient shares")
	ErrTreasuryDepleted         = errorsmod.Register(ModuleName, 23, "treasury depleted with shares outstanding")

	// StateConflict
	ErrNotInitialized      = errorsmod.Register(ModuleName, 30, "not initialized")
	ErrAlreadyInitialized  = errorsmod.Register(ModuleName, 31, "already initialized")
	ErrGameNotApproved     = errorsmod.Register(ModuleName, 32, "game not approved")
	ErrGameAlreadyApproved = errorsmod.Register(ModuleName, 33, "game already approved")
	ErrPlayerAlreadyInGame = errorsmod.Register(ModuleName, 34, "player already in game")
	ErrPlayerNotInGame     = errorsmod.Register(ModuleName, 35, "player not in game")
	ErrWagerNotExpired     = errorsmod.Register(ModuleName, 36, "wager has not expired")
	ErrWagerResolved       = errorsmod.Register(ModuleName, 37, "wager already resolved")
	ErrWitnessIssued       = errorsmod.Register(ModuleName, 38, "witness already issued for game type")

	// InvariantViolation
	ErrPayoutExceedsMaxPayout = errorsmod.Register(ModuleName, 40, "payout exceeds max payout")
	ErrLockConsumed           = errorsmod.Register(ModuleName, 41, "bet lock already consumed")
	ErrLockNotFound           = errorsmod.Register(ModuleName, 42, "bet lock not found")
	ErrFundsLeaked            = errorsmod.Register(ModuleName, 43, "withdrawn funds were not deposited")
	ErrForeignFunds           = errorsmod.Register(ModuleName, 44, "funds belong to another session")
	ErrFeesExceedBalance      = errorsmod.Register(ModuleName, 45, "accrued fees exceed treasury balance")
)

var kinds = []struct {
	kind Kind
	errs []*errorsmod.Error
}{
	{KindAuthorization, []*errorsmod.Error{ErrNotDeployer, ErrNotAdmin, ErrCallerNotCreator, ErrInvalidWitness, ErrWitnessMismatch}},
	{KindBoundsViolation, []*errorsmod.Error{ErrAmountInvalid, ErrBetBelowMin, ErrBetAboveMax, ErrBetBelowMinMultiplier,
		ErrBetExceedsMaxMultiplier, ErrInvalidRatio, ErrBetAmountIsZero, ErrInvalidParams, ErrArithmeticOverflow}},
	{KindInsufficientFunds, []*errorsmod.Error{ErrInsufficientBalance, ErrHouseInsufficientBalance, ErrInsufficientShares, ErrTreasuryDepleted}},
	{KindStateConflict, []*errorsmod.Error{ErrNotInitialized, ErrAlreadyInitialized, ErrGameNotApproved, ErrGameAlreadyApproved,
		ErrPlayerAlreadyInGame, ErrPlayerNotInGame, ErrWagerNotExpired, ErrWagerResolved, ErrWitnessIssued}},
	{KindInvariantViolation, []*errorsmod.Error{ErrPayoutExceedsMaxPayout, ErrLockConsumed, ErrLockNotFound, ErrFundsLeaked,
		ErrForeignFunds, ErrFeesExceedBalance}},
}

// KindOf retorna a família do erro, ou KindUnknown para erros de infraestrutura
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		for _, target := range k.errs {
			if errors.Is(err, target) {
				return k.kind
			}
		}
	}
	return KindUnknown
}

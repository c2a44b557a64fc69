package house

import (
	"fmt"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// FeeDivisor é a escala de basis points
const FeeDivisor uint64 = 10000

// Ratio é uma razão de payout numerator/denominator.
// O payout nunca passa por ponto flutuante: multiplica primeiro, divide por último.
type Ratio struct {
	Num uint64 `json:"num"`
	Den uint64 `json:"den"`
}

// NewRatio monta a razão num/den
func NewRatio(num, den uint64) Ratio { return Ratio{Num: num, Den: den} }

func (r Ratio) validate() error {
	if r.Den == 0 {
		return ErrInvalidRatio
	}
	return nil
}

// GreaterThanOne indica num/den > 1
func (r Ratio) GreaterThanOne() bool { return r.Num > r.Den }

// AtMost indica num/den <= max (inteiro)
func (r Ratio) AtMost(max uint64) bool {
	lhs := sdkmath.NewUint(r.Num)
	rhs := sdkmath.NewUint(max).MulUint64(r.Den)
	return lhs.LTE(rhs)
}

// Apply calcula amount*num/den truncando
func (r Ratio) Apply(amount uint64) (uint64, error) {
	if err := r.validate(); err != nil {
		return 0, err
	}
	return mulDiv(amount, r.Num, r.Den)
}

// Decimal é só para exibição (logs, DTOs)
func (r Ratio) Decimal() decimal.Decimal {
	if r.Den == 0 {
		return decimal.Zero
	}
	num := decimal.NewFromBigInt(new(big.Int).SetUint64(r.Num), 0)
	den := decimal.NewFromBigInt(new(big.Int).SetUint64(r.Den), 0)
	return num.Div(den)
}

func (r Ratio) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// mulDiv calcula a*b/c sem overflow intermediário
func mulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrInvalidRatio
	}
	q := sdkmath.NewUint(a).MulUint64(b).QuoUint64(c)
	if !q.BigInt().IsUint64() {
		return 0, errorsmod.Wrapf(ErrArithmeticOverflow, "%d*%d/%d", a, b, c)
	}
	return q.Uint64(), nil
}

// feeAmount = bet * bps / 10000, arredondando para baixo
func feeAmount(bet uint64, bps uint32) uint64 {
	// bps <= 10000, então o resultado sempre cabe em u64
	q, _ := mulDiv(bet, uint64(bps), FeeDivisor)
	return q
}

func addChecked(a, b uint64, field string) (uint64, error) {
	if a > ^uint64(0)-b {
		return 0, errorsmod.Wrapf(ErrArithmeticOverflow, "%s overflows uint64", field)
	}
	return a + b, nil
}

func subSaturating(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

package types

import (
	"errors"
	"fmt"

	"github.com/colorfulnotion/zkapply/currency"
)

var (
	ErrFeeExcessTokens   = errors.New("fee excess spans more than two tokens")
	ErrFeeExcessOverflow = errors.New("fee excess overflow")
)

// TokenFee is a signed fee in one token.
type TokenFee struct {
	Token TokenId
	Fee   currency.Signed[currency.Fee]
}

// FeeExcess is the net fee a sequence of transactions leaves unclaimed, in
// at most two tokens. An entry with a zero excess always names the
// default token.
type FeeExcess struct {
	FeeTokenL  TokenId                       `json:"fee_token_l"`
	FeeExcessL currency.Signed[currency.Fee] `json:"fee_excess_l"`
	FeeTokenR  TokenId                       `json:"fee_token_r"`
	FeeExcessR currency.Signed[currency.Fee] `json:"fee_excess_r"`
}

func ZeroFeeExcess() FeeExcess {
	return FeeExcess{FeeTokenL: DefaultTokenId, FeeTokenR: DefaultTokenId}
}

func OfSingle(token TokenId, fee currency.Signed[currency.Fee]) FeeExcess {
	fe := FeeExcess{FeeTokenL: token, FeeExcessL: fee, FeeTokenR: DefaultTokenId}
	if fee.IsZero() {
		fe.FeeTokenL = DefaultTokenId
	}
	return fe
}

// OfOneOrTwo builds the excess of one or two token fees.
func OfOneOrTwo(parts []TokenFee) (FeeExcess, error) {
	switch len(parts) {
	case 1:
		return OfSingle(parts[0].Token, parts[0].Fee), nil
	case 2:
		return FeeExcess{
			FeeTokenL: parts[0].Token, FeeExcessL: parts[0].Fee,
			FeeTokenR: parts[1].Token, FeeExcessR: parts[1].Fee,
		}.Rebalance()
	}
	return FeeExcess{}, fmt.Errorf("%w: %d parts", ErrFeeExcessTokens, len(parts))
}

func (fe FeeExcess) IsZero() bool {
	return fe.FeeExcessL.IsZero() && fe.FeeExcessR.IsZero()
}

// Rebalance merges both sides when they share a token, moves a lone
// non-zero excess to the left, and resets zero entries to the default token.
func (fe FeeExcess) Rebalance() (FeeExcess, error) {
	tokenL, tokenR := fe.FeeTokenL, fe.FeeTokenR
	excessL, excessR := fe.FeeExcessL, fe.FeeExcessR
	if excessL.IsZero() {
		tokenL = tokenR
	}
	if tokenL == tokenR {
		sum, ok := excessL.Add(excessR)
		if !ok {
			return FeeExcess{}, ErrFeeExcessOverflow
		}
		excessL, excessR = sum, currency.Zero[currency.Fee]()
	}
	if excessL.IsZero() {
		tokenL = DefaultTokenId
	}
	if excessR.IsZero() {
		tokenR = DefaultTokenId
	}
	return FeeExcess{FeeTokenL: tokenL, FeeExcessL: excessL, FeeTokenR: tokenR, FeeExcessR: excessR}, nil
}

// EliminateFeeExcess folds the middle excess m into whichever of l or r
// shares its token (or is empty). It fails when m is non-zero and no side
// can take it.
func EliminateFeeExcess(l, m, r TokenFee) (TokenFee, TokenFee, error) {
	add := func(x, y currency.Signed[currency.Fee]) (currency.Signed[currency.Fee], error) {
		s, ok := x.Add(y)
		if !ok {
			return s, ErrFeeExcessOverflow
		}
		return s, nil
	}
	switch {
	case l.Token == m.Token || l.Fee.IsZero():
		fee, err := add(l.Fee, m.Fee)
		return TokenFee{Token: m.Token, Fee: fee}, r, err
	case r.Token == m.Token || r.Fee.IsZero():
		fee, err := add(r.Fee, m.Fee)
		return l, TokenFee{Token: m.Token, Fee: fee}, err
	case m.Fee.IsZero():
		return l, r, nil
	}
	return l, r, fmt.Errorf("%w: excess %s for token %s is non-zero", ErrFeeExcessTokens, m.Fee, m.Token)
}

// Combine returns the excess of applying fe then other.
func (fe FeeExcess) Combine(other FeeExcess) (FeeExcess, error) {
	l1 := TokenFee{Token: fe.FeeTokenL, Fee: fe.FeeExcessL}
	l2 := TokenFee{Token: other.FeeTokenL, Fee: other.FeeExcessL}
	r2 := TokenFee{Token: other.FeeTokenR, Fee: other.FeeExcessR}
	l1, l2, err := EliminateFeeExcess(l1, TokenFee{Token: fe.FeeTokenR, Fee: fe.FeeExcessR}, l2)
	if err != nil {
		return FeeExcess{}, err
	}
	l1, r2, err = EliminateFeeExcess(l1, l2, r2)
	if err != nil {
		return FeeExcess{}, err
	}
	return FeeExcess{FeeTokenL: l1.Token, FeeExcessL: l1.Fee, FeeTokenR: r2.Token, FeeExcessR: r2.Fee}.Rebalance()
}

// Parts returns the non-zero token excesses, left first.
func (fe FeeExcess) Parts() []TokenFee {
	var out []TokenFee
	if !fe.FeeExcessL.IsZero() {
		out = append(out, TokenFee{Token: fe.FeeTokenL, Fee: fe.FeeExcessL})
	}
	if !fe.FeeExcessR.IsZero() {
		out = append(out, TokenFee{Token: fe.FeeTokenR, Fee: fe.FeeExcessR})
	}
	return out
}

func (fe FeeExcess) String() string {
	return fmt.Sprintf("{%s:%s %s:%s}", fe.FeeTokenL, fe.FeeExcessL, fe.FeeTokenR, fe.FeeExcessR)
}

package types

import (
	"fmt"
	"io"

	"github.com/colorfulnotion/zkapply/common"
)

// TokenId identifies a token. The default token is the native currency.
type TokenId common.Field

var DefaultTokenId = TokenId(common.FieldFromUint64(1))

func (t TokenId) Field() common.Field { return common.Field(t) }

func (t TokenId) IsDefault() bool { return t == DefaultTokenId }

func (t TokenId) String() string { return common.Field(t).String() }

func (t TokenId) MarshalText() ([]byte, error) { return common.Field(t).MarshalText() }

func (t *TokenId) UnmarshalText(text []byte) error { return (*common.Field)(t).UnmarshalText(text) }

func (t TokenId) MarshalWire() ([]byte, error) { return common.Field(t).MarshalWire() }

func (t *TokenId) UnmarshalWire(r io.Reader) error { return (*common.Field)(t).UnmarshalWire(r) }

// AccountId is the ledger key: a public key paired with a token.
type AccountId struct {
	PublicKey common.PublicKey `json:"public_key"`
	TokenId   TokenId          `json:"token_id"`
}

func NewAccountId(pk common.PublicKey, token TokenId) AccountId {
	return AccountId{PublicKey: pk, TokenId: token}
}

// DefaultAccountId is the native-currency account of pk.
func DefaultAccountId(pk common.PublicKey) AccountId {
	return AccountId{PublicKey: pk, TokenId: DefaultTokenId}
}

// DeriveTokenId returns the token owned by this account. Account updates
// for that token must be made from within this account's calls.
func (id AccountId) DeriveTokenId() TokenId {
	pk := PublicKeyFields(id.PublicKey)
	return TokenId(common.HashWithPrefix("ZkDeriveTokenId", pk[0], pk[1], id.TokenId.Field()))
}

func (id AccountId) String() string {
	if id.TokenId.IsDefault() {
		return id.PublicKey.Short()
	}
	return fmt.Sprintf("%s/%s", id.PublicKey.Short(), id.TokenId)
}

// PublicKeyFields packs a public key into two field elements of 16 bytes each.
func PublicKeyFields(pk common.PublicKey) [2]common.Field {
	return [2]common.Field{
		common.FieldFromBytes(pk[:16]),
		common.FieldFromBytes(pk[16:]),
	}
}

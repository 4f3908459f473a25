package types

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/codec"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
)

// SetOrKeep is an optional field update.
type SetOrKeep[T any] struct {
	IsSet bool `json:"is_set"`
	Value T    `json:"value"`
}

func Set[T any](v T) SetOrKeep[T] { return SetOrKeep[T]{IsSet: true, Value: v} }

func Keep[T any]() SetOrKeep[T] { return SetOrKeep[T]{} }

// Or returns the new value if set, otherwise current.
func (s SetOrKeep[T]) Or(current T) T {
	if s.IsSet {
		return s.Value
	}
	return current
}

// Update lists the account fields an account update may overwrite.
type Update struct {
	AppState        [AppStateLength]SetOrKeep[common.Field] `json:"app_state"`
	Delegate        SetOrKeep[common.PublicKey]             `json:"delegate"`
	VerificationKey SetOrKeep[VerificationKey]              `json:"verification_key"`
	Permissions     SetOrKeep[Permissions]                  `json:"permissions"`
	ZkappUri        SetOrKeep[string]                       `json:"zkapp_uri"`
	TokenSymbol     SetOrKeep[string]                       `json:"token_symbol"`
	Timing          SetOrKeep[Timing]                       `json:"timing"`
	VotingFor       SetOrKeep[common.Field]                 `json:"voting_for"`
}

// MayUseToken says which token an update may touch besides the default.
type MayUseToken uint8

const (
	MayUseNoToken MayUseToken = iota
	ParentsOwnToken
	InheritFromParent
)

func (m MayUseToken) String() string {
	switch m {
	case MayUseNoToken:
		return "no"
	case ParentsOwnToken:
		return "parents_own_token"
	case InheritFromParent:
		return "inherit_from_parent"
	}
	return fmt.Sprintf("MayUseToken(%d)", uint8(m))
}

type AccountUpdateBody struct {
	PublicKey                  common.PublicKey                 `json:"public_key"`
	TokenId                    TokenId                          `json:"token_id"`
	Update                     Update                           `json:"update"`
	BalanceChange              currency.Signed[currency.Amount] `json:"balance_change"`
	IncrementNonce             bool                             `json:"increment_nonce"`
	Events                     Events                           `json:"events"`
	Actions                    Actions                          `json:"actions"`
	CallData                   common.Field                     `json:"call_data"`
	Preconditions              Preconditions                    `json:"preconditions"`
	UseFullCommitment          bool                             `json:"use_full_commitment"`
	ImplicitAccountCreationFee bool                             `json:"implicit_account_creation_fee"`
	MayUseToken                MayUseToken                      `json:"may_use_token"`
	AuthorizationKind          AuthorizationKind                `json:"authorization_kind"`
}

// AccountUpdate is one node of a zkApp command's call forest. Its children
// live in the forest, not here.
type AccountUpdate struct {
	Body          AccountUpdateBody `json:"body"`
	Authorization Control           `json:"authorization"`
}

// NewAccountUpdate returns an update for id that changes nothing, accepts
// any state, and declares no authorization.
func NewAccountUpdate(id AccountId) *AccountUpdate {
	return &AccountUpdate{Body: AccountUpdateBody{PublicKey: id.PublicKey, TokenId: id.TokenId}}
}

// Digest commits to the body; the authorization is not covered.
func (u *AccountUpdate) Digest() common.Field {
	return common.HashBytesWithPrefix("ZkAcctUpdBody", codec.MustMarshal(&u.Body))
}

func (u *AccountUpdate) AccountId() AccountId {
	return AccountId{PublicKey: u.Body.PublicKey, TokenId: u.Body.TokenId}
}

func (u *AccountUpdate) IsSigned() bool { return u.Body.AuthorizationKind.IsSigned() }

func (u *AccountUpdate) IsProved() bool { return u.Body.AuthorizationKind.IsProved() }

// VerificationKeyHash is the key hash a proof-authorized update commits to.
func (u *AccountUpdate) VerificationKeyHash() common.Field {
	if u.IsProved() {
		return u.Body.AuthorizationKind.VerificationKeyHash
	}
	return DummyVerificationKeyHash()
}

func (u *AccountUpdate) String() string {
	return fmt.Sprintf("%s %s", u.AccountId(), u.Body.BalanceChange)
}

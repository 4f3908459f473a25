package types

import (
	"bytes"

	"github.com/colorfulnotion/zkapply/codec"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	AppStateLength    = 8
	ActionStateLength = 5
)

// VerificationKey is an opaque zkApp verification key. Its hash is computed
// on first use and cached.
type VerificationKey struct {
	Data hexutil.Bytes `json:"data"`
	hash common.Lazy[common.Field]
}

func NewVerificationKey(data []byte) *VerificationKey {
	return &VerificationKey{Data: data, hash: common.Deferred(func() common.Field { return hashVerificationKey(data) })}
}

func hashVerificationKey(data []byte) common.Field {
	return common.HashBytesWithPrefix("ZkVerificationKey", data)
}

func (vk *VerificationKey) Hash() common.Field {
	if vk == nil {
		return DummyVerificationKeyHash()
	}
	data := vk.Data
	return vk.hash.GetOrCompute(func() common.Field { return hashVerificationKey(data) })
}

// DummyVerificationKeyHash stands in for the hash of an absent key.
func DummyVerificationKeyHash() common.Field {
	return common.HashWithPrefix("ZkDummyVerificationKey")
}

// ZkAppAccount is the smart-contract part of an account.
type ZkAppAccount struct {
	AppState        [AppStateLength]common.Field    `json:"app_state"`
	VerificationKey *VerificationKey                `json:"verification_key"`
	ZkappVersion    uint32                          `json:"zkapp_version"`
	ActionState     [ActionStateLength]common.Field `json:"action_state"`
	LastActionSlot  currency.Slot                   `json:"last_action_slot"`
	ProvedState     bool                            `json:"proved_state"`
	ZkappUri        string                          `json:"zkapp_uri"`
}

// DefaultZkAppAccount is the zkApp part an account gains on first use.
func DefaultZkAppAccount() *ZkAppAccount {
	z := &ZkAppAccount{}
	for i := range z.ActionState {
		z.ActionState[i] = EmptyActionStateElement()
	}
	return z
}

func (z *ZkAppAccount) isDefault() bool {
	return bytes.Equal(codec.MustMarshal(z), codec.MustMarshal(DefaultZkAppAccount()))
}

func (z *ZkAppAccount) clone() *ZkAppAccount {
	if z == nil {
		return nil
	}
	c := *z
	if z.VerificationKey != nil {
		vk := *z.VerificationKey
		vk.Data = bytes.Clone(z.VerificationKey.Data)
		c.VerificationKey = &vk
	}
	return &c
}

type Account struct {
	PublicKey        common.PublicKey  `json:"public_key"`
	TokenId          TokenId           `json:"token_id"`
	TokenSymbol      string            `json:"token_symbol"`
	Balance          currency.Balance  `json:"balance"`
	Nonce            currency.Nonce    `json:"nonce"`
	ReceiptChainHash ReceiptChainHash  `json:"receipt_chain_hash"`
	Delegate         *common.PublicKey `json:"delegate"`
	VotingFor        common.Field      `json:"voting_for"`
	Timing           Timing            `json:"timing"`
	Permissions      Permissions       `json:"permissions"`
	ZkApp            *ZkAppAccount     `json:"zkapp"`
}

// NewAccount returns a fresh account for id. Default-token accounts
// delegate to themselves.
func NewAccount(id AccountId, balance currency.Balance) *Account {
	a := InitialAccount(id)
	a.Balance = balance
	if id.TokenId.IsDefault() {
		pk := id.PublicKey
		a.Delegate = &pk
	}
	return a
}

// InitialAccount is the account an id would have before anything touches it.
func InitialAccount(id AccountId) *Account {
	return &Account{
		PublicKey:        id.PublicKey,
		TokenId:          id.TokenId,
		ReceiptChainHash: EmptyReceiptChainHash(),
		Permissions:      DefaultPermissions(),
	}
}

func (a *Account) Id() AccountId {
	return AccountId{PublicKey: a.PublicKey, TokenId: a.TokenId}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	if a.Delegate != nil {
		d := *a.Delegate
		c.Delegate = &d
	}
	c.ZkApp = a.ZkApp.clone()
	return &c
}

// Equal compares accounts by their canonical encoding.
func (a *Account) Equal(b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return bytes.Equal(codec.MustMarshal(a), codec.MustMarshal(b))
}

// Hash is the ledger leaf for this account.
func (a *Account) Hash() common.Field {
	return common.HashBytesWithPrefix("ZkAccount", codec.MustMarshal(a))
}

func (a *Account) zkapp() *ZkAppAccount {
	if a.ZkApp == nil {
		return DefaultZkAppAccount()
	}
	return a.ZkApp
}

// AppState returns the app state, all zero for a non-zkApp account.
func (a *Account) AppState() [AppStateLength]common.Field { return a.zkapp().AppState }

func (a *Account) ActionState() [ActionStateLength]common.Field { return a.zkapp().ActionState }

func (a *Account) ProvedState() bool { return a.zkapp().ProvedState }

func (a *Account) VerificationKeyHash() common.Field { return a.zkapp().VerificationKey.Hash() }

// MakeZkApp gives the account a default zkApp part if it has none.
func (a *Account) MakeZkApp() {
	if a.ZkApp == nil {
		a.ZkApp = DefaultZkAppAccount()
	}
}

// UnmakeZkApp drops a zkApp part that was never changed from its default.
func (a *Account) UnmakeZkApp() {
	if a.ZkApp != nil && a.ZkApp.isDefault() {
		a.ZkApp = nil
	}
}

func (a *Account) DelegateOrEmpty() common.PublicKey {
	if a.Delegate == nil {
		return common.EmptyPublicKey
	}
	return *a.Delegate
}

func (a *Account) HasPermissionToSend() bool {
	return a.Permissions.Send.CheckTag(ControlSignature)
}

func (a *Account) HasPermissionToReceive() bool {
	return a.Permissions.Receive.CheckTag(ControlNoneGiven)
}

func (a *Account) HasPermissionToSetDelegate() bool {
	return a.Permissions.SetDelegate.CheckTag(ControlSignature)
}

func (a *Account) HasPermissionToIncrementNonce() bool {
	return a.Permissions.IncrementNonce.CheckTag(ControlSignature)
}

package types

import (
	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type FeePayerBody struct {
	PublicKey  common.PublicKey `json:"public_key"`
	Fee        currency.Fee     `json:"fee"`
	ValidUntil *currency.Slot   `json:"valid_until"`
	Nonce      currency.Nonce   `json:"nonce"`
}

// FeePayer pays a zkApp command's fee in the default token and must sign
// the full commitment.
type FeePayer struct {
	Body          FeePayerBody  `json:"body"`
	Authorization hexutil.Bytes `json:"authorization"`
}

// ToAccountUpdate returns the account update the fee payer is applied as.
func (fp *FeePayer) ToAccountUpdate() *AccountUpdate {
	validWhile := Numeric[currency.Slot]{}
	if fp.Body.ValidUntil != nil {
		validWhile = Between(currency.Slot(0), *fp.Body.ValidUntil)
	}
	return &AccountUpdate{
		Body: AccountUpdateBody{
			PublicKey:      fp.Body.PublicKey,
			TokenId:        DefaultTokenId,
			BalanceChange:  currency.NegOf(fp.Body.Fee.ToAmount()),
			IncrementNonce: true,
			Preconditions: Preconditions{
				Account:    NoncePrecondition(fp.Body.Nonce),
				ValidWhile: validWhile,
			},
			UseFullCommitment:          true,
			ImplicitAccountCreationFee: true,
			AuthorizationKind:          AuthorizationKind{Tag: ControlSignature},
		},
		Authorization: SignatureControl(fp.Authorization),
	}
}

func (fp *FeePayer) AccountId() AccountId { return DefaultAccountId(fp.Body.PublicKey) }

// ZkAppCommand is a fee payer plus a forest of account updates.
type ZkAppCommand struct {
	FeePayer       FeePayer                          `json:"fee_payer"`
	AccountUpdates callforest.Forest[*AccountUpdate] `json:"account_updates"`
	Memo           Memo                              `json:"memo"`
}

func (c *ZkAppCommand) FeePayerId() AccountId { return c.FeePayer.AccountId() }

func (c *ZkAppCommand) Fee() currency.Fee { return c.FeePayer.Body.Fee }

func (c *ZkAppCommand) FeeToken() TokenId { return DefaultTokenId }

func (c *ZkAppCommand) Nonce() currency.Nonce { return c.FeePayer.Body.Nonce }

// AllAccountUpdates returns the forest with the fee payer's update pushed
// on the front as a childless tree.
func (c *ZkAppCommand) AllAccountUpdates() (callforest.Forest[*AccountUpdate], error) {
	return callforest.Cons(c.FeePayer.ToAccountUpdate(), callforest.Empty[*AccountUpdate](), c.AccountUpdates)
}

// Commitment is the stack hash of the account updates, excluding the fee payer.
func (c *ZkAppCommand) Commitment() (common.Field, error) {
	h, ok := c.AccountUpdates.Hash()
	if !ok {
		return common.Field{}, callforest.ErrUnauthenticated
	}
	return h, nil
}

// FullCommitment additionally binds the memo and the fee payer.
func (c *ZkAppCommand) FullCommitment() (common.Field, error) {
	commitment, err := c.Commitment()
	if err != nil {
		return common.Field{}, err
	}
	return FullCommitment(c.Memo.Hash(), c.FeePayer.ToAccountUpdate().Digest(), commitment), nil
}

func FullCommitment(memoHash, feePayerDigest, commitment common.Field) common.Field {
	return common.HashWithPrefix("ZkFullCommitment", memoHash, feePayerDigest, commitment)
}

// AccountsReferenced lists each account touched, fee payer first, in
// pre-order and without duplicates.
func (c *ZkAppCommand) AccountsReferenced() []AccountId {
	seen := map[AccountId]struct{}{}
	out := []AccountId{}
	add := func(id AccountId) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	add(c.FeePayerId())
	for _, u := range c.AccountUpdates.ToList() {
		add(u.AccountId())
	}
	return out
}

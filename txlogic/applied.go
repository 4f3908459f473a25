package txlogic

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/zkapp"
)

// AccountState is an account as it was before a transaction touched it.
// Account is nil when the id had no account.
type AccountState struct {
	Id      types.AccountId `json:"id"`
	Account *types.Account  `json:"account"`
}

type SignedCommandApplied struct {
	Command     types.WithStatus[*types.SignedCommand] `json:"command"`
	NewAccounts []types.AccountId                       `json:"new_accounts,omitempty"`
	// set for an applied stake delegation
	PreviousDelegate *common.PublicKey `json:"previous_delegate,omitempty"`
}

type ZkAppCommandApplied struct {
	Accounts    []AccountState                        `json:"accounts"`
	Command     types.WithStatus[*types.ZkAppCommand] `json:"command"`
	NewAccounts []types.AccountId                     `json:"new_accounts,omitempty"`
}

type FeeTransferApplied struct {
	FeeTransfer  types.WithStatus[*types.FeeTransfer] `json:"fee_transfer"`
	NewAccounts  []types.AccountId                    `json:"new_accounts,omitempty"`
	BurnedTokens currency.Amount                      `json:"burned_tokens"`
}

type CoinbaseApplied struct {
	Coinbase     types.WithStatus[*types.Coinbase] `json:"coinbase"`
	NewAccounts  []types.AccountId                 `json:"new_accounts,omitempty"`
	BurnedTokens currency.Amount                   `json:"burned_tokens"`
}

// Varying holds exactly one applied record.
type Varying struct {
	SignedCommand *SignedCommandApplied `json:"signed_command,omitempty"`
	ZkAppCommand  *ZkAppCommandApplied  `json:"zkapp_command,omitempty"`
	FeeTransfer   *FeeTransferApplied   `json:"fee_transfer,omitempty"`
	Coinbase      *CoinbaseApplied      `json:"coinbase,omitempty"`
}

// TransactionApplied is the replayable record of one applied transaction.
type TransactionApplied struct {
	PreviousHash common.Field `json:"previous_hash"`
	Varying      Varying      `json:"varying"`
}

func (t *TransactionApplied) Transaction() types.Transaction {
	v := t.Varying
	switch {
	case v.SignedCommand != nil:
		return v.SignedCommand.Command.Data
	case v.ZkAppCommand != nil:
		return v.ZkAppCommand.Command.Data
	case v.FeeTransfer != nil:
		return v.FeeTransfer.FeeTransfer.Data
	case v.Coinbase != nil:
		return v.Coinbase.Coinbase.Data
	}
	return nil
}

func (t *TransactionApplied) Status() types.TransactionStatus {
	v := t.Varying
	switch {
	case v.SignedCommand != nil:
		return v.SignedCommand.Command.Status
	case v.ZkAppCommand != nil:
		return v.ZkAppCommand.Command.Status
	case v.FeeTransfer != nil:
		return v.FeeTransfer.FeeTransfer.Status
	case v.Coinbase != nil:
		return v.Coinbase.Coinbase.Status
	}
	return types.AppliedStatus()
}

func (t *TransactionApplied) NewAccounts() []types.AccountId {
	v := t.Varying
	switch {
	case v.SignedCommand != nil:
		return v.SignedCommand.NewAccounts
	case v.ZkAppCommand != nil:
		return v.ZkAppCommand.NewAccounts
	case v.FeeTransfer != nil:
		return v.FeeTransfer.NewAccounts
	case v.Coinbase != nil:
		return v.Coinbase.NewAccounts
	}
	return nil
}

// BurnedTokens is the value refused by receivers that may not receive.
func (t *TransactionApplied) BurnedTokens() currency.Amount {
	switch {
	case t.Varying.FeeTransfer != nil:
		return t.Varying.FeeTransfer.BurnedTokens
	case t.Varying.Coinbase != nil:
		return t.Varying.Coinbase.BurnedTokens
	}
	return 0
}

// SupplyIncrease is the minted amount net of burned tokens and the
// creation fees of new accounts.
func (t *TransactionApplied) SupplyIncrease(constants types.ConstraintConstants) (currency.Signed[currency.Amount], error) {
	var expected currency.Amount
	if tx := t.Transaction(); tx != nil {
		expected = tx.ExpectedSupplyIncrease()
	}
	creationFees, ok := constants.AccountCreationFee.ToAmount().Scale(uint64(len(t.NewAccounts())))
	if !ok {
		return currency.Signed[currency.Amount]{}, fmt.Errorf("%w: creation fees for %d accounts", ErrOverflow, len(t.NewAccounts()))
	}
	total := currency.OfUnsigned(expected)
	for _, decrease := range []currency.Amount{t.BurnedTokens(), creationFees} {
		if total, ok = total.Add(currency.NegOf(decrease)); !ok {
			return currency.Signed[currency.Amount]{}, fmt.Errorf("%w: supply increase", ErrOverflow)
		}
	}
	return total, nil
}

// ZkAppCommandPartiallyApplied is a zkApp command whose fee payer has been
// charged and whose account updates are still to run.
type ZkAppCommandPartiallyApplied struct {
	Command                        *types.ZkAppCommand
	PreviousHash                   common.Field
	OriginalFirstPassAccountStates []AccountState
	Constants                      types.ConstraintConstants
	GlobalState                    *zkapp.GlobalState
	LocalState                     *zkapp.LocalState
}

// TransactionPartiallyApplied is the result of a first pass. Only zkApp
// commands have a second pass left; everything else is already Applied.
type TransactionPartiallyApplied struct {
	Applied *TransactionApplied
	ZkApp   *ZkAppCommandPartiallyApplied
}

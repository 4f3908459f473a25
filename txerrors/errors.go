// Package txerrors is the taxonomy of recorded transaction failures. A failure
// is data attached to a transaction status; it never aborts a block.
package txerrors

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type Code uint8

const (
	Predicate Code = iota
	SourceNotPresent
	ReceiverNotPresent
	AmountInsufficientToCreateAccount
	CannotPayCreationFeeInToken
	SourceInsufficientBalance
	SourceMinimumBalanceViolation
	ReceiverAlreadyExists
	TokenOwnerNotCaller
	Overflow
	GlobalExcessOverflow
	LocalExcessOverflow
	LocalSupplyIncreaseOverflow
	GlobalSupplyIncreaseOverflow
	SignedCommandOnZkappAccount
	ZkappAccountNotPresent
	UpdateNotPermittedBalance
	UpdateNotPermittedAccess
	UpdateNotPermittedTiming
	UpdateNotPermittedDelegate
	UpdateNotPermittedAppState
	UpdateNotPermittedVerificationKey
	UpdateNotPermittedActionState
	UpdateNotPermittedZkappUri
	UpdateNotPermittedTokenSymbol
	UpdateNotPermittedPermissions
	UpdateNotPermittedNonce
	UpdateNotPermittedVotingFor
	ZkappCommandReplayCheckFailed
	FeePayerNonceMustIncrease
	FeePayerMustBeSigned
	AccountBalancePreconditionUnsatisfied
	AccountNoncePreconditionUnsatisfied
	AccountReceiptChainHashPreconditionUnsatisfied
	AccountDelegatePreconditionUnsatisfied
	AccountActionStatePreconditionUnsatisfied
	AccountAppStatePreconditionUnsatisfied
	AccountProvedStatePreconditionUnsatisfied
	AccountIsNewPreconditionUnsatisfied
	ProtocolStatePreconditionUnsatisfied
	UnexpectedVerificationKeyHash
	ValidWhilePreconditionUnsatisfied
	IncorrectNonce
	InvalidFeeExcess
	Cancelled

	numCodes
)

type entry struct {
	name string
	desc string
}

// Names are stable: they are what peers and logs see.
var table = [numCodes]entry{
	Predicate:                         {"Predicate", "A predicate over the transaction failed."},
	SourceNotPresent:                  {"Source_not_present", "The source account does not exist."},
	ReceiverNotPresent:                {"Receiver_not_present", "The receiver account does not exist."},
	AmountInsufficientToCreateAccount: {"Amount_insufficient_to_create_account", "Cannot create account: transaction amount is smaller than the account creation fee."},
	CannotPayCreationFeeInToken:       {"Cannot_pay_creation_fee_in_token", "Cannot create account: account creation fees cannot be paid in non-default tokens."},
	SourceInsufficientBalance:         {"Source_insufficient_balance", "The source account has an insufficient balance."},
	SourceMinimumBalanceViolation:     {"Source_minimum_balance_violation", "The source account requires a minimum balance."},
	ReceiverAlreadyExists:             {"Receiver_already_exists", "Attempted to create an account that already exists."},
	TokenOwnerNotCaller:               {"Token_owner_not_caller", "An account update used a non-default token but its caller was not the token owner."},
	Overflow:                          {"Overflow", "The resulting balance is too large to store."},
	GlobalExcessOverflow:              {"Global_excess_overflow", "The resulting global fee excess is too large to store."},
	LocalExcessOverflow:               {"Local_excess_overflow", "The resulting local fee excess is too large to store."},
	LocalSupplyIncreaseOverflow:       {"Local_supply_increase_overflow", "The local supply increase is too large to store."},
	GlobalSupplyIncreaseOverflow:      {"Global_supply_increase_overflow", "The global supply increase is too large to store."},
	SignedCommandOnZkappAccount:       {"Signed_command_on_zkapp_account", "The source of a signed command cannot be a snapp account."},
	ZkappAccountNotPresent:            {"Zkapp_account_not_present", "A zkApp account does not exist."},
	UpdateNotPermittedBalance:         {"Update_not_permitted_balance", "The authentication for an account didn't allow the requested update to its balance."},
	UpdateNotPermittedAccess:          {"Update_not_permitted_access", "The authentication for an account didn't allow it to be accessed."},
	UpdateNotPermittedTiming:          {"Update_not_permitted_timing", "The authentication for an account didn't allow the requested update to its timing."},
	UpdateNotPermittedDelegate:        {"Update_not_permitted_delegate", "The authentication for an account didn't allow the requested update to its delegate."},
	UpdateNotPermittedAppState:        {"Update_not_permitted_app_state", "The authentication for an account didn't allow the requested update to its app state."},
	UpdateNotPermittedVerificationKey: {"Update_not_permitted_verification_key", "The authentication for an account didn't allow the requested update to its verification key."},
	UpdateNotPermittedActionState:     {"Update_not_permitted_action_state", "The authentication for an account didn't allow the requested update to its action state."},
	UpdateNotPermittedZkappUri:        {"Update_not_permitted_zkapp_uri", "The authentication for an account didn't allow the requested update to its snapp URI."},
	UpdateNotPermittedTokenSymbol:     {"Update_not_permitted_token_symbol", "The authentication for an account didn't allow the requested update to its token symbol."},
	UpdateNotPermittedPermissions:     {"Update_not_permitted_permissions", "The authentication for an account didn't allow the requested update to its permissions."},
	UpdateNotPermittedNonce:           {"Update_not_permitted_nonce", "The authentication for an account didn't allow the requested update to its nonce."},
	UpdateNotPermittedVotingFor:       {"Update_not_permitted_voting_for", "The authentication for an account didn't allow the requested update to its voted-for state hash."},
	ZkappCommandReplayCheckFailed:     {"Zkapp_command_replay_check_failed", "Check to avoid replays failed. The account update must increment nonce or use full commitment if the authorization is a signature."},
	FeePayerNonceMustIncrease:         {"Fee_payer_nonce_must_increase", "Fee payer account update must increment its nonce."},
	FeePayerMustBeSigned:              {"Fee_payer_must_be_signed", "Fee payer account update must have a valid signature."},
	AccountBalancePreconditionUnsatisfied:          {"Account_balance_precondition_unsatisfied", "The account update's account balance precondition was unsatisfied."},
	AccountNoncePreconditionUnsatisfied:            {"Account_nonce_precondition_unsatisfied", "The account update's account nonce precondition was unsatisfied."},
	AccountReceiptChainHashPreconditionUnsatisfied: {"Account_receipt_chain_hash_precondition_unsatisfied", "The account update's account receipt-chain-hash precondition was unsatisfied."},
	AccountDelegatePreconditionUnsatisfied:         {"Account_delegate_precondition_unsatisfied", "The account update's account delegate precondition was unsatisfied."},
	AccountActionStatePreconditionUnsatisfied:      {"Account_action_state_precondition_unsatisfied", "The account update's account action state precondition was unsatisfied."},
	AccountAppStatePreconditionUnsatisfied:         {"Account_app_state_precondition_unsatisfied", "The account update's account app state precondition was unsatisfied."},
	AccountProvedStatePreconditionUnsatisfied:      {"Account_proved_state_precondition_unsatisfied", "The account update's account proved state precondition was unsatisfied."},
	AccountIsNewPreconditionUnsatisfied:            {"Account_is_new_precondition_unsatisfied", "The account update's account is-new state precondition was unsatisfied."},
	ProtocolStatePreconditionUnsatisfied:           {"Protocol_state_precondition_unsatisfied", "The account update's protocol state precondition unsatisfied."},
	UnexpectedVerificationKeyHash:                  {"Unexpected_verification_key_hash", "The account update's verification key hash does not match the verification key in the ledger account."},
	ValidWhilePreconditionUnsatisfied:              {"Valid_while_precondition_unsatisfied", "The account update's valid-until precondition was unsatisfied."},
	IncorrectNonce:                                 {"Incorrect_nonce", "Incorrect nonce."},
	InvalidFeeExcess:                               {"Invalid_fee_excess", "Fee excess from zkapp_command transaction more than the transaction fees."},
	Cancelled:                                      {"Cancelled", "The account update is cancelled because there's a failure in the zkApp transaction."},
}

// Failure is one recorded failure. Index is meaningful only for
// AccountAppStatePreconditionUnsatisfied, where it names the app-state cell.
type Failure struct {
	Code  Code
	Index uint32
}

func New(code Code) Failure {
	return Failure{Code: code}
}

func AppState(i int) Failure {
	return Failure{Code: AccountAppStatePreconditionUnsatisfied, Index: uint32(i)}
}

// Name is the stable snake-case name, e.g. "Account_app_state_3_precondition_unsatisfied".
func (f Failure) Name() string {
	if f.Code >= numCodes {
		return "Unknown_failure_" + strconv.Itoa(int(f.Code))
	}
	if f.Code == AccountAppStatePreconditionUnsatisfied {
		return fmt.Sprintf("Account_app_state_%d_precondition_unsatisfied", f.Index)
	}
	return table[f.Code].name
}

// Error renders "F<n>|Name: description".
func (f Failure) Error() string {
	desc := "Unknown failure."
	if f.Code < numCodes {
		desc = table[f.Code].desc
	}
	return fmt.Sprintf("F%d|%s: %s", int(f.Code)+1, f.Name(), desc)
}

func (f Failure) String() string {
	return f.Name()
}

func (f Failure) MarshalText() ([]byte, error) {
	return []byte(f.Name()), nil
}

func (f *Failure) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// MarshalWire encodes the variant tag and, for app-state failures, the cell index.
func (f Failure) MarshalWire() ([]byte, error) {
	if f.Code == AccountAppStatePreconditionUnsatisfied {
		return binary.LittleEndian.AppendUint32([]byte{byte(f.Code)}, f.Index), nil
	}
	return []byte{byte(f.Code)}, nil
}

func (f *Failure) UnmarshalWire(r io.Reader) error {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return err
	}
	if Code(tag[0]) >= numCodes {
		return fmt.Errorf("%w: tag %d", ErrUnknownFailure, tag[0])
	}
	*f = Failure{Code: Code(tag[0])}
	if f.Code == AccountAppStatePreconditionUnsatisfied {
		var idx [4]byte
		if _, err := io.ReadFull(r, idx[:]); err != nil {
			return err
		}
		f.Index = binary.LittleEndian.Uint32(idx[:])
	}
	return nil
}

var ErrUnknownFailure = errors.New("unknown transaction failure")

// Parse is the inverse of Name.
func Parse(name string) (Failure, error) {
	for c := Code(0); c < numCodes; c++ {
		if table[c].name == name {
			return New(c), nil
		}
	}
	const pre, suf = "Account_app_state_", "_precondition_unsatisfied"
	if strings.HasPrefix(name, pre) && strings.HasSuffix(name, suf) {
		if i, err := strconv.ParseUint(name[len(pre):len(name)-len(suf)], 10, 32); err == nil {
			return AppState(int(i)), nil
		}
	}
	return Failure{}, fmt.Errorf("%w: %q", ErrUnknownFailure, name)
}

// GetErrorName extracts the failure name from a coded error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	var f Failure
	if errors.As(err, &f) {
		return f.Name()
	}
	errStr := err.Error()
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the "F<n>" code from a coded error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	return strings.TrimSpace(strings.SplitN(errStr, "|", 2)[0])
}

package zkapp

import (
	"fmt"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/ledger"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/colorfulnotion/zkapply/types"
)

type nextUpdate struct {
	update   *types.AccountUpdate
	callerId types.TokenId
	calls    Forest
}

// getNextAccountUpdate pops the next update and returns the frame and call
// stack that follow it. A non-empty child forest becomes the new frame,
// called by the update's own token; a non-empty remainder is suspended on
// the stack meanwhile.
func getNextAccountUpdate(current StackFrame, stack CallStack) (nextUpdate, StackFrame, CallStack, error) {
	tree, rest, ok := current.Calls.Pop()
	if !ok {
		return nextUpdate{}, current, stack, ErrNoAccountUpdates
	}
	u := tree.Elem
	callerId := current.Caller
	if u.Body.MayUseToken == types.InheritFromParent {
		callerId = current.CallerCaller
	}
	remainder := StackFrame{Caller: current.Caller, CallerCaller: current.CallerCaller, Calls: rest}

	var frame StackFrame
	switch {
	case tree.Children.IsEmpty() && rest.IsEmpty():
		frame, stack = stack.Pop()
	case tree.Children.IsEmpty():
		frame = remainder
	default:
		if !rest.IsEmpty() {
			stack = stack.Push(remainder)
		}
		frame = StackFrame{Caller: u.AccountId().DeriveTokenId(), CallerCaller: callerId, Calls: tree.Children}
	}
	return nextUpdate{update: u, callerId: callerId, calls: tree.Children}, frame, stack, nil
}

// Start applies the first account update of a command, normally its fee
// payer, against the first-pass ledger.
func Start(constants types.ConstraintConstants, start StartData, h Handler, g *GlobalState, l *LocalState) error {
	if !l.StackFrame.Calls.IsEmpty() {
		return ErrCommandInProgress
	}
	return apply(constants, &start, h, g, l)
}

// Step applies the next account update of the command in progress.
func Step(constants types.ConstraintConstants, h Handler, g *GlobalState, l *LocalState) error {
	if l.StackFrame.Calls.IsEmpty() {
		return ErrNoAccountUpdates
	}
	return apply(constants, nil, h, g, l)
}

func getAccount(l ledger.Ledger, id types.AccountId) (*types.Account, ledger.Location, bool) {
	if a, loc, ok := ledger.GetAccount(l, id); ok {
		return a, loc, false
	}
	return types.InitialAccount(id), 0, true
}

func apply(constants types.ConstraintConstants, start *StartData, h Handler, g *GlobalState, l *LocalState) error {
	isStart := start != nil
	toPop, stack := l.StackFrame, l.CallStack
	if isStart {
		l.WillSucceed = start.WillSucceed
		l.Ledger = g.FirstPassLedger.CreateMasked()
		toPop = StackFrame{Caller: types.DefaultTokenId, CallerCaller: types.DefaultTokenId, Calls: start.AccountUpdates}
		stack = nil
	}

	next, remaining, stack, err := getNextAccountUpdate(toPop, stack)
	if err != nil {
		return err
	}
	u := next.update
	id := u.AccountId()
	tokenId := u.Body.TokenId
	tokenIsDefault := tokenId.IsDefault()

	if isStart {
		commitment, ok := remaining.Calls.Hash()
		if !ok {
			return fmt.Errorf("commitment of %s: %w", id, callforest.ErrUnauthenticated)
		}
		l.TransactionCommitment = commitment
		l.FullTransactionCommitment = types.FullCommitment(start.MemoHash, u.Digest(), commitment)
	}
	l.StackFrame, l.CallStack = remaining, stack
	l.AddNewFailureStatusBucket()
	l.addCode(txerrors.TokenOwnerNotCaller, tokenIsDefault || tokenId == next.callerId)

	a, loc, isNew := getAccount(l.Ledger, id)
	if isNew && tokenIsDefault {
		pk := u.Body.PublicKey
		a.Delegate = &pk
	}

	l.addCode(txerrors.UnexpectedVerificationKeyHash, !u.IsProved() || a.VerificationKeyHash() == u.VerificationKeyHash())
	h.CheckAccountPrecondition(u, a, isNew, l)
	l.addCode(txerrors.ProtocolStatePreconditionUnsatisfied, h.CheckProtocolStatePrecondition(&u.Body.Preconditions.Network, g))
	l.addCode(txerrors.ValidWhilePreconditionUnsatisfied, h.CheckValidWhilePrecondition(u.Body.Preconditions.ValidWhile, g))

	commitment := l.TransactionCommitment
	if u.Body.UseFullCommitment {
		commitment = l.FullTransactionCommitment
	}
	proof, sig := h.CheckAuthorization(u, commitment, next.calls)
	if proof != u.IsProved() || sig != u.IsSigned() {
		return fmt.Errorf("%w: %s", ErrAuthorizationMismatch, id)
	}
	permitted := func(auth types.AuthRequired) bool { return auth.Check(proof, sig) }

	l.addCode(txerrors.FeePayerNonceMustIncrease, u.Body.IncrementNonce || !isStart)
	l.addCode(txerrors.FeePayerMustBeSigned, sig || !isStart)
	constantNonce := u.Body.Preconditions.Account.NonceCondition().IsConstant()
	l.addCode(txerrors.ZkappCommandReplayCheckFailed,
		(u.Body.IncrementNonce && constantNonce) || (u.Body.UseFullCommitment && !isStart) || !sig)

	// timing may only be set on an untimed account
	timingUpdate := u.Body.Update.Timing
	l.addCode(txerrors.UpdateNotPermittedTiming, !timingUpdate.IsSet || (!a.Timing.IsTimed && permitted(a.Permissions.SetTiming)))
	timing := timingUpdate.Or(a.Timing)
	if timing.IsTimed && timing.VestingPeriod == 0 {
		return fmt.Errorf("%w: %s", ErrInvalidVestingPeriod, id)
	}
	a.Timing = timing

	creationFee := currency.NegOf(constants.AccountCreationFee.ToAmount())
	implicitFee := u.Body.ImplicitAccountCreationFee
	l.addCode(txerrors.CannotPayCreationFeeInToken, !implicitFee || tokenIsDefault)

	payCreationFee := isNew && implicitFee
	change := u.Body.BalanceChange
	withFee, creationOverflow := change.AddFlagged(creationFee)
	if payCreationFee {
		change = withFee
	}
	l.addCode(txerrors.AmountInsufficientToCreateAccount, !(payCreationFee && (creationOverflow || change.IsNeg())))

	balance, balanceFailed := a.Balance.AddSignedAmountFlagged(change)
	l.addCode(txerrors.Overflow, !balanceFailed)

	payFromExcess := isNew && !implicitFee
	excess, excessFailed := l.Excess.AddFlagged(creationFee)
	l.addCode(txerrors.LocalExcessOverflow, !(payFromExcess && excessFailed))
	if payFromExcess {
		l.Excess = excess
	}
	supply, supplyFailed := l.SupplyIncrease.AddFlagged(creationFee)
	l.addCode(txerrors.LocalSupplyIncreaseOverflow, !(isNew && supplyFailed))
	if isNew {
		l.SupplyIncrease = supply
	}

	balanceAuth := a.Permissions.Send
	if change.IsNonNeg() {
		balanceAuth = a.Permissions.Receive
	}
	l.addCode(txerrors.UpdateNotPermittedBalance, permitted(balanceAuth) || change.IsZero())
	a.Balance = balance

	timing, _, violation := types.ValidateTiming(a, 0, g.BlockGlobalSlot)
	l.addCode(txerrors.SourceMinimumBalanceViolation, violation != types.MinimumBalanceViolation)
	a.Timing = timing

	a.MakeZkApp()
	l.addCode(txerrors.UpdateNotPermittedAccess, permitted(a.Permissions.Access))
	applyAppState(u, a, l, proof, permitted)

	vk := u.Body.Update.VerificationKey
	l.addCode(txerrors.UpdateNotPermittedVerificationKey, !vk.IsSet || permitted(a.Permissions.SetVerificationKey.Effective()))
	if vk.IsSet {
		a.ZkApp.VerificationKey = types.NewVerificationKey(vk.Value.Data)
	}

	actions := u.Body.Actions
	actionState, lastActionSlot := types.UpdateActionState(a.ZkApp.ActionState, actions, g.BlockGlobalSlot, a.ZkApp.LastActionSlot)
	l.addCode(txerrors.UpdateNotPermittedActionState, actions.IsEmpty() || permitted(a.Permissions.EditActionState))
	a.ZkApp.ActionState, a.ZkApp.LastActionSlot = actionState, lastActionSlot

	uri := u.Body.Update.ZkappUri
	l.addCode(txerrors.UpdateNotPermittedZkappUri, !uri.IsSet || permitted(a.Permissions.SetZkappUri))
	a.ZkApp.ZkappUri = uri.Or(a.ZkApp.ZkappUri)
	a.UnmakeZkApp()

	symbol := u.Body.Update.TokenSymbol
	l.addCode(txerrors.UpdateNotPermittedTokenSymbol, !symbol.IsSet || permitted(a.Permissions.SetTokenSymbol))
	a.TokenSymbol = symbol.Or(a.TokenSymbol)

	delegate := u.Body.Update.Delegate
	l.addCode(txerrors.UpdateNotPermittedDelegate, !delegate.IsSet || (permitted(a.Permissions.SetDelegate) && tokenIsDefault))
	if delegate.IsSet {
		a.Delegate = nil
		if pk := delegate.Value; !pk.IsEmpty() {
			a.Delegate = &pk
		}
	}

	l.addCode(txerrors.UpdateNotPermittedNonce, !u.Body.IncrementNonce || permitted(a.Permissions.IncrementNonce))
	if u.Body.IncrementNonce {
		a.Nonce = a.Nonce.Succ()
	}

	votingFor := u.Body.Update.VotingFor
	l.addCode(txerrors.UpdateNotPermittedVotingFor, !votingFor.IsSet || permitted(a.Permissions.SetVotingFor))
	a.VotingFor = votingFor.Or(a.VotingFor)

	if sig || proof {
		a.ReceiptChainHash = types.ConsZkAppCommandCommitment(l.AccountUpdateIndex, l.FullTransactionCommitment, a.ReceiptChainHash)
	}

	// permissions last, so every check above ran under the old ones
	perms := u.Body.Update.Permissions
	l.addCode(txerrors.UpdateNotPermittedPermissions, !perms.IsSet || permitted(a.Permissions.SetPermissions))
	a.Permissions = perms.Or(a.Permissions)

	a = h.InitAccount(u, a)

	// the requested change, not the one net of any creation fee
	localDelta := u.Body.BalanceChange.Negate()
	if isStart && !(tokenIsDefault && localDelta.IsNonNeg()) {
		return fmt.Errorf("%w: %s pays %s", ErrFeePayerToken, id, localDelta)
	}
	if isStart && !l.Success {
		return &FeePayerFailedError{Failures: l.FailureStatusTbl}
	}
	newExcess, excessOverflow := l.Excess.AddFlagged(localDelta)
	if tokenIsDefault {
		l.Excess = newExcess
	}
	l.addCode(txerrors.LocalExcessOverflow, !(tokenIsDefault && excessOverflow))

	if isNew {
		if err := l.Ledger.CreateNewAccount(id, a); err != nil {
			return fmt.Errorf("create %s: %w", id, err)
		}
	} else {
		l.Ledger.Set(loc, a)
	}

	isLast := l.StackFrame.Calls.IsEmpty()
	if isLast {
		l.TransactionCommitment, l.FullTransactionCommitment = common.Field{}, common.Field{}
	}
	// the excess settles only once the last update has run
	l.addCode(txerrors.InvalidFeeExcess, isStart || !isLast || l.Excess.IsZero())

	startOrLast := isStart || isLast
	updateGlobalExcess := startOrLast && l.Success
	globalExcess, globalOverflow := g.FeeExcess.AddFlagged(l.Excess)
	if updateGlobalExcess {
		g.FeeExcess = globalExcess
	}
	if startOrLast {
		l.Excess = currency.Zero[currency.Amount]()
	}
	l.addCode(txerrors.GlobalExcessOverflow, !(updateGlobalExcess && globalOverflow))

	globalSupply, supplyOverflow := g.SupplyIncrease.AddFlagged(l.SupplyIncrease)
	l.addCode(txerrors.GlobalSupplyIncreaseOverflow, !supplyOverflow)

	if isStart && !l.Success {
		return &FeePayerFailedError{Failures: l.FailureStatusTbl}
	}
	if isStart {
		if err := g.FirstPassLedger.ApplyMask(l.Ledger); err != nil {
			return fmt.Errorf("apply fee payer: %w", err)
		}
		l.Ledger = g.SecondPassLedger.CreateMasked()
	}
	if isLast && !l.WillSucceed && l.Success {
		return ErrWillSucceed
	}

	log.Trace(log.ZkAppMonitoring, "account update applied", "index", l.AccountUpdateIndex, "account", id,
		"new", isNew, "success", l.Success, "last", isLast)

	if isLast && l.Success {
		g.SupplyIncrease = globalSupply
		if err := g.SecondPassLedger.ApplyMask(l.Ledger); err != nil {
			return fmt.Errorf("apply account updates: %w", err)
		}
	}

	if isLast {
		l.Ledger = ledger.Empty(0).CreateMasked()
		l.Success = true
		l.AccountUpdateIndex = 0
		l.SupplyIncrease = currency.Zero[currency.Amount]()
		l.WillSucceed = true
	} else {
		l.AccountUpdateIndex = l.AccountUpdateIndex.Succ()
	}
	return nil
}

// applyAppState writes the app state cells. The proved flag survives only
// when the state is untouched or rewritten by a proof; a proof that
// replaces every cell sets it.
func applyAppState(u *types.AccountUpdate, a *types.Account, l *LocalState, proof bool, permitted func(types.AuthRequired) bool) {
	keeping, replacing := true, true
	for _, s := range u.Body.Update.AppState {
		keeping = keeping && !s.IsSet
		replacing = replacing && s.IsSet
	}
	switch {
	case keeping:
	case !proof:
		a.ZkApp.ProvedState = false
	case replacing:
		a.ZkApp.ProvedState = true
	}
	l.addCode(txerrors.UpdateNotPermittedAppState, keeping || permitted(a.Permissions.EditState))
	for i, s := range u.Body.Update.AppState {
		a.ZkApp.AppState[i] = s.Or(a.ZkApp.AppState[i])
	}
}

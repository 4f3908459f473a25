package zkapp

import (
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/precondition"
	"github.com/colorfulnotion/zkapply/types"
)

// Handler performs the checks whose evidence lives outside the state
// machine. The same stepping code runs against any implementation.
type Handler interface {
	// CheckAccountPrecondition records every violated account condition in l.
	CheckAccountPrecondition(u *types.AccountUpdate, a *types.Account, isNew bool, l *LocalState)
	CheckProtocolStatePrecondition(p *types.NetworkPreconditions, g *GlobalState) bool
	CheckValidWhilePrecondition(p types.Numeric[currency.Slot], g *GlobalState) bool
	// CheckAuthorization reports which authorizations verify against the
	// commitment the update signs.
	CheckAuthorization(u *types.AccountUpdate, commitment common.Field, calls Forest) (proofVerifies, signatureVerifies bool)
	InitAccount(u *types.AccountUpdate, a *types.Account) *types.Account
}

// LedgerHandler evaluates preconditions directly and trusts the
// authorization tags, whose signatures and proofs were verified before the
// command reached the ledger.
type LedgerHandler struct{}

var _ Handler = LedgerHandler{}

func (LedgerHandler) CheckAccountPrecondition(u *types.AccountUpdate, a *types.Account, isNew bool, l *LocalState) {
	precondition.Account(u.Body.Preconditions.Account, a, isNew, l.AddCheck)
}

func (LedgerHandler) CheckProtocolStatePrecondition(p *types.NetworkPreconditions, g *GlobalState) bool {
	if g.ProtocolState == nil {
		return len(precondition.Network(p, &types.ProtocolStateView{})) == 0
	}
	failed := precondition.Network(p, g.ProtocolState)
	for _, m := range failed {
		log.Debug(log.ZkAppMonitoring, "network precondition", "err", m)
	}
	return len(failed) == 0
}

func (LedgerHandler) CheckValidWhilePrecondition(p types.Numeric[currency.Slot], g *GlobalState) bool {
	return precondition.ValidWhile(p, g.BlockGlobalSlot)
}

func (LedgerHandler) CheckAuthorization(u *types.AccountUpdate, _ common.Field, _ Forest) (bool, bool) {
	switch u.Authorization.Tag {
	case types.ControlProof:
		return true, false
	case types.ControlSignature:
		return false, true
	}
	return false, false
}

func (LedgerHandler) InitAccount(_ *types.AccountUpdate, a *types.Account) *types.Account { return a }

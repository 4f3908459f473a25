package verifier

import (
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/colorfulnotion/zkapply/zkapp"
)

// Handler verifies account-update signatures against the commitment each
// update signs. Proofs are still accepted on their tag.
type Handler struct {
	zkapp.LedgerHandler
}

var _ zkapp.Handler = Handler{}

func (Handler) CheckAuthorization(u *types.AccountUpdate, commitment common.Field, _ zkapp.Forest) (bool, bool) {
	switch u.Authorization.Tag {
	case types.ControlProof:
		return true, false
	case types.ControlSignature:
		if err := VerifyField(u.Body.PublicKey, commitment, u.Authorization.Signature); err != nil {
			log.Debug(log.ZkAppMonitoring, "account update signature", "account", u.AccountId(), "err", err)
			return false, false
		}
		return false, true
	}
	return false, false
}

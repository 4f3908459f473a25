package types

import (
	"fmt"
	"strings"

	"github.com/colorfulnotion/zkapply/common"
)

// ControlTag says which kind of authorization an account update carries.
type ControlTag uint8

const (
	ControlNoneGiven ControlTag = iota
	ControlSignature
	ControlProof
)

var controlNames = [...]string{"none_given", "signature", "proof"}

func (c ControlTag) String() string {
	if int(c) < len(controlNames) {
		return controlNames[c]
	}
	return fmt.Sprintf("ControlTag(%d)", uint8(c))
}

func (c ControlTag) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *ControlTag) UnmarshalText(text []byte) error {
	for i, n := range controlNames {
		if strings.EqualFold(n, string(text)) {
			*c = ControlTag(i)
			return nil
		}
	}
	return fmt.Errorf("unknown control tag %q", text)
}

// Control is the authorization witness attached to an account update.
// Proofs are opaque here; signatures are checked by the verifier before
// the command reaches the ledger.
type Control struct {
	Tag       ControlTag `json:"tag"`
	Signature []byte     `json:"signature,omitempty"`
	Proof     []byte     `json:"proof,omitempty"`
}

func SignatureControl(sig []byte) Control { return Control{Tag: ControlSignature, Signature: sig} }

func ProofControl(proof []byte) Control { return Control{Tag: ControlProof, Proof: proof} }

// AuthorizationKind is the authorization an account update declares in its
// body, and so commits to in its digest.
type AuthorizationKind struct {
	Tag                 ControlTag   `json:"tag"`
	VerificationKeyHash common.Field `json:"verification_key_hash"`
}

func (k AuthorizationKind) IsSigned() bool { return k.Tag == ControlSignature }

func (k AuthorizationKind) IsProved() bool { return k.Tag == ControlProof }

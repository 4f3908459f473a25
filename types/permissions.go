package types

import (
	"fmt"
	"strings"
)

// AuthRequired is the authorization an account demands for one kind of change.
type AuthRequired uint8

const (
	AuthNone AuthRequired = iota
	AuthEither
	AuthProof
	AuthSignature
	AuthImpossible
)

var authNames = [...]string{"None", "Either", "Proof", "Signature", "Impossible"}

func (a AuthRequired) String() string {
	if int(a) < len(authNames) {
		return authNames[a]
	}
	return fmt.Sprintf("AuthRequired(%d)", uint8(a))
}

func (a AuthRequired) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AuthRequired) UnmarshalText(text []byte) error {
	for i, n := range authNames {
		if strings.EqualFold(n, string(text)) {
			*a = AuthRequired(i)
			return nil
		}
	}
	return fmt.Errorf("unknown auth_required %q", text)
}

// Check reports whether the given verified authorization satisfies a.
func (a AuthRequired) Check(proofVerifies, signatureVerifies bool) bool {
	switch a {
	case AuthNone:
		return true
	case AuthEither:
		return proofVerifies || signatureVerifies
	case AuthProof:
		return proofVerifies
	case AuthSignature:
		return signatureVerifies
	default:
		return false
	}
}

// CheckTag is Check for a control tag.
func (a AuthRequired) CheckTag(tag ControlTag) bool {
	return a.Check(tag == ControlProof, tag == ControlSignature)
}

// TxnVersion is the current transaction logic version.
const TxnVersion uint32 = 3

// VerificationKeyPermission is the set_verification_key permission, tagged
// with the transaction version it was written under.
type VerificationKeyPermission struct {
	Auth       AuthRequired `json:"auth"`
	TxnVersion uint32       `json:"txn_version"`
}

// Effective returns the authorization in force. A permission written under an
// older transaction version can no longer demand a proof or be impossible;
// it falls back to a signature.
func (p VerificationKeyPermission) Effective() AuthRequired {
	if p.TxnVersion < TxnVersion && (p.Auth == AuthProof || p.Auth == AuthImpossible) {
		return AuthSignature
	}
	return p.Auth
}

type Permissions struct {
	EditState          AuthRequired              `json:"edit_state"`
	Access             AuthRequired              `json:"access"`
	Send               AuthRequired              `json:"send"`
	Receive            AuthRequired              `json:"receive"`
	SetDelegate        AuthRequired              `json:"set_delegate"`
	SetPermissions     AuthRequired              `json:"set_permissions"`
	SetVerificationKey VerificationKeyPermission `json:"set_verification_key"`
	SetZkappUri        AuthRequired              `json:"set_zkapp_uri"`
	EditActionState    AuthRequired              `json:"edit_action_state"`
	SetTokenSymbol     AuthRequired              `json:"set_token_symbol"`
	IncrementNonce     AuthRequired              `json:"increment_nonce"`
	SetVotingFor       AuthRequired              `json:"set_voting_for"`
	SetTiming          AuthRequired              `json:"set_timing"`
}

// DefaultPermissions is what a new account starts with: every change needs
// the owner's signature, while receiving and access are open.
func DefaultPermissions() Permissions {
	return Permissions{
		EditState:          AuthSignature,
		Access:             AuthNone,
		Send:               AuthSignature,
		Receive:            AuthNone,
		SetDelegate:        AuthSignature,
		SetPermissions:     AuthSignature,
		SetVerificationKey: VerificationKeyPermission{Auth: AuthSignature, TxnVersion: TxnVersion},
		SetZkappUri:        AuthSignature,
		EditActionState:    AuthSignature,
		SetTokenSymbol:     AuthSignature,
		IncrementNonce:     AuthSignature,
		SetVotingFor:       AuthSignature,
		SetTiming:          AuthSignature,
	}
}

// EmptyPermissions demands nothing for any change.
func EmptyPermissions() Permissions {
	return Permissions{SetVerificationKey: VerificationKeyPermission{TxnVersion: TxnVersion}}
}

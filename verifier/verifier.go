// Package verifier signs and checks command signatures. Keys are EdDSA
// over the twisted Edwards curve embedded in bn254, hashed with MiMC, so
// every signed message is a single field element.
package verifier

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/types"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

var (
	ErrBadSignature   = errors.New("signature does not verify")
	ErrSignerMismatch = errors.New("signer is not the fee payer")
	ErrMissingKey     = errors.New("no key for signed account update")
)

type PrivateKey struct {
	key *eddsa.PrivateKey
}

func GenerateKey(r io.Reader) (*PrivateKey, error) {
	k, err := eddsa.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// KeyFromSeed derives a key deterministically, for genesis and test
// accounts.
func KeyFromSeed(seed []byte) *PrivateKey {
	h := common.Blake2Hash(seed)
	k, err := GenerateKey(bytes.NewReader(h.Bytes()))
	if err != nil {
		panic(err)
	}
	return k
}

func (k *PrivateKey) PublicKey() common.PublicKey {
	var pk common.PublicKey
	copy(pk[:], k.key.PublicKey.Bytes())
	return pk
}

func message(f common.Field) []byte {
	b := f.Bytes()
	return b[:]
}

// SignField signs a single field element.
func (k *PrivateKey) SignField(f common.Field) ([]byte, error) {
	sig, err := k.key.Sign(message(f), mimc.NewMiMC())
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// VerifyField checks sig over f against pk.
func VerifyField(pk common.PublicKey, f common.Field, sig []byte) error {
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pk[:]); err != nil {
		return fmt.Errorf("%w: public key %s: %v", ErrBadSignature, pk.Short(), err)
	}
	ok, err := pub.Verify(sig, message(f), mimc.NewMiMC())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}

func SignPayload(k *PrivateKey, p *types.SignedCommandPayload) ([]byte, error) {
	return k.SignField(p.Digest())
}

// SignCommand sets the signer and signature of c.
func SignCommand(k *PrivateKey, c *types.SignedCommand) error {
	sig, err := SignPayload(k, &c.Payload)
	if err != nil {
		return err
	}
	c.Signer, c.Signature = k.PublicKey(), sig
	return nil
}

func VerifySignedCommand(c *types.SignedCommand) error {
	if c.Signer != c.Payload.Common.FeePayerPk {
		return fmt.Errorf("%w: %s signed for %s", ErrSignerMismatch, c.Signer.Short(), c.Payload.Common.FeePayerPk.Short())
	}
	return VerifyField(c.Signer, c.Payload.Digest(), c.Signature)
}

// SignZkAppFeePayer signs the full commitment as the fee payer.
func SignZkAppFeePayer(k *PrivateKey, cmd *types.ZkAppCommand) error {
	if pk := k.PublicKey(); pk != cmd.FeePayer.Body.PublicKey {
		return fmt.Errorf("%w: key %s, fee payer %s", ErrSignerMismatch, pk.Short(), cmd.FeePayer.Body.PublicKey.Short())
	}
	full, err := cmd.FullCommitment()
	if err != nil {
		return err
	}
	sig, err := k.SignField(full)
	if err != nil {
		return err
	}
	cmd.FeePayer.Authorization = sig
	return nil
}

func VerifyZkAppFeePayer(cmd *types.ZkAppCommand) error {
	full, err := cmd.FullCommitment()
	if err != nil {
		return err
	}
	if err := VerifyField(cmd.FeePayer.Body.PublicKey, full, cmd.FeePayer.Authorization); err != nil {
		return fmt.Errorf("fee payer %s: %w", cmd.FeePayerId(), err)
	}
	return nil
}

// SignAccountUpdates signs every signature-authorized account update with
// the matching key. The forest must already be hashed.
func SignAccountUpdates(cmd *types.ZkAppCommand, keys ...*PrivateKey) error {
	commitment, err := cmd.Commitment()
	if err != nil {
		return err
	}
	full, err := cmd.FullCommitment()
	if err != nil {
		return err
	}
	byKey := make(map[common.PublicKey]*PrivateKey, len(keys))
	for _, k := range keys {
		byKey[k.PublicKey()] = k
	}
	for _, u := range cmd.AccountUpdates.ToList() {
		if !u.IsSigned() {
			continue
		}
		k, ok := byKey[u.Body.PublicKey]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingKey, u.AccountId())
		}
		msg := commitment
		if u.Body.UseFullCommitment {
			msg = full
		}
		sig, err := k.SignField(msg)
		if err != nil {
			return err
		}
		u.Authorization = types.SignatureControl(sig)
	}
	return nil
}

// VerifyTransaction checks the signatures a transaction carries outside
// its account updates. Fee transfers and coinbases carry none.
func VerifyTransaction(txn types.Transaction) error {
	switch t := txn.(type) {
	case *types.SignedCommand:
		return VerifySignedCommand(t)
	case *types.ZkAppCommand:
		return VerifyZkAppFeePayer(t)
	}
	return nil
}

package types

import (
	"encoding/json"
	"testing"

	"github.com/colorfulnotion/zkapply/callforest"
	"github.com/colorfulnotion/zkapply/codec"
	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/currency"
	"github.com/colorfulnotion/zkapply/txerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pk(b byte) common.PublicKey {
	var p common.PublicKey
	p[0] = b
	p[31] = b
	return p
}

func TestMinBalanceAtSlot(t *testing.T) {
	timing := Timing{
		IsTimed:               true,
		InitialMinimumBalance: 1000,
		CliffTime:             10,
		CliffAmount:           100,
		VestingPeriod:         5,
		VestingIncrement:      50,
	}
	tests := []struct {
		name string
		slot currency.Slot
		want currency.Balance
	}{
		{"before cliff", 9, 1000},
		{"at cliff", 10, 900},
		{"one period", 15, 850},
		{"partial period", 19, 850},
		{"fully vested", 200, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, MinBalanceAtSlot(tc.slot, timing))
		})
	}

	t.Run("zero vesting period vests at cliff", func(t *testing.T) {
		tm := timing
		tm.VestingPeriod = 0
		require.Equal(t, currency.Balance(1000), MinBalanceAtSlot(9, tm))
		require.Equal(t, currency.Balance(0), MinBalanceAtSlot(10, tm))
	})
	t.Run("decrement saturates", func(t *testing.T) {
		tm := timing
		tm.VestingPeriod = 1
		tm.VestingIncrement = currency.MaxAmount
		require.Equal(t, currency.Balance(0), MinBalanceAtSlot(12, tm))
	})
}

func TestValidateTiming(t *testing.T) {
	acct := NewAccount(DefaultAccountId(pk(1)), 1000)
	acct.Timing = Timing{IsTimed: true, InitialMinimumBalance: 800, CliffTime: 100, VestingPeriod: 1, VestingIncrement: 10}

	tests := []struct {
		name       string
		amount     currency.Amount
		slot       currency.Slot
		want       TimingViolation
		minBalance currency.Balance
		timed      bool
	}{
		{"below minimum before cliff", 300, 50, MinimumBalanceViolation, 800, true},
		{"covered before cliff", 100, 50, TimingOK, 800, true},
		{"below minimum while vesting", 800, 150, MinimumBalanceViolation, 300, true},
		{"underflow before cliff", 2000, 50, InsufficientBalance, 800, true},
		{"underflow while vesting", 2000, 150, InsufficientBalance, 300, true},
		{"underflow after vesting", 2000, 1000, InsufficientBalance, 0, false},
		{"vested away", 500, 1000, TimingOK, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			timing, minBalance, v := ValidateTiming(acct, tc.amount, tc.slot)
			require.Equal(t, tc.want, v)
			assert.Equal(t, tc.minBalance, minBalance)
			if tc.timed {
				assert.Equal(t, acct.Timing, timing)
			} else {
				assert.Equal(t, Untimed, timing)
			}
		})
	}
}

func TestCoinbaseCreate(t *testing.T) {
	_, err := NewCoinbase(pk(1), 10, &CoinbaseFeeTransfer{ReceiverPk: pk(2), Fee: 11})
	require.ErrorIs(t, err, ErrCoinbaseFeeTooLarge)

	cb, err := NewCoinbase(pk(1), 10, &CoinbaseFeeTransfer{ReceiverPk: pk(1), Fee: 11})
	require.NoError(t, err)
	require.Nil(t, cb.FeeTransfer, "transfer to the receiver itself is dropped")

	cb, err = NewCoinbase(pk(1), 10, &CoinbaseFeeTransfer{ReceiverPk: pk(2), Fee: 4})
	require.NoError(t, err)
	require.Equal(t, []AccountId{DefaultAccountId(pk(1)), DefaultAccountId(pk(2))}, cb.Receivers())
	fe, err := cb.FeeExcess()
	require.NoError(t, err)
	require.True(t, fe.IsZero())
	require.Equal(t, currency.Amount(10), cb.ExpectedSupplyIncrease())
}

func TestFeeTransferTokens(t *testing.T) {
	other := AccountId{PublicKey: pk(9)}.DeriveTokenId()
	_, err := NewFeeTransfer(
		SingleFeeTransfer{ReceiverPk: pk(1), Fee: 1, FeeToken: DefaultTokenId},
		SingleFeeTransfer{ReceiverPk: pk(2), Fee: 1, FeeToken: other},
	)
	require.ErrorIs(t, err, ErrIncompatibleFeeTokens)

	_, err = NewFeeTransfer()
	require.ErrorIs(t, err, ErrEmptyFeeTransfer)

	ft, err := NewFeeTransfer(
		SingleFeeTransfer{ReceiverPk: pk(1), Fee: 3, FeeToken: DefaultTokenId},
		SingleFeeTransfer{ReceiverPk: pk(2), Fee: 4, FeeToken: DefaultTokenId},
	)
	require.NoError(t, err)
	fe, err := ft.FeeExcess()
	require.NoError(t, err)
	require.Equal(t, currency.NegOf(currency.Fee(7)), fe.FeeExcessL)
	require.True(t, fe.FeeExcessR.IsZero())
}

func TestFeeExcessCombine(t *testing.T) {
	other := AccountId{PublicKey: pk(9)}.DeriveTokenId()
	third := AccountId{PublicKey: pk(8)}.DeriveTokenId()
	pos := func(f currency.Fee) currency.Signed[currency.Fee] { return currency.OfUnsigned(f) }
	neg := func(f currency.Fee) currency.Signed[currency.Fee] { return currency.NegOf(f) }

	t.Run("zero is identity", func(t *testing.T) {
		fe := OfSingle(DefaultTokenId, pos(5))
		got, err := ZeroFeeExcess().Combine(fe)
		require.NoError(t, err)
		require.Equal(t, fe, got)
		got, err = fe.Combine(ZeroFeeExcess())
		require.NoError(t, err)
		require.Equal(t, fe, got)
	})
	t.Run("fees paid then transferred cancel", func(t *testing.T) {
		acc := ZeroFeeExcess()
		for _, fe := range []FeeExcess{OfSingle(DefaultTokenId, pos(3)), OfSingle(DefaultTokenId, pos(4)), OfSingle(DefaultTokenId, neg(7))} {
			var err error
			acc, err = acc.Combine(fe)
			require.NoError(t, err)
		}
		require.True(t, acc.IsZero())
		require.Equal(t, ZeroFeeExcess(), acc)
	})
	t.Run("two tokens", func(t *testing.T) {
		got, err := OfSingle(DefaultTokenId, pos(3)).Combine(OfSingle(other, pos(2)))
		require.NoError(t, err)
		require.Len(t, got.Parts(), 2)
	})
	t.Run("third token rejected", func(t *testing.T) {
		two, err := OfOneOrTwo([]TokenFee{{Token: DefaultTokenId, Fee: pos(1)}, {Token: other, Fee: pos(1)}})
		require.NoError(t, err)
		_, err = two.Combine(OfSingle(third, pos(1)))
		require.ErrorIs(t, err, ErrFeeExcessTokens)
	})
	t.Run("zero excess names default token", func(t *testing.T) {
		fe := OfSingle(other, pos(0))
		require.Equal(t, DefaultTokenId, fe.FeeTokenL)
	})
}

func TestMemo(t *testing.T) {
	m, err := MemoFromString("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", m.String())
	require.False(t, m.IsDigest())

	_, err = MemoFromString("0123456789012345678901234567890123")
	require.ErrorIs(t, err, ErrMemoTooLong)

	d := MemoByDigestingString("hello")
	require.True(t, d.IsDigest())
	require.NotEqual(t, m.Hash(), d.Hash())

	text, err := m.MarshalText()
	require.NoError(t, err)
	var back Memo
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, m, back)
}

// The receipt scenario: fee, nonce, valid-until, amount and prev as in the
// reference scenario. The keys and memo are local, since the scenario does
// not fix them.
func receiptScenario() (*SignedCommandPayload, ReceiptChainHash) {
	p := &SignedCommandPayload{
		Common: SignedCommandCommon{
			Fee:        9758327274353182341,
			FeePayerPk: pk(1),
			Nonce:      1609569868,
			ValidUntil: 2127252111,
			Memo:       EmptyMemo(),
		},
		Body: PaymentBody(pk(2), 1155659205107036493),
	}
	prev := MustParseReceiptChainHash("4918218371695029984164006552208340844155171097348169027410983585063546229555")
	return p, prev
}

func TestReceiptChainDeterministic(t *testing.T) {
	p, prev := receiptScenario()
	first := ConsSignedCommandPayload(p, prev)
	require.Equal(t, first, ConsSignedCommandPayload(p, prev))
	require.Equal(t, "14793782733123025407742607717071059122283807464671832976447893744868580796025", first.String())
}

func TestEmptyReceiptChainHash(t *testing.T) {
	assert.Equal(t, "12116233683235430486065157067326408001361264361173679728639368727543812615845", EmptyReceiptChainHash().String())
	assert.Equal(t, EmptyReceiptChainHash(), InitialAccount(AccountId{PublicKey: pk(1), TokenId: DefaultTokenId}).ReceiptChainHash)
}

func TestReceiptChainSensitivity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *SignedCommandPayload)
	}{
		{"fee", func(p *SignedCommandPayload) { p.Common.Fee++ }},
		{"nonce", func(p *SignedCommandPayload) { p.Common.Nonce++ }},
		{"valid until", func(p *SignedCommandPayload) { p.Common.ValidUntil-- }},
		{"fee payer", func(p *SignedCommandPayload) { p.Common.FeePayerPk = pk(3) }},
		{"fee payer parity", func(p *SignedCommandPayload) { p.Common.FeePayerPk[31] |= 0x80 }},
		{"memo", func(p *SignedCommandPayload) { p.Common.Memo = MemoByDigestingString("x") }},
		{"amount", func(p *SignedCommandPayload) { p.Body.Payment.Amount++ }},
		{"receiver", func(p *SignedCommandPayload) { p.Body.Payment.ReceiverPk = pk(4) }},
		{"body kind", func(p *SignedCommandPayload) { p.Body = StakeDelegationBody(pk(2)) }},
	}
	base, prev := receiptScenario()
	want := ConsSignedCommandPayload(base, prev)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := receiptScenario()
			tc.mutate(p)
			assert.NotEqual(t, want, ConsSignedCommandPayload(p, prev))
		})
	}
	t.Run("prev", func(t *testing.T) {
		next := MustParseReceiptChainHash("4918218371695029984164006552208340844155171097348169027410983585063546229556")
		assert.NotEqual(t, want, ConsSignedCommandPayload(base, next))
	})
}

func TestReceiptChainHashEncoding(t *testing.T) {
	h := EmptyReceiptChainHash()

	text, err := h.MarshalText()
	require.NoError(t, err)
	var back ReceiptChainHash
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, h, back)

	wire, err := codec.Marshal(h)
	require.NoError(t, err)
	require.Len(t, wire, 32)
	var decoded ReceiptChainHash
	require.NoError(t, codec.Unmarshal(wire, &decoded))
	assert.Equal(t, h, decoded)

	tests := []struct {
		name string
		in   string
	}{
		{"modulus", "28948022309329048855892746252171976963363056481941560715954676764349967630337"},
		{"negative", "-1"},
		{"not a number", "0x12"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseReceiptChainHash(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestFeePayerAccountUpdate(t *testing.T) {
	until := currency.Slot(77)
	fp := FeePayer{Body: FeePayerBody{PublicKey: pk(1), Fee: 5, ValidUntil: &until, Nonce: 3}}
	u := fp.ToAccountUpdate()
	require.Equal(t, currency.NegOf(currency.Amount(5)), u.Body.BalanceChange)
	require.True(t, u.Body.IncrementNonce)
	require.True(t, u.Body.UseFullCommitment)
	require.True(t, u.IsSigned())
	require.Equal(t, Exactly(currency.Nonce(3)), u.Body.Preconditions.Account.NonceCondition())
	require.Equal(t, Between(currency.Slot(0), until), u.Body.Preconditions.ValidWhile)
	require.True(t, u.Body.Preconditions.Account.NonceCondition().IsConstant())
}

func TestZkAppCommandCommitments(t *testing.T) {
	a := NewAccountUpdate(DefaultAccountId(pk(2)))
	b := NewAccountUpdate(DefaultAccountId(pk(3)))
	cmd := &ZkAppCommand{
		FeePayer:       FeePayer{Body: FeePayerBody{PublicKey: pk(1), Fee: 5}},
		AccountUpdates: callforest.FromList([]*AccountUpdate{a, b}),
		Memo:           EmptyMemo(),
	}
	c1, err := cmd.Commitment()
	require.NoError(t, err)
	f1, err := cmd.FullCommitment()
	require.NoError(t, err)
	require.NotEqual(t, c1, f1)

	cmd.Memo = MemoByDigestingString("other")
	c2, _ := cmd.Commitment()
	f2, _ := cmd.FullCommitment()
	require.Equal(t, c1, c2, "memo is only bound by the full commitment")
	require.NotEqual(t, f1, f2)

	all, err := cmd.AllAccountUpdates()
	require.NoError(t, err)
	require.Equal(t, 3, all.Count())
	require.Equal(t, []AccountId{DefaultAccountId(pk(1)), DefaultAccountId(pk(2)), DefaultAccountId(pk(3))}, cmd.AccountsReferenced())
}

func TestAccountEncodingAndZkApp(t *testing.T) {
	a := NewAccount(DefaultAccountId(pk(5)), 42)
	require.NotNil(t, a.Delegate)
	require.Equal(t, pk(5), *a.Delegate)

	b := a.Clone()
	require.True(t, a.Equal(b))
	b.Balance++
	require.False(t, a.Equal(b))
	require.NotEqual(t, a.Hash(), b.Hash())

	a.MakeZkApp()
	require.NotNil(t, a.ZkApp)
	a.UnmakeZkApp()
	require.Nil(t, a.ZkApp)

	a.MakeZkApp()
	a.ZkApp.VerificationKey = NewVerificationKey([]byte{1, 2, 3})
	a.UnmakeZkApp()
	require.NotNil(t, a.ZkApp)

	enc, err := codec.Marshal(a)
	require.NoError(t, err)
	var back *Account
	require.NoError(t, codec.Unmarshal(enc, &back))
	require.True(t, a.Equal(back))
	require.Equal(t, a.VerificationKeyHash(), back.VerificationKeyHash())
}

func TestDeriveTokenId(t *testing.T) {
	a := DefaultAccountId(pk(1))
	require.NotEqual(t, a.DeriveTokenId(), DefaultAccountId(pk(2)).DeriveTokenId())
	child := AccountId{PublicKey: pk(1), TokenId: a.DeriveTokenId()}
	require.NotEqual(t, a.DeriveTokenId(), child.DeriveTokenId())
	require.False(t, a.DeriveTokenId().IsDefault())
}

func TestAuthRequired(t *testing.T) {
	tests := []struct {
		auth             AuthRequired
		none, sig, proof bool
	}{
		{AuthNone, true, true, true},
		{AuthEither, false, true, true},
		{AuthProof, false, false, true},
		{AuthSignature, false, true, false},
		{AuthImpossible, false, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.auth.String(), func(t *testing.T) {
			assert.Equal(t, tc.none, tc.auth.CheckTag(ControlNoneGiven))
			assert.Equal(t, tc.sig, tc.auth.CheckTag(ControlSignature))
			assert.Equal(t, tc.proof, tc.auth.CheckTag(ControlProof))
		})
	}
	old := VerificationKeyPermission{Auth: AuthProof, TxnVersion: TxnVersion - 1}
	require.Equal(t, AuthSignature, old.Effective())
}

func TestEnvelopeJSON(t *testing.T) {
	ft, err := NewFeeTransfer(SingleFeeTransfer{ReceiverPk: pk(1), Fee: 3, FeeToken: DefaultTokenId})
	require.NoError(t, err)
	cmd := &SignedCommand{
		Payload: SignedCommandPayload{
			Common: SignedCommandCommon{Fee: 1, FeePayerPk: pk(1), Nonce: 2, ValidUntil: currency.MaxSlot, Memo: EmptyMemo()},
			Body:   PaymentBody(pk(2), 10),
		},
		Signer:    pk(1),
		Signature: []byte{1, 2},
	}
	for _, txn := range []Transaction{ft, cmd} {
		js, err := json.Marshal(Envelope{Transaction: txn})
		require.NoError(t, err)
		var back Envelope
		require.NoError(t, json.Unmarshal(js, &back))
		require.Equal(t, txn, back.Transaction)
	}
}

func TestTransactionStatus(t *testing.T) {
	st := StatusOf(txerrors.Collection{{}, {txerrors.New(txerrors.Cancelled)}})
	require.False(t, st.IsApplied())
	enc, err := codec.Marshal(st)
	require.NoError(t, err)
	var back TransactionStatus
	require.NoError(t, codec.Unmarshal(enc, &back))
	require.Equal(t, st.Failures.String(), back.Failures.String())

	js, err := json.Marshal(st)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"failed","failures":[[],["Cancelled"]]}`, string(js))
	require.True(t, StatusOf(txerrors.Collection{{}, {}}).IsApplied())
}

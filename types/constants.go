package types

import "github.com/colorfulnotion/zkapply/currency"

// ConstraintConstants are fixed per network and passed into every
// application call.
type ConstraintConstants struct {
	SubWindowsPerWindow        uint64          `json:"sub_windows_per_window"`
	LedgerDepth                uint64          `json:"ledger_depth"`
	WorkDelay                  uint64          `json:"work_delay"`
	BlockWindowDurationMs      uint64          `json:"block_window_duration_ms"`
	TransactionCapacityLog2    uint64          `json:"transaction_capacity_log_2"`
	PendingCoinbaseDepth       uint64          `json:"pending_coinbase_depth"`
	CoinbaseAmount             currency.Amount `json:"coinbase_amount"`
	SuperchargedCoinbaseFactor uint64          `json:"supercharged_coinbase_factor"`
	AccountCreationFee         currency.Fee    `json:"account_creation_fee"`
}

// TestConstraintConstants are small values suitable for unit tests.
func TestConstraintConstants() ConstraintConstants {
	return ConstraintConstants{
		SubWindowsPerWindow:        11,
		LedgerDepth:                10,
		WorkDelay:                  2,
		BlockWindowDurationMs:      180000,
		TransactionCapacityLog2:    7,
		PendingCoinbaseDepth:       5,
		CoinbaseAmount:             720_000_000_000,
		SuperchargedCoinbaseFactor: 1,
		AccountCreationFee:         1_000_000_000,
	}
}

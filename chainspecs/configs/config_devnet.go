//go:build !mainnet

package configs

// Network is the profile the tools load when none is named.
const Network = "devnet"

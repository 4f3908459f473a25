//go:build mainnet

package configs

const Network = "mainnet"

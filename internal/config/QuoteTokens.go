package config

import (
	"errors"
	"fmt"

	"github.com/elys-network/vault-valuator/internal/types"
)

var (
	ErrEmptyToken    = errors.New("token address is empty")
	ErrIdenticalPair = errors.New("pair tokens are identical")
)

// QuoteTokenPriority lists, per chain id, the tokens that act as the quote asset of a pair.
// Earlier entries win. Addresses are lower case.
var QuoteTokenPriority = map[string][]string{
	// Ethereum mainnet: USDC, USDT, DAI, WETH
	"1": {
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"0xdac17f958d2ee523a2206206994597c13d831ec7",
		"0x6b175474e89094c44da98b954eedeac495271d0f",
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
	},
	// Arbitrum One: USDC, USDT, WETH
	"42161": {
		"0xaf88d065e77c8cc2239327c5edb3a432268e5831",
		"0xfd086bc7cd5c481dcc9c85ebe478a1c0b69fcbb9",
		"0x82af49447d8a07e3bd95bd0d56f35241523fbab1",
	},
	// Base: USDC, WETH
	"8453": {
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		"0x4200000000000000000000000000000000000006",
	},
	// Sepolia: USDC, WETH
	"11155111": {
		"0x1c7d4b196cb0c7b01d743fbc6116a902379c7238",
		"0xfff9976782d46cc05630d1f6ebab18b2324d6b14",
	},
}

// ResolveQuoteToken picks the quote token of a pair on the given chain.
// When neither token is in the chain's priority list the higher sorted address is used,
// which is token1 of a Uniswap V2 pair. The returned address keeps the caller's casing.
func ResolveQuoteToken(chainID, tokenA, tokenB string) (string, error) {
	a, b := types.NormalizeAddress(tokenA), types.NormalizeAddress(tokenB)
	if a == "" || b == "" {
		return "", ErrEmptyToken
	}
	if a == b {
		return "", fmt.Errorf("%w: %s", ErrIdenticalPair, tokenA)
	}

	for _, candidate := range QuoteTokenPriority[chainID] {
		switch candidate {
		case a:
			return tokenA, nil
		case b:
			return tokenB, nil
		}
	}

	if a > b {
		return tokenA, nil
	}
	return tokenB, nil
}

// IsKnownChain reports whether the chain has a configured quote token list.
func IsKnownChain(chainID string) bool {
	_, ok := QuoteTokenPriority[chainID]
	return ok
}

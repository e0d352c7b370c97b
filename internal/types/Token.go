/*

Token identity and USD price lookups.

Addresses are compared case-insensitively everywhere, since subgraphs return lowercase
hex while configuration is usually written checksummed.

*/

package types

import (
	"strings"
	"time"
)

type Token struct {
	Address  string `json:"address"`  // e.g., "0xa0b8...eb48"
	Symbol   string `json:"symbol"`   // e.g., "USDC"
	Decimals int    `json:"decimals"` // e.g., 6
}

// PriceData holds historical price info
type PriceData struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// NormalizeAddress returns the canonical map key for an address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// SameAddress reports whether two addresses identify the same token.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}

// PriceTable maps a token address to its current USD price.
type PriceTable map[string]float64

// NewPriceTable builds a PriceTable with normalized keys.
func NewPriceTable(prices map[string]float64) PriceTable {
	table := make(PriceTable, len(prices))
	for address, price := range prices {
		table[NormalizeAddress(address)] = price
	}
	return table
}

// Lookup returns the price for address and whether it was present.
func (p PriceTable) Lookup(address string) (float64, bool) {
	price, ok := p[NormalizeAddress(address)]
	return price, ok
}

// Set stores a price under the normalized address.
func (p PriceTable) Set(address string, price float64) {
	p[NormalizeAddress(address)] = price
}

// QuoteOrOne is used where the price is a ratio denominator. A miss is a neutral 1.
func (p PriceTable) QuoteOrOne(address string) float64 {
	if price, ok := p.Lookup(address); ok {
		return price
	}
	return 1
}

// USDOrZero is used for USD aggregation. A miss contributes nothing.
func (p PriceTable) USDOrZero(address string) float64 {
	if price, ok := p.Lookup(address); ok {
		return price
	}
	return 0
}

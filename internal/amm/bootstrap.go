package amm

import (
	"fmt"
	"math/big"
	"strings"
)

// BootstrapCheck selects how a pool is detected as empty when quoting a mint.
//
// The front end this service replaces tested reserve0 + reserve0 == 0, which ignores
// reserve1 entirely. Both readings are kept so the choice stays explicit.
type BootstrapCheck int

const (
	// BootstrapCheckPoolEmpty treats the pool as empty only if both reserves are zero.
	BootstrapCheckPoolEmpty BootstrapCheck = iota
	// BootstrapCheckReserve0Doubled reproduces the legacy reserve0 + reserve0 == 0 test.
	BootstrapCheckReserve0Doubled
)

func (b BootstrapCheck) String() string {
	switch b {
	case BootstrapCheckPoolEmpty:
		return "pool_empty"
	case BootstrapCheckReserve0Doubled:
		return "reserve0_doubled"
	default:
		return fmt.Sprintf("BootstrapCheck(%d)", int(b))
	}
}

// ParseBootstrapCheck parses the names returned by String. Empty input selects the default.
func ParseBootstrapCheck(s string) (BootstrapCheck, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pool_empty":
		return BootstrapCheckPoolEmpty, nil
	case "reserve0_doubled":
		return BootstrapCheckReserve0Doubled, nil
	default:
		return BootstrapCheckPoolEmpty, fmt.Errorf("unknown bootstrap check %q (want pool_empty or reserve0_doubled)", s)
	}
}

// IsBootstrap reports whether a mint against these reserves is a first deposit.
func (b BootstrapCheck) IsBootstrap(reserve0, reserve1 *big.Int) bool {
	switch b {
	case BootstrapCheckReserve0Doubled:
		sum := new(big.Int).Add(reserve0, reserve0)
		return sum.Sign() == 0
	default:
		return reserve0.Sign() == 0 && reserve1.Sign() == 0
	}
}

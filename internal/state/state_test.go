package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/vault-valuator/internal/types"
)

func testVault() types.VaultConfig {
	return types.VaultConfig{
		Address: "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc",
		Name:    " USDC/WETH ",
		ChainID: "1",
		TokenA:  types.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6},
		TokenB:  types.Token{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Decimals: 18},
		Seed: &types.InitialLPInfo{
			QuoteTokenAmount:       1000,
			BaseTokenAmount:        0.5,
			LPTokenAmount:          0.02,
			Timestamp:              1700000000,
			InitialPriceMultiplier: 1,
		},
	}
}

func TestValidateVaultConfig(t *testing.T) {
	require.NoError(t, ValidateVaultConfig(normalizeVaultConfig(testVault())))

	cfg := testVault()
	cfg.TokenB.Address = cfg.TokenA.Address
	require.ErrorIs(t, ValidateVaultConfig(cfg), ErrInvalidVaultConfig)

	cfg = testVault()
	cfg.ChainID = ""
	cfg.TokenA.Decimals = 19
	err := ValidateVaultConfig(cfg)
	require.ErrorIs(t, err, ErrInvalidVaultConfig)
	assert.Contains(t, err.Error(), "chain id is empty")
	assert.Contains(t, err.Error(), "decimals out of range")

	cfg = testVault()
	cfg.Seed.LPTokenAmount = 0
	require.ErrorIs(t, ValidateVaultConfig(cfg), ErrInvalidVaultConfig)

	cfg = testVault()
	cfg.Seed = nil
	require.NoError(t, ValidateVaultConfig(cfg), "unseeded vaults are allowed")
}

func TestNilStore(t *testing.T) {
	var s *Store
	ctx := context.Background()
	require.ErrorIs(t, s.Ping(ctx), ErrStoreNotInitialized)
	_, err := s.ListVaultConfigs(ctx)
	require.ErrorIs(t, err, ErrStoreNotInitialized)
	s.Close()
}

func TestDSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "vaults", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=vaults sslmode=disable", cfg.DSN())
}

// openTestStore connects to TEST_DATABASE_URL with a fresh schema.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := OpenDSN(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
	t.Cleanup(store.Close)
	return store
}

func TestVaultConfigRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	vault := testVault()
	require.NoError(t, store.CreateVaultConfig(ctx, vault))
	require.ErrorIs(t, store.CreateVaultConfig(ctx, vault), ErrVaultExists)

	got, err := store.GetVaultConfig(ctx, vault.Address)
	require.NoError(t, err)
	assert.Equal(t, "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc", got.Address)
	assert.Equal(t, "USDC/WETH", got.Name)
	assert.Equal(t, vault.TokenA.Decimals, got.TokenA.Decimals)
	require.NotNil(t, got.Seed)
	assert.Equal(t, *vault.Seed, *got.Seed)
	assert.False(t, got.CreatedAt.IsZero())

	vault.Seed = nil
	vault.Testnet = true
	require.NoError(t, store.SaveVaultConfig(ctx, vault))

	got, err = store.GetVaultConfig(ctx, vault.Address)
	require.NoError(t, err)
	assert.Nil(t, got.Seed)
	assert.True(t, got.Testnet)

	all, err := store.ListVaultConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	other, err := store.ListVaultConfigs(ctx, "8453")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, store.DeleteVaultConfig(ctx, vault.Address))
	require.ErrorIs(t, store.DeleteVaultConfig(ctx, vault.Address), ErrVaultNotFound)
	_, err = store.GetVaultConfig(ctx, vault.Address)
	require.ErrorIs(t, err, ErrVaultNotFound)
}

package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/vault-valuator/internal/types"
)

var (
	ErrVaultNotFound      = errors.New("vault not found")
	ErrVaultExists        = errors.New("vault already exists")
	ErrInvalidVaultConfig = errors.New("invalid vault config")
)

// pq error code for unique_violation.
const uniqueViolation = "23505"

const vaultColumns = `
	address, name, chain_id,
	token_a_address, token_a_symbol, token_a_decimals,
	token_b_address, token_b_symbol, token_b_decimals,
	testnet, seed, created_at`

// CreateVaultConfig inserts a new vault. Returns ErrVaultExists if the address is taken.
func (s *Store) CreateVaultConfig(ctx context.Context, cfg types.VaultConfig) error {
	return s.writeVaultConfig(ctx, cfg, false)
}

// SaveVaultConfig inserts or replaces a vault.
func (s *Store) SaveVaultConfig(ctx context.Context, cfg types.VaultConfig) error {
	return s.writeVaultConfig(ctx, cfg, true)
}

func (s *Store) writeVaultConfig(ctx context.Context, cfg types.VaultConfig, upsert bool) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInitialized
	}
	cfg = normalizeVaultConfig(cfg)
	if err := ValidateVaultConfig(cfg); err != nil {
		return err
	}

	var seed []byte
	if cfg.Seed != nil {
		var err error
		if seed, err = json.Marshal(cfg.Seed); err != nil {
			return fmt.Errorf("failed to marshal seed: %w", err)
		}
	}

	query := `
		INSERT INTO vault_configs (
			address, name, chain_id,
			token_a_address, token_a_symbol, token_a_decimals,
			token_b_address, token_b_symbol, token_b_decimals,
			testnet, seed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if upsert {
		query += `
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name, chain_id = EXCLUDED.chain_id,
			token_a_address = EXCLUDED.token_a_address, token_a_symbol = EXCLUDED.token_a_symbol,
			token_a_decimals = EXCLUDED.token_a_decimals,
			token_b_address = EXCLUDED.token_b_address, token_b_symbol = EXCLUDED.token_b_symbol,
			token_b_decimals = EXCLUDED.token_b_decimals,
			testnet = EXCLUDED.testnet, seed = EXCLUDED.seed,
			updated_at = CURRENT_TIMESTAMP`
	}

	_, err := s.db.ExecContext(ctx, query,
		cfg.Address, cfg.Name, cfg.ChainID,
		cfg.TokenA.Address, cfg.TokenA.Symbol, cfg.TokenA.Decimals,
		cfg.TokenB.Address, cfg.TokenB.Symbol, cfg.TokenB.Decimals,
		cfg.Testnet, nullableJSON(seed),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrVaultExists, cfg.Address)
		}
		return fmt.Errorf("failed to save vault config %s: %w", cfg.Address, err)
	}

	log.Info().
		Str("vault", cfg.Address).
		Str("chain_id", cfg.ChainID).
		Bool("seeded", cfg.Seed != nil).
		Msg("Vault config saved to database")
	return nil
}

// GetVaultConfig loads one vault by pair address.
func (s *Store) GetVaultConfig(ctx context.Context, address string) (types.VaultConfig, error) {
	if s == nil || s.db == nil {
		return types.VaultConfig{}, ErrStoreNotInitialized
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+vaultColumns+` FROM vault_configs WHERE address = $1`,
		types.NormalizeAddress(address))
	cfg, err := scanVaultConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.VaultConfig{}, fmt.Errorf("%w: %s", ErrVaultNotFound, address)
	}
	return cfg, err
}

// ListVaultConfigs returns every vault ordered by address, optionally restricted to some chains.
func (s *Store) ListVaultConfigs(ctx context.Context, chainIDs ...string) ([]types.VaultConfig, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreNotInitialized
	}

	var (
		rows *sql.Rows
		err  error
	)
	if len(chainIDs) == 0 {
		rows, err = s.db.QueryContext(ctx, `SELECT `+vaultColumns+` FROM vault_configs ORDER BY address`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+vaultColumns+` FROM vault_configs WHERE chain_id = ANY($1) ORDER BY address`,
			pq.Array(chainIDs))
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to query vault configs")
		return nil, fmt.Errorf("failed to query vault configs: %w", err)
	}
	defer rows.Close()

	vaults := []types.VaultConfig{}
	for rows.Next() {
		cfg, err := scanVaultConfig(rows)
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vault configs: %w", err)
	}
	return vaults, nil
}

// DeleteVaultConfig removes a vault. Returns ErrVaultNotFound if nothing was deleted.
func (s *Store) DeleteVaultConfig(ctx context.Context, address string) error {
	if s == nil || s.db == nil {
		return ErrStoreNotInitialized
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM vault_configs WHERE address = $1`, types.NormalizeAddress(address))
	if err != nil {
		return fmt.Errorf("failed to delete vault config %s: %w", address, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrVaultNotFound, address)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVaultConfig(row rowScanner) (types.VaultConfig, error) {
	var (
		cfg  types.VaultConfig
		seed []byte
	)
	err := row.Scan(
		&cfg.Address, &cfg.Name, &cfg.ChainID,
		&cfg.TokenA.Address, &cfg.TokenA.Symbol, &cfg.TokenA.Decimals,
		&cfg.TokenB.Address, &cfg.TokenB.Symbol, &cfg.TokenB.Decimals,
		&cfg.Testnet, &seed, &cfg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, err
		}
		return cfg, fmt.Errorf("failed to scan vault config: %w", err)
	}

	if len(seed) > 0 {
		var info types.InitialLPInfo
		if err := json.Unmarshal(seed, &info); err != nil {
			return cfg, fmt.Errorf("failed to unmarshal seed of vault %s: %w", cfg.Address, err)
		}
		cfg.Seed = &info
	}
	cfg.CreatedAt = cfg.CreatedAt.UTC()
	return cfg, nil
}

func normalizeVaultConfig(cfg types.VaultConfig) types.VaultConfig {
	cfg.Address = types.NormalizeAddress(cfg.Address)
	cfg.TokenA.Address = types.NormalizeAddress(cfg.TokenA.Address)
	cfg.TokenB.Address = types.NormalizeAddress(cfg.TokenB.Address)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.ChainID = strings.TrimSpace(cfg.ChainID)
	return cfg
}

// ValidateVaultConfig checks a vault before it is stored.
func ValidateVaultConfig(cfg types.VaultConfig) error {
	var errs []error

	if cfg.Address == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if cfg.ChainID == "" {
		errs = append(errs, errors.New("chain id is empty"))
	}
	if cfg.TokenA.Address == "" || cfg.TokenB.Address == "" {
		errs = append(errs, errors.New("token address is empty"))
	} else if types.SameAddress(cfg.TokenA.Address, cfg.TokenB.Address) {
		errs = append(errs, errors.New("tokens must differ"))
	}
	for _, token := range []types.Token{cfg.TokenA, cfg.TokenB} {
		if token.Decimals < 0 || token.Decimals > 18 {
			errs = append(errs, fmt.Errorf("token %s decimals out of range: %d", token.Address, token.Decimals))
		}
	}

	if seed := cfg.Seed; seed != nil {
		values := []float64{seed.QuoteTokenAmount, seed.BaseTokenAmount, seed.LPTokenAmount, seed.InitialPriceMultiplier}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				errs = append(errs, fmt.Errorf("seed amounts must be finite and non-negative, got %v", v))
				break
			}
		}
		if seed.LPTokenAmount == 0 {
			errs = append(errs, errors.New("seed LP token amount must be positive"))
		}
		if seed.Timestamp <= 0 {
			errs = append(errs, errors.New("seed timestamp must be positive"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidVaultConfig}, errs...)...)
	}
	return nil
}

// nullableJSON passes JSONB as text; lib/pq would encode a []byte as bytea.
func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}

package datafetcher

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/elys-network/vault-valuator/internal/types"
)

const pairQuery = `query VaultPair($id: ID!) {
  pair(id: $id) {
    id
    token0 { id symbol decimals }
    token1 { id symbol decimals }
    reserve0
    reserve1
    totalSupply
  }
  _meta { block { timestamp } }
}`

const snapshotsQuery = `query VaultSnapshots($vault: String!, $from: BigInt!, $cursor: ID!, $first: Int!) {
  rows: vaultSnapshots(first: $first, orderBy: id, orderDirection: asc,
    where: { vault: $vault, timestamp_gte: $from, id_gt: $cursor }) {
    id timestamp price liquidityA liquidityB totalSupply
  }
}`

const volumesQuery = `query VaultSwaps($vault: String!, $from: BigInt!, $cursor: ID!, $first: Int!) {
  rows: vaultSwaps(first: $first, orderBy: id, orderDirection: asc,
    where: { vault: $vault, timestamp_gte: $from, id_gt: $cursor }) {
    id timestamp token0 amount0 token1 amount1
  }
}`

const spreadProfitsQuery = `query VaultSpreadProfits($vault: String!, $from: BigInt!, $cursor: ID!, $first: Int!) {
  rows: vaultSpreadProfits(first: $first, orderBy: id, orderDirection: asc,
    where: { vault: $vault, timestamp_gte: $from, id_gt: $cursor }) {
    id timestamp accumulatedProfitInUSD
  }
}`

const pricesQuery = `query TokenPrices($ids: [ID!]!) {
  tokens(where: { id_in: $ids }) { id priceUSD }
}`

// FetchPairState reads the live reserves and LP supply of a pair.
func (c *Client) FetchPairState(ctx context.Context, pair string) (types.PairState, error) {
	id, err := validateAddress("pair", pair)
	if err != nil {
		return types.PairState{}, err
	}

	var data struct {
		Pair *pairRow `json:"pair"`
		Meta *metaRow `json:"_meta"`
	}
	if err := c.query(ctx, "pair", pairQuery, map[string]any{"id": id}, &data); err != nil {
		return types.PairState{}, err
	}
	if data.Pair == nil {
		return types.PairState{}, fmt.Errorf("%w: pair %s", ErrNotFound, id)
	}

	var blockTimestamp int64
	if data.Meta != nil && data.Meta.Block.Timestamp != "" {
		if blockTimestamp, err = parseTimestamp("_meta.block.timestamp", data.Meta.Block.Timestamp); err != nil {
			return types.PairState{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	state, err := data.Pair.convert(blockTimestamp)
	if err != nil {
		return types.PairState{}, fmt.Errorf("%w: pair %s: %w", ErrInvalidPayload, id, err)
	}

	subgraphLogger.Debug().
		Str("pair", id).
		Str("reserve0", state.RawReserveA.String()).
		Str("reserve1", state.RawReserveB.String()).
		Str("totalSupply", state.RawTotalSupply.String()).
		Msg("Fetched pair state")

	return state, nil
}

// FetchSnapshots returns the vault's snapshots at or after since, ascending by timestamp.
func (c *Client) FetchSnapshots(ctx context.Context, vault string, since time.Time) ([]types.PoolSnapshot, error) {
	snapshots, err := fetchPaged[types.PoolSnapshot, snapshotRow](ctx, c, "snapshots", snapshotsQuery, vault, since)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(snapshots, func(a, b types.PoolSnapshot) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
	return snapshots, nil
}

// FetchVolumes returns the vault's swaps at or after since.
func (c *Client) FetchVolumes(ctx context.Context, vault string, since time.Time) ([]types.VolumeRecord, error) {
	return fetchPaged[types.VolumeRecord, volumeRow](ctx, c, "volumes", volumesQuery, vault, since)
}

// FetchSpreadProfits returns the vault's spread profit buckets at or after since.
func (c *Client) FetchSpreadProfits(ctx context.Context, vault string, since time.Time) ([]types.SpreadProfitRecord, error) {
	return fetchPaged[types.SpreadProfitRecord, spreadProfitRow](ctx, c, "spread_profits", spreadProfitsQuery, vault, since)
}

// FetchPrices returns the current USD price of each token the subgraph knows.
// Unknown tokens are absent from the table so callers apply their own default.
func (c *Client) FetchPrices(ctx context.Context, tokens []string) (types.PriceTable, error) {
	ids := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		id, err := validateAddress("token", token)
		if err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}

	table := types.PriceTable{}
	if len(ids) == 0 {
		return table, nil
	}

	var data struct {
		Tokens []tokenPriceRow `json:"tokens"`
	}
	variables := map[string]any{"ids": slices.Sorted(maps.Keys(ids))}
	if err := c.query(ctx, "prices", pricesQuery, variables, &data); err != nil {
		return nil, err
	}

	for i, row := range data.Tokens {
		address, price, err := row.convert()
		if err != nil {
			return nil, fmt.Errorf("%w: prices row %d: %w", ErrInvalidPayload, i, err)
		}
		table.Set(address, price)
	}

	if missing := len(ids) - len(table); missing > 0 {
		subgraphLogger.Warn().Int("missing", missing).Int("requested", len(ids)).Msg("Some token prices are not indexed")
	}
	return table, nil
}

type pagedRow[T any] interface {
	rowID() string
	convert() (T, error)
}

// fetchPaged walks an id-ordered collection with id_gt cursors until a short page.
func fetchPaged[T any, R pagedRow[T]](ctx context.Context, c *Client, operation, query, vault string, since time.Time) ([]T, error) {
	id, err := validateAddress("vault", vault)
	if err != nil {
		return nil, err
	}

	var (
		out    []T
		cursor string
	)
	for page := 0; page < MAX_PAGES; page++ {
		variables := map[string]any{
			"vault":  id,
			"from":   strconv.FormatInt(since.Unix(), 10),
			"cursor": cursor,
			"first":  PAGE_SIZE,
		}

		var data struct {
			Rows []R `json:"rows"`
		}
		if err := c.query(ctx, operation, query, variables, &data); err != nil {
			return nil, err
		}

		for i, row := range data.Rows {
			record, err := row.convert()
			if err != nil {
				return nil, fmt.Errorf("%w: %s page %d row %d: %w", ErrInvalidPayload, operation, page, i, err)
			}
			if row.rowID() <= cursor {
				return nil, fmt.Errorf("%w: %s ids are not ascending at %q", ErrInvalidPayload, operation, row.rowID())
			}
			cursor = row.rowID()
			out = append(out, record)
		}

		if len(data.Rows) < PAGE_SIZE {
			subgraphLogger.Debug().
				Str("operation", operation).
				Str("vault", id).
				Int("records", len(out)).
				Int("pages", page+1).
				Msg("Fetched paged records")
			if out == nil {
				out = []T{}
			}
			return out, nil
		}
	}

	return nil, fmt.Errorf("%w: %s for vault %s after %d pages", ErrTooManyPages, operation, id, MAX_PAGES)
}

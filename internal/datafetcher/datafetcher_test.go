package datafetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/vault-valuator/internal/types"
)

const (
	testPair  = "0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"
	testUSDC  = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	testWETH  = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	pairReply = `{"data":{"pair":{"id":"0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc",
		"token0":{"id":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48","symbol":"USDC","decimals":"6"},
		"token1":{"id":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","symbol":"WETH","decimals":"18"},
		"reserve0":"1500000.123456","reserve1":"500.5","totalSupply":"0.000027"},
		"_meta":{"block":{"timestamp":1700000000}}}}`
)

// newTestClient serves handler and returns a client with no meaningful rate limit or backoff.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		URL:               server.URL,
		APIKey:            "secret",
		RequestsPerSecond: 1000,
		RetryDelay:        time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{URL: "not-a-url", RequestsPerSecond: 1})
	require.Error(t, err)

	_, err = NewClient(ClientConfig{URL: "http://localhost", RequestsPerSecond: 0})
	require.Error(t, err)
}

func TestFetchPairState(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "VaultPair")
		assert.Equal(t, "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc", req.Variables["id"])
		fmt.Fprint(w, pairReply)
	})

	state, err := client.FetchPairState(context.Background(), testPair)
	require.NoError(t, err)

	assert.Equal(t, "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc", state.Address)
	assert.Equal(t, types.Token{Address: testUSDC, Symbol: "USDC", Decimals: 6}, state.TokenA)
	assert.Equal(t, 18, state.TokenB.Decimals)
	assert.InDelta(t, 1500000.123456, state.Reserves.ReserveA, 1e-6)
	assert.InDelta(t, 500.5, state.Reserves.ReserveB, 1e-12)
	assert.Equal(t, "1500000123456", state.RawReserveA.String())
	assert.Equal(t, "500500000000000000000", state.RawReserveB.String())
	assert.Equal(t, "27000000000000", state.RawTotalSupply.String())
	assert.Equal(t, int64(1700000000), state.BlockTimestamp)
}

func TestFetchPairStateNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"pair":null,"_meta":{"block":{"timestamp":1}}}}`)
	})

	_, err := client.FetchPairState(context.Background(), testPair)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchPairStateRejectsMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"negative reserve": strings.Replace(pairReply, `"500.5"`, `"-500.5"`, 1),
		"bad token":        strings.Replace(pairReply, `"id":"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"`, `"id":"usdc"`, 1),
		"bad decimals":     strings.Replace(pairReply, `"decimals":"6"`, `"decimals":"77"`, 1),
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, reply)
			})
			_, err := client.FetchPairState(context.Background(), testPair)
			require.ErrorIs(t, err, ErrInvalidPayload)
		})
	}
}

func TestFetchPairStateRejectsBadAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.FetchPairState(context.Background(), "0x1234")
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestGraphQLErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"errors":[{"message":"Type Query has no field pair"}]}`)
	})

	_, err := client.FetchPairState(context.Background(), testPair)
	require.ErrorIs(t, err, ErrGraphQL)
	assert.Contains(t, err.Error(), "has no field pair")
	assert.Equal(t, int32(1), calls.Load())
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < MAX_RETRIES {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, pairReply)
	})

	_, err := client.FetchPairState(context.Background(), testPair)
	require.NoError(t, err)
	assert.Equal(t, int32(MAX_RETRIES), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchPairState(context.Background(), testPair)
	require.ErrorIs(t, err, ErrSubgraphUnavailable)
	assert.Equal(t, int32(MAX_RETRIES), calls.Load())
}

func TestClientErrorStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.FetchPairState(context.Background(), testPair)
	require.ErrorIs(t, err, ErrSubgraphUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pairReply)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPairState(ctx, testPair)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFetchSnapshotsPaginates(t *testing.T) {
	var pages atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "VaultSnapshots")
		assert.Equal(t, "1699990000", req.Variables["from"])

		rows := make([]string, 0, PAGE_SIZE)
		switch pages.Add(1) {
		case 1:
			assert.Equal(t, "", req.Variables["cursor"])
			// full page, ids descending in time to check the final sort
			for i := 0; i < PAGE_SIZE; i++ {
				rows = append(rows, fmt.Sprintf(`{"id":"a%04d","timestamp":"%d","price":"2","liquidityA":"1","liquidityB":"2","totalSupply":"1"}`,
					i, 1700100000-i))
			}
		case 2:
			assert.Equal(t, fmt.Sprintf("a%04d", PAGE_SIZE-1), req.Variables["cursor"])
			rows = append(rows, `{"id":"b0000","timestamp":"1700200000","price":"1.5e0","liquidityA":"1","liquidityB":"2","totalSupply":"1"}`)
		default:
			t.Fatal("unexpected extra page")
		}
		fmt.Fprintf(w, `{"data":{"rows":[%s]}}`, strings.Join(rows, ","))
	})

	snapshots, err := client.FetchSnapshots(context.Background(), testPair, time.Unix(1699990000, 0))
	require.NoError(t, err)
	require.Len(t, snapshots, PAGE_SIZE+1)
	assert.Equal(t, int64(1700100000-PAGE_SIZE+1), snapshots[0].Timestamp)
	assert.Equal(t, int64(1700200000), snapshots[len(snapshots)-1].Timestamp)
	assert.Equal(t, 1.5, snapshots[len(snapshots)-1].Price)
}

func TestFetchVolumesAndSpreadProfits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		switch {
		case strings.Contains(req.Query, "VaultSwaps"):
			fmt.Fprintf(w, `{"data":{"rows":[{"id":"1","timestamp":"1700000000","token0":"%s","amount0":"100","token1":"%s","amount1":"0.05"}]}}`,
				testUSDC, testWETH)
		case strings.Contains(req.Query, "VaultSpreadProfits"):
			fmt.Fprint(w, `{"data":{"rows":[{"id":"1","timestamp":"1700000000","accumulatedProfitInUSD":"12.5"},{"id":"2","timestamp":"1700003600","accumulatedProfitInUSD":"-2.5"}]}}`)
		default:
			t.Fatalf("unexpected query %s", req.Query)
		}
	})

	volumes, err := client.FetchVolumes(context.Background(), testPair, time.Unix(1699900000, 0))
	require.NoError(t, err)
	require.Len(t, volumes, 1)
	assert.Equal(t, types.VolumeRecord{Timestamp: 1700000000, Token0: testUSDC, Amount0: 100, Token1: testWETH, Amount1: 0.05}, volumes[0])

	profits, err := client.FetchSpreadProfits(context.Background(), testPair, time.Unix(1699900000, 0))
	require.NoError(t, err)
	require.Len(t, profits, 2)
	assert.Equal(t, -2.5, profits[1].AccumulatedProfitInUSD)
}

func TestFetchEmptyCollection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"rows":[]}}`)
	})

	snapshots, err := client.FetchSnapshots(context.Background(), testPair, time.Unix(1, 0))
	require.NoError(t, err)
	assert.NotNil(t, snapshots)
	assert.Empty(t, snapshots)
}

func TestFetchRejectsNonAscendingIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"rows":[{"id":"2","timestamp":"5","accumulatedProfitInUSD":"1"},{"id":"1","timestamp":"6","accumulatedProfitInUSD":"1"}]}}`)
	})

	_, err := client.FetchSpreadProfits(context.Background(), testPair, time.Unix(1, 0))
	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestFetchPrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Equal(t, []any{testUSDC, testWETH}, req.Variables["ids"])
		fmt.Fprintf(w, `{"data":{"tokens":[{"id":"%s","priceUSD":"0.9998"}]}}`, testUSDC)
	})

	prices, err := client.FetchPrices(context.Background(), []string{testWETH, strings.ToUpper("0x" + testUSDC[2:]), testUSDC})
	require.NoError(t, err)
	price, ok := prices.Lookup(testUSDC)
	assert.True(t, ok)
	assert.Equal(t, 0.9998, price)
	_, ok = prices.Lookup(testWETH)
	assert.False(t, ok, "unindexed tokens stay absent")

	_, err = client.FetchPrices(context.Background(), []string{"WETH"})
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestReserveCache(t *testing.T) {
	_, err := NewReserveCache(0, time.Second)
	require.Error(t, err)

	cache, err := NewReserveCache(2, 50*time.Millisecond)
	require.NoError(t, err)

	fetcher := &countingFetcher{}
	ctx := context.Background()

	first, err := cache.GetOrFetch(ctx, testPair, fetcher)
	require.NoError(t, err)
	second, err := cache.GetOrFetch(ctx, strings.ToLower(testPair), fetcher)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), fetcher.calls.Load(), "second read is served from cache")

	cache.Invalidate(testPair)
	_, err = cache.GetOrFetch(ctx, testPair, fetcher)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetcher.calls.Load())

	time.Sleep(100 * time.Millisecond)
	_, ok := cache.Get(testPair)
	assert.False(t, ok, "entries expire after the TTL")
}

func TestReserveCacheDoesNotStoreFailures(t *testing.T) {
	cache, err := NewReserveCache(4, time.Minute)
	require.NoError(t, err)

	fetcher := &countingFetcher{err: ErrSubgraphUnavailable}
	_, err = cache.GetOrFetch(context.Background(), testPair, fetcher)
	require.ErrorIs(t, err, ErrSubgraphUnavailable)
	assert.Zero(t, cache.Len())
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) FetchPairState(_ context.Context, pair string) (types.PairState, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return types.PairState{}, f.err
	}
	return types.PairState{Address: pair, BlockTimestamp: int64(n)}, nil
}

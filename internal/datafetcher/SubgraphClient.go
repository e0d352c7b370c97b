/*
This file contains the GraphQL client used to read vault data from the indexer subgraph.

Every query goes through the rate limiter and is retried on transport failures and
5xx/429 responses. GraphQL level errors are not retried: the query or its variables are wrong.
*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/elys-network/vault-valuator/internal/logger"
	"github.com/elys-network/vault-valuator/internal/metrics"
)

var subgraphLogger = logger.GetForComponent("subgraph_client")

var (
	ErrSubgraphUnavailable = errors.New("subgraph unavailable")
	ErrGraphQL             = errors.New("subgraph returned errors")
	ErrInvalidPayload      = errors.New("invalid subgraph payload")
	ErrNotFound            = errors.New("entity not found in subgraph")
	ErrTooManyPages        = errors.New("subgraph result exceeds page limit")
)

const (
	MAX_RETRIES        = 3
	PAGE_SIZE          = 1000
	MAX_PAGES          = 100
	maxResponseBytes   = 32 << 20
	defaultRetryDelay  = time.Second
	defaultHTTPTimeout = 30 * time.Second
)

// ClientConfig configures a subgraph Client.
type ClientConfig struct {
	URL               string
	APIKey            string        // sent as a bearer token when set
	RequestsPerSecond float64       // sustained rate; burst is one second worth of requests
	Timeout           time.Duration // per HTTP request
	RetryDelay        time.Duration // linear backoff step between attempts
	HTTPClient        *http.Client  // optional, Timeout is ignored when set
}

// Client queries the vault subgraph. Safe for concurrent use.
type Client struct {
	url        string
	apiKey     string
	http       *http.Client
	limiter    *rate.Limiter
	retryDelay time.Duration
}

func NewClient(cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("subgraph URL must be absolute, got %q", cfg.URL)
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %f", cfg.RequestsPerSecond)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		http:       httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		retryDelay: retryDelay,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// query runs one GraphQL operation and decodes its data object into out.
func (c *Client) query(ctx context.Context, operation, query string, variables map[string]any, out any) error {
	start := time.Now()
	defer func() {
		metrics.SubgraphRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", operation, err)
	}

	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubgraphUnavailable, operation, err)
		}

		subgraphLogger.Debug().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("maxRetries", MAX_RETRIES).
			Msg("Making subgraph request")

		data, retryable, err := c.post(ctx, operation, body)
		if err == nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, operation, err)
			}
			metrics.SubgraphRequestsTotal.WithLabelValues(operation, "success").Inc()
			return nil
		}

		lastErr = err
		if !retryable || ctx.Err() != nil {
			return err
		}

		subgraphLogger.Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Msg("Subgraph request failed, will retry if attempts remain")

		if attempt < MAX_RETRIES {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %w", ErrSubgraphUnavailable, operation, ctx.Err())
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}
	}

	subgraphLogger.Error().
		Err(lastErr).
		Str("operation", operation).
		Int("maxRetries", MAX_RETRIES).
		Msg("All retry attempts failed")
	return fmt.Errorf("%s failed after %d attempts: %w", operation, MAX_RETRIES, lastErr)
}

// post sends one request. The bool reports whether a failure is worth retrying.
func (c *Client) post(ctx context.Context, operation string, body []byte) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
		return nil, true, fmt.Errorf("%w: %s: %w", ErrSubgraphUnavailable, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
		return nil, true, fmt.Errorf("%w: %s: reading body: %w", ErrSubgraphUnavailable, operation, err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "http_error").Inc()
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("%w: %s: status %d", ErrSubgraphUnavailable, operation, resp.StatusCode)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "graphql_error").Inc()
		return nil, false, fmt.Errorf("%w: %s: %w", ErrInvalidPayload, operation, err)
	}

	if len(gql.Errors) > 0 {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "graphql_error").Inc()
		messages := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			messages = append(messages, e.Message)
		}
		return nil, false, fmt.Errorf("%w: %s: %s", ErrGraphQL, operation, strings.Join(messages, "; "))
	}

	if len(gql.Data) == 0 || bytes.Equal(gql.Data, []byte("null")) {
		metrics.SubgraphRequestsTotal.WithLabelValues(operation, "graphql_error").Inc()
		return nil, false, fmt.Errorf("%w: %s: empty data", ErrInvalidPayload, operation)
	}

	return gql.Data, false, nil
}

package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
	"github.com/sethvargo/go-retry"
)

const (
	accessTokenHeader = "X-Shopify-Access-Token"

	transientRetries = 3
	retryBaseDelay   = 500 * time.Millisecond
)

// Client executes Admin GraphQL operations against one shop.
type Client struct {
	httpClient    *http.Client
	endpoint      string
	accessToken   string
	webhookSecret string
	logg          *logger.Logger
}

// GraphQLError is one entry of a top-level GraphQL errors array.
type GraphQLError struct {
	Message string `json:"message"`
}

// UserError is the userErrors shape shared by Shopify mutations.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// NewClient builds a client for the configured shop domain and API version.
func NewClient(cfg config.ShopifyConfig, logg *logger.Logger) (*Client, error) {
	domain := strings.TrimSpace(cfg.ShopDomain)
	if domain == "" {
		return nil, errors.New("shop domain is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("access token is required")
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		return nil, errors.New("api version is required")
	}

	return &Client{
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		endpoint:      fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, version),
		accessToken:   cfg.AccessToken,
		webhookSecret: cfg.WebhookSecret,
		logg:          logg,
	}, nil
}

// WebhookSecret exposes the shared secret used to verify inbound webhooks.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// Execute posts the query and returns the raw data payload. Top-level
// GraphQL errors become Go errors; mutation-level userErrors are left for
// the caller to interpret since their shape is per-operation. Throttled and
// 5xx responses are retried with exponential backoff before giving up.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("shopify client not initialized")
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding graphql request: %w", err)
	}

	var data json.RawMessage
	backoff := retry.WithMaxRetries(transientRetries, retry.NewExponential(retryBaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(accessTokenHeader, c.accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("shopify responded %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("shopify responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var envelope graphqlResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("decoding graphql response: %w", err)
		}
		if len(envelope.Errors) > 0 {
			return fmt.Errorf("graphql errors: %s", joinGraphQLErrors(envelope.Errors))
		}

		data = envelope.Data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func joinGraphQLErrors(errs []GraphQLError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// JoinUserErrors renders a mutation's userErrors for wrapping into an error.
func JoinUserErrors(errs []UserError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if len(e.Field) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(e.Field, "."), e.Message))
			continue
		}
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

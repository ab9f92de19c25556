// Package azure implements the chat completion transport against an Azure
// OpenAI deployment. Authentication is either a static API key or a bearer
// token from a credentials.TokenProvider, chosen at construction time.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/menta2k/image-describer/pkg/chat"
	"github.com/menta2k/image-describer/pkg/credentials"
)

// DefaultAPIVersion is the Azure OpenAI API version used when none is configured.
const DefaultAPIVersion = "2024-12-01-preview"

type Client struct {
	endpoint   string
	deployment string
	apiVersion string

	apiKey string
	tokens credentials.TokenProvider

	httpClient *http.Client
}

// NewClientWithKey creates a client authenticating with a static API key.
func NewClientWithKey(endpoint, deployment, apiVersion, apiKey string) (*Client, error) {
	c, err := newClient(endpoint, deployment, apiVersion)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	c.apiKey = apiKey
	return c, nil
}

// NewClientWithToken creates a client authenticating with bearer tokens from
// the given provider.
func NewClientWithToken(endpoint, deployment, apiVersion string, tokens credentials.TokenProvider) (*Client, error) {
	c, err := newClient(endpoint, deployment, apiVersion)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	c.tokens = tokens
	return c, nil
}

func newClient(endpoint, deployment, apiVersion string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme: %s", parsed.Scheme)
	}
	if deployment == "" {
		return nil, fmt.Errorf("deployment name is required")
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		deployment: deployment,
		apiVersion: apiVersion,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}, nil
}

// AuthMethod names the authentication strategy in use.
func (c *Client) AuthMethod() string {
	if c.tokens != nil {
		return "Bearer Token"
	}
	return "API Key"
}

// Complete performs one chat completion round trip.
func (c *Client) Complete(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	completionsURL := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, url.PathEscape(c.deployment), url.QueryEscape(c.apiVersion))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", completionsURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else {
		httpReq.Header.Set("api-key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp chat.CompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}

	return &resp, nil
}

// Package credentials resolves bearer tokens for backends that do not use
// static API keys. Selection happens once at client construction; the
// analysis path stays agnostic to how a token was obtained.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/apex/log"
)

// DefaultResource is the token audience for Azure Cognitive Services.
const DefaultResource = "https://cognitiveservices.azure.com/"

// defaultMetadataURL is the Azure instance metadata (IMDS) token endpoint.
const defaultMetadataURL = "http://169.254.169.254/metadata/identity/oauth2/token"

const metadataAPIVersion = "2018-02-01"

// refreshMargin is how long before expiry a cached token is considered stale.
const refreshMargin = 2 * time.Minute

// TokenProvider yields a bearer token to attach to outgoing requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider backed by a fixed string, useful for tests
// and for environments where a token is minted out of band.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// ManagedIdentity fetches bearer tokens from the Azure instance metadata
// service, optionally pinned to a user-assigned identity by client ID.
// Tokens are cached until shortly before they expire.
type ManagedIdentity struct {
	clientID    string
	resource    string
	metadataURL string
	httpClient  *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// ManagedIdentityOption customizes a ManagedIdentity provider.
type ManagedIdentityOption func(*ManagedIdentity)

// WithClientID pins token requests to a user-assigned managed identity.
func WithClientID(clientID string) ManagedIdentityOption {
	return func(m *ManagedIdentity) {
		m.clientID = clientID
	}
}

// WithResource overrides the token audience.
func WithResource(resource string) ManagedIdentityOption {
	return func(m *ManagedIdentity) {
		m.resource = resource
	}
}

// WithMetadataURL overrides the IMDS endpoint, used by tests.
func WithMetadataURL(u string) ManagedIdentityOption {
	return func(m *ManagedIdentity) {
		m.metadataURL = u
	}
}

// NewManagedIdentity creates a managed identity token provider.
func NewManagedIdentity(opts ...ManagedIdentityOption) *ManagedIdentity {
	m := &ManagedIdentity{
		resource:    DefaultResource,
		metadataURL: defaultMetadataURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clientID != "" {
		log.Infof("using user-assigned managed identity: %s", m.clientID)
	} else {
		log.Info("using system-assigned managed identity")
	}
	return m
}

// ClientID returns the pinned user-assigned identity, empty for
// system-assigned.
func (m *ManagedIdentity) ClientID() string {
	return m.clientID
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresOn   string `json:"expires_on"`
}

// Token returns a cached bearer token, fetching a fresh one from the
// metadata service when the cache is empty or close to expiry.
func (m *ManagedIdentity) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expires.Add(-refreshMargin)) {
		return m.token, nil
	}

	token, expires, err := m.fetchToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	m.token = token
	m.expires = expires
	return token, nil
}

func (m *ManagedIdentity) fetchToken(ctx context.Context) (string, time.Time, error) {
	q := url.Values{}
	q.Set("api-version", metadataAPIVersion)
	q.Set("resource", m.resource)
	if m.clientID != "" {
		q.Set("client_id", m.clientID)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", m.metadataURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Metadata", "true")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to reach metadata service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("metadata service returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("metadata service returned an empty token")
	}

	// expires_on is a unix timestamp in seconds, delivered as a string
	expires := time.Now().Add(5 * time.Minute)
	if secs, err := strconv.ParseInt(tr.ExpiresOn, 10, 64); err == nil {
		expires = time.Unix(secs, 0)
	}

	return tr.AccessToken, expires, nil
}

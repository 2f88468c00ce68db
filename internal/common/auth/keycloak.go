// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"innovation-crm/internal/common/errors"
)

// KeycloakClient validates bearer tokens against a Keycloak realm.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// TokenInfo holds the information returned by the token introspection endpoint.
type TokenInfo struct {
	Active            bool   `json:"active"`
	Scope             string `json:"scope,omitempty"`
	ClientID          string `json:"client_id,omitempty"`
	Username          string `json:"username,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Name              string `json:"name,omitempty"`
	Exp               int64  `json:"exp,omitempty"`
	Sub               string `json:"sub,omitempty"` // user ID
	Iss               string `json:"iss,omitempty"`
}

// UserID is the identity the CRM scopes every document by.
func (t *TokenInfo) UserID() string {
	if t.Sub != "" {
		return t.Sub
	}
	if t.PreferredUsername != "" {
		return t.PreferredUsername
	}
	return t.Username
}

// NewKeycloakClient creates a new instance of KeycloakClient.
func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateToken checks if an access token is valid and active.
func (k *KeycloakClient) ValidateToken(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, errors.NewAuthenticationError("missing bearer token")
	}

	introspectURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token/introspect", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("token", token)
	data.Set("token_type_hint", "access_token")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, introspectURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewTimeoutError("keycloak", err)
		}
		return nil, errors.NewExternalServiceError("keycloak", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		stdErr := errors.NewExternalServiceError("keycloak",
			fmt.Errorf("introspection status %d: %s", resp.StatusCode, string(body)))
		stdErr.Retryable = errors.IsTransientStatus(resp.StatusCode)
		return nil, stdErr
	}

	var tokenInfo TokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.NewExternalServiceError("keycloak", fmt.Errorf("decode introspection response: %w", err))
	}

	if !tokenInfo.Active {
		return nil, errors.NewAuthenticationError("token is expired, revoked or malformed")
	}
	if tokenInfo.UserID() == "" {
		return nil, errors.NewAuthenticationError("token carries no subject")
	}

	return &tokenInfo, nil
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provisioner creates the external auth identity for a new account.
type Provisioner interface {
	Provision(ctx context.Context, email, password string) error
}

// NoopProvisioner logs instead of calling an external system.
// Used in development and when no auth endpoint is configured.
type NoopProvisioner struct{}

// Provision logs the identity that would have been created.
func (NoopProvisioner) Provision(_ context.Context, email, _ string) error {
	slog.Info("identity_event", "event", "provision_skipped", "email", email)
	return nil
}

// HTTPProvisioner calls an email/password sign-up endpoint of the
// Identity Toolkit REST shape: POST {Endpoint}?key={APIKey} with
// {"email", "password", "returnSecureToken"}.
type HTTPProvisioner struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewHTTPProvisioner creates a provisioner with a bounded HTTP client.
func NewHTTPProvisioner(endpoint, apiKey string) *HTTPProvisioner {
	return &HTTPProvisioner{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type signUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signUpError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Provision creates the identity. An identity that already exists counts as
// provisioned.
// PRE: email and password are non-empty
// POST: identity exists in the external system, or an error is returned
func (p *HTTPProvisioner) Provision(ctx context.Context, email, password string) error {
	body, err := json.Marshal(signUpRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	target := p.Endpoint
	if p.APIKey != "" {
		target += "?key=" + url.QueryEscape(p.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build provisioning request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("provisioning request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr signUpError
	if json.Unmarshal(raw, &apiErr) == nil && strings.HasPrefix(apiErr.Error.Message, "EMAIL_EXISTS") {
		return nil
	}
	return fmt.Errorf("provisioning failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}

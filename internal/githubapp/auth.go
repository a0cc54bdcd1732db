// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package githubapp mints short-lived GitHub App installation access
// tokens: it signs an RS256 JWT from the App's private key and
// exchanges it for an installation token, auto-rotating before expiry.
// It implements the core's RepoFetcher.accessToken() collaborator.
package githubapp

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/easybill/easydep/internal/clock"
)

// tokenRotationMargin is how far before expiry a cached installation
// token is considered stale. GitHub installation tokens have a 1-hour
// TTL; rotating 5 minutes early avoids a request racing expiry.
const tokenRotationMargin = 5 * time.Minute

const defaultBaseURL = "https://api.github.com"

// TokenMinter mints and caches GitHub App installation access tokens.
type TokenMinter struct {
	appID          int64
	installationID int64
	privateKey     *rsa.PrivateKey
	clock          clock.Clock
	httpClient     *http.Client
	baseURL        string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Config configures a TokenMinter.
type Config struct {
	AppID          int64
	InstallationID int64
	// PrivateKeyPEM is the App's RSA private key, PEM-encoded. Accepts
	// both conventional multi-line PEM and the single-line-with-spaces
	// variant produced when the key is passed through a shell
	// environment variable (see normalizeSingleLinePEM).
	PrivateKeyPEM []byte
	HTTPClient    *http.Client
	BaseURL       string
	Clock         clock.Clock
}

// NewTokenMinter parses privateKeyPEM and returns a minter ready to
// produce installation tokens. Returns the key parse error unchanged;
// the agent's main treats it as a startup-fatal misconfiguration.
func NewTokenMinter(cfg Config) (*TokenMinter, error) {
	privateKey, err := parsePrivateKey(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &TokenMinter{
		appID:          cfg.AppID,
		installationID: cfg.InstallationID,
		privateKey:     privateKey,
		clock:          clk,
		httpClient:     httpClient,
		baseURL:        baseURL,
	}, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, err := decodePEMBlock(pemBytes)
	if err != nil {
		return nil, err
	}

	key, err := x509.ParsePKCS1PrivateKey(block)
	if err == nil {
		return key, nil
	}

	keyInterface, pkcs8Err := x509.ParsePKCS8PrivateKey(block)
	if pkcs8Err != nil {
		return nil, fmt.Errorf("githubapp: parsing private key: %w (also tried PKCS8: %v)", err, pkcs8Err)
	}
	rsaKey, ok := keyInterface.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("githubapp: private key is not RSA")
	}
	return rsaKey, nil
}

// AccessToken returns a valid installation access token (without any
// "Bearer " prefix), minting or rotating one if the cached token is
// absent or within tokenRotationMargin of expiry.
func (minter *TokenMinter) AccessToken(ctx context.Context) (string, error) {
	minter.mu.Lock()
	defer minter.mu.Unlock()

	if minter.token != "" && minter.clock.Now().Before(minter.expiresAt.Add(-tokenRotationMargin)) {
		return minter.token, nil
	}

	token, expiresAt, err := minter.rotate(ctx)
	if err != nil {
		return "", err
	}

	minter.token = token
	minter.expiresAt = expiresAt
	return token, nil
}

// rotate generates a fresh JWT and exchanges it for an installation
// token. Callers must hold minter.mu.
func (minter *TokenMinter) rotate(ctx context.Context) (string, time.Time, error) {
	jwt, err := minter.generateJWT()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("githubapp: generating JWT: %w", err)
	}

	url := minter.baseURL + "/app/installations/" + strconv.FormatInt(minter.installationID, 10) + "/access_tokens"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("githubapp: creating token exchange request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+jwt)
	request.Header.Set("Accept", "application/vnd.github+json")

	response, err := minter.httpClient.Do(request)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("githubapp: token exchange request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return "", time.Time{}, fmt.Errorf("githubapp: token exchange returned HTTP %d: %s", response.StatusCode, body)
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return "", time.Time{}, fmt.Errorf("githubapp: decoding token exchange response: %w", err)
	}
	if result.Token == "" {
		return "", time.Time{}, fmt.Errorf("githubapp: token exchange returned empty token")
	}

	return result.Token, result.ExpiresAt, nil
}

// generateJWT creates an RS256-signed JWT for GitHub App authentication.
// It has a 10-minute expiry and is used solely to exchange for an
// installation token — stdlib crypto is enough, no JWT library needed
// for this one constrained shape.
func (minter *TokenMinter) generateJWT() (string, error) {
	now := minter.clock.Now()

	header := base64URLEncode([]byte(`{"alg":"RS256","typ":"JWT"}`))

	claims := struct {
		IssuedAt  int64  `json:"iat"`
		ExpiresAt int64  `json:"exp"`
		Issuer    string `json:"iss"`
	}{
		IssuedAt:  now.Add(-60 * time.Second).Unix(),
		ExpiresAt: now.Add(10 * time.Minute).Unix(),
		Issuer:    strconv.FormatInt(minter.appID, 10),
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshaling claims: %w", err)
	}
	payload := base64URLEncode(claimsJSON)

	signingInput := header + "." + payload
	hash := sha256.Sum256([]byte(signingInput))
	signature, err := rsa.SignPKCS1v15(rand.Reader, minter.privateKey, crypto.SHA256, hash[:])
	if err != nil {
		return "", fmt.Errorf("signing JWT: %w", err)
	}

	return signingInput + "." + base64URLEncode(signature), nil
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

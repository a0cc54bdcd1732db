// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package githubapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/easybill/easydep/internal/clock"
)

func newTestMinter(t *testing.T, handler http.HandlerFunc, clk clock.Clock) (*TokenMinter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	minter, err := NewTokenMinter(Config{
		AppID:          1,
		InstallationID: 2,
		PrivateKeyPEM:  generateTestKeyPEM(t),
		HTTPClient:     server.Client(),
		BaseURL:        server.URL,
		Clock:          clk,
	})
	if err != nil {
		t.Fatalf("NewTokenMinter: %v", err)
	}
	return minter, server
}

func TestAccessTokenMintsAndCaches(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Errorf("missing bearer JWT: %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "installation-token-1",
			"expires_at": time.Now().Add(time.Hour),
		})
	}

	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	minter, _ := newTestMinter(t, handler, fake)

	token, err := minter.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	if token != "installation-token-1" {
		t.Errorf("token = %q, want installation-token-1", token)
	}

	if _, err := minter.AccessToken(context.Background()); err != nil {
		t.Fatalf("second AccessToken: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("token exchange called %d times, want 1 (cached)", got)
	}
}

func TestAccessTokenRotatesNearExpiry(t *testing.T) {
	var calls int32
	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token":      "token-" + time.Now().String(),
			"expires_at": fake.Now().Add(10 * time.Minute),
		})
	}
	minter, _ := newTestMinter(t, handler, fake)

	first, err := minter.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}

	fake.Advance(6 * time.Minute) // past the 5-minute rotation margin

	second, err := minter.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken after advance: %v", err)
	}
	if first == second {
		t.Error("expected a rotated token after crossing the rotation margin")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("token exchange called %d times, want 2", got)
	}
}

func TestAccessTokenNonCreatedStatus(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not authorized"}`))
	}
	minter, _ := newTestMinter(t, handler, clock.Real())

	if _, err := minter.AccessToken(context.Background()); err == nil {
		t.Fatal("AccessToken expected error on non-201 response")
	}
}

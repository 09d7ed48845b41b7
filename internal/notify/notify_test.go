// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/repolens/internal/config"
)

func TestHTTPSendCompletionEmail(t *testing.T) {
	var got mailPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	n := NewHTTP(srv.URL, "noreply@kraklabs.dev", nil)
	require.NoError(t, n.SendCompletionEmail(context.Background(), "u1@example.com", "acme/widgets", "main"))

	assert.Equal(t, "u1@example.com", got.To)
	assert.Equal(t, "noreply@kraklabs.dev", got.From)
	assert.Equal(t, "acme/widgets", got.RepoName)
	assert.Equal(t, "parse_complete", got.Template)
}

func TestHTTPSendCompletionEmail_RelayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTP(srv.URL, "", nil)
	assert.Error(t, n.SendCompletionEmail(context.Background(), "u1@example.com", "acme/widgets", "main"))
}

func TestFactory(t *testing.T) {
	n, err := New(config.NotifyConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, n)

	_, err = New(config.NotifyConfig{Type: "http"}, nil)
	assert.Error(t, err)

	_, err = New(config.NotifyConfig{Type: "smtp"}, nil)
	assert.Error(t, err)
}

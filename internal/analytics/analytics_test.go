// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package analytics

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

func TestHTTPRecordEvent(t *testing.T) {
	var (
		got  event
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	a := NewHTTP(srv.URL, "key-123", nil)
	err := a.RecordEvent(context.Background(), "u1", "project_created", map[string]any{"repo": "acme/widgets"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer key-123", auth)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "project_created", got.Event)
	assert.Equal(t, "acme/widgets", got.Properties["repo"])
	assert.False(t, got.Timestamp.IsZero())
}

func TestFactory(t *testing.T) {
	a, err := New(config.AnalyticsConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, a)

	_, err = New(config.AnalyticsConfig{Type: "http"}, nil)
	assert.Error(t, err)
}

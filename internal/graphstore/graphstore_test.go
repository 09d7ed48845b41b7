// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/repolens/internal/config"
)

func TestMemoryDuplicateGraph(t *testing.T) {
	m := NewMemory()
	m.Put("src", "nodes.bin", []byte("nodes"))
	m.Put("src", "edges.bin", []byte("edges"))

	require.NoError(t, m.DuplicateGraph(context.Background(), "src", "dst"))

	data, ok := m.Get("dst", "nodes.bin")
	require.True(t, ok)
	assert.Equal(t, []byte("nodes"), data)
	assert.Len(t, m.Keys("dst"), 2)
}

func TestMemoryDuplicateGraph_CopyIsIndependent(t *testing.T) {
	m := NewMemory()
	m.Put("src", "nodes.bin", []byte("nodes"))
	require.NoError(t, m.DuplicateGraph(context.Background(), "src", "dst"))

	m.Put("src", "nodes.bin", []byte("mutated"))
	data, _ := m.Get("dst", "nodes.bin")
	assert.Equal(t, []byte("nodes"), data)
}

func TestMemoryDuplicateGraph_EmptySourceFails(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.DuplicateGraph(context.Background(), "missing", "dst"))
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	gs, err := New(ctx, config.GraphStoreConfig{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, gs)

	_, err = New(ctx, config.GraphStoreConfig{Type: "s3"}, nil)
	assert.Error(t, err, "s3 without a bucket must be rejected")

	_, err = New(ctx, config.GraphStoreConfig{Type: "cozo"}, nil)
	assert.Error(t, err)
}

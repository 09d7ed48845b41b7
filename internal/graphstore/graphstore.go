// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package graphstore duplicates stored project graphs. The orchestrator's
// demo fast path copies a template project's graph under a new project
// identity without re-parsing.
package graphstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps graph blobs in a process-local map. Used for tests and
// single-node deployments without object storage.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string]map[string][]byte // projectID -> key -> data
}

// NewMemory creates an empty in-memory graph store.
func NewMemory() *Memory {
	return &Memory{blobs: map[string]map[string][]byte{}}
}

// Put stores one graph blob under a project.
func (m *Memory) Put(projectID, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blobs[projectID] == nil {
		m.blobs[projectID] = map[string][]byte{}
	}
	m.blobs[projectID][key] = data
}

// Get returns one graph blob.
func (m *Memory) Get(projectID, key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[projectID][key]
	return data, ok
}

// Keys lists the blob keys stored for a project, in no particular order.
func (m *Memory) Keys(projectID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs[projectID]))
	for k := range m.blobs[projectID] {
		keys = append(keys, k)
	}
	return keys
}

// DuplicateGraph copies every blob of sourceProjectID under
// targetProjectID. A source with no stored graph is an error: the demo
// fast path must never mark an empty copy ready.
func (m *Memory) DuplicateGraph(ctx context.Context, sourceProjectID, targetProjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.blobs[sourceProjectID]
	if len(src) == 0 {
		return fmt.Errorf("project %s has no stored graph", sourceProjectID)
	}
	dst := map[string][]byte{}
	for k, v := range src {
		cp := make([]byte, len(v))
		copy(cp, v)
		dst[k] = cp
	}
	m.blobs[targetProjectID] = dst
	return nil
}

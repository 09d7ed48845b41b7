// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package structure

import (
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache()

	if _, ok := c.Get("k"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set("k", "tree text", time.Hour)
	got, ok := c.Get("k")
	if !ok || got != "tree text" {
		t.Errorf("Get = (%q, %v), want hit", got, ok)
	}
}

func TestCache_ExpiryIsMiss(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v", time.Hour)

	now = now.Add(59 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry should still be live before TTL")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry must be a miss, not a stale hit")
	}
}

func TestCache_LastWriterWins(t *testing.T) {
	c := NewCache()
	c.Set("k", "first", time.Hour)
	c.Set("k", "second", time.Hour)

	got, _ := c.Get("k")
	if got != "second" {
		t.Errorf("Get = %q, want the last written value", got)
	}
}

func TestCache_KeysAreIndependent(t *testing.T) {
	c := NewCache()
	c.Set("structure:p1:path::depth:4", "shallow", time.Hour)
	c.Set("structure:p1:path:src:depth:4", "subtree", time.Hour)

	if got, _ := c.Get("structure:p1:path::depth:4"); got != "shallow" {
		t.Errorf("root key = %q", got)
	}
	if got, _ := c.Get("structure:p1:path:src:depth:4"); got != "subtree" {
		t.Errorf("subtree key = %q", got)
	}
}

// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graphstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kraklabs/repolens/internal/config"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

// New creates a graph store from config. Supported types are "memory" and
// "s3".
func New(ctx context.Context, cfg config.GraphStoreConfig, logger *slog.Logger) (orchestrator.GraphStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3_bucket required for s3 graph store")
		}
		return NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, logger)
	default:
		return nil, fmt.Errorf("unknown graph store type: %s", cfg.Type)
	}
}

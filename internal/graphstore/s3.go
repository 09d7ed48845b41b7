// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the store uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3 duplicates graphs by server-side object copy inside one bucket.
// Graph objects live under <prefix>/<project-id>/.
type S3 struct {
	client s3API
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3 creates an S3-backed graph store using the default AWS credential
// chain.
func NewS3(ctx context.Context, bucket, prefix, region string, logger *slog.Logger) (*S3, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}, nil
}

func (s *S3) projectPrefix(projectID string) string {
	if s.prefix == "" {
		return projectID + "/"
	}
	return s.prefix + "/" + projectID + "/"
}

// DuplicateGraph copies every object under the source project's prefix to
// the target project's prefix. Copies are server-side; object data never
// transits this process. A source with no objects is an error.
func (s *S3) DuplicateGraph(ctx context.Context, sourceProjectID, targetProjectID string) error {
	srcPrefix := s.projectPrefix(sourceProjectID)
	dstPrefix := s.projectPrefix(targetProjectID)

	copied := 0
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &srcPrefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return fmt.Errorf("listing graph objects of %s: %w", sourceProjectID, err)
		}

		for _, obj := range out.Contents {
			key := *obj.Key
			target := dstPrefix + strings.TrimPrefix(key, srcPrefix)
			source := s.bucket + "/" + key
			if _, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
				Bucket:     &s.bucket,
				CopySource: &source,
				Key:        &target,
			}); err != nil {
				return fmt.Errorf("copying graph object %s: %w", key, err)
			}
			copied++
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}

	if copied == 0 {
		return fmt.Errorf("project %s has no stored graph", sourceProjectID)
	}
	s.logger.Info("graphstore.duplicate.complete",
		"source_id", sourceProjectID,
		"target_id", targetProjectID,
		"objects", copied,
	)
	return nil
}

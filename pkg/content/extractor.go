// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package content fetches single files from a repository and extracts
// decoded text, optionally narrowed to a line range.
package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/kraklabs/repolens/internal/errors"
	"github.com/kraklabs/repolens/pkg/remote"
)

// confidenceThreshold is the minimum chardet confidence (0..100) required
// to trust a detected charset.
const confidenceThreshold = 50

// contextMargin is how many lines before the requested start are included,
// so a preceding decorator or signature line survives extraction.
const contextMargin = 2

// FileSource is the slice of the remote layer the extractor needs.
// *remote.Resolver satisfies it.
type FileSource interface {
	Contents(ctx context.Context, repoName, path, ref string) ([]remote.Entry, error)
}

// Extractor decodes repository files into text.
type Extractor struct {
	source FileSource
	logger *slog.Logger

	// detect is replaceable in tests.
	detect func([]byte) (*chardet.Result, error)
}

// NewExtractor creates a content extractor.
func NewExtractor(source FileSource, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		source: source,
		logger: logger,
		detect: chardet.NewTextDetector().DetectBest,
	}
}

// normalizePath strips a synthetic leading identifier segment. Callers may
// annotate paths as "<project-id>/real/path"; the marker for the synthetic
// segment is a hyphen, which real top-level repository directories in
// practice do not start with here.
func normalizePath(p string) string {
	first, rest, found := strings.Cut(p, "/")
	if found && strings.Contains(first, "-") {
		return rest
	}
	return p
}

// Extract fetches filePath at ref (branch or commit, "" for the default
// branch) and returns its decoded text. Line coordinates are zero-based;
// when startLine and endLine are both zero the whole file is returned,
// otherwise the half-open range [startLine, endLine) widened backward by a
// small context margin. A zero endLine with a non-zero startLine selects
// no lines.
func (e *Extractor) Extract(ctx context.Context, repoName, filePath string, startLine, endLine int, ref string) (string, error) {
	filePath = normalizePath(filePath)
	e.logger.Info("content.extract.start",
		"repo", repoName,
		"path", filePath,
		"start", startLine,
		"end", endLine,
	)

	entries, err := e.source.Contents(ctx, repoName, filePath, ref)
	if err != nil {
		if remote.IsNotFound(err) {
			return "", errors.NewPathNotFound(filePath)
		}
		return "", err
	}
	if len(entries) != 1 || entries[0].Type != "file" {
		return "", errors.NewDirectoryNotFile(filePath)
	}

	raw, err := decodeEntry(entries[0])
	if err != nil {
		return "", errors.NewContentProcessingFailed(filePath, err)
	}

	text, err := e.decodeCharset(raw)
	if err != nil {
		return "", errors.NewEncodingUndetermined(filePath)
	}

	if startLine == 0 && endLine == 0 {
		return text, nil
	}
	sliced, err := sliceLines(text, startLine, endLine)
	if err != nil {
		return "", errors.NewContentProcessingFailed(filePath, err)
	}
	return sliced, nil
}

// decodeEntry unwraps the transport encoding of a contents response.
func decodeEntry(e remote.Entry) ([]byte, error) {
	switch e.Encoding {
	case "base64":
		return base64.StdEncoding.DecodeString(strings.ReplaceAll(e.Content, "\n", ""))
	case "", "none":
		return []byte(e.Content), nil
	default:
		return nil, fmt.Errorf("unsupported transport encoding %q", e.Encoding)
	}
}

// decodeCharset converts raw bytes to UTF-8 text. Valid UTF-8 passes
// through unchanged; anything else goes through statistical detection, and
// detection below the confidence threshold is an error, not a best-effort
// decode.
func (e *Extractor) decodeCharset(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	best, err := e.detect(raw)
	if err != nil {
		return "", fmt.Errorf("detecting encoding: %w", err)
	}
	if best.Confidence < confidenceThreshold {
		return "", fmt.Errorf("encoding %s at confidence %d below threshold", best.Charset, best.Confidence)
	}

	enc, err := ianaindex.IANA.Encoding(best.Charset)
	if err != nil || enc == nil {
		return "", fmt.Errorf("no decoder for charset %s", best.Charset)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", best.Charset, err)
	}
	return string(decoded), nil
}

// sliceLines selects [max(start-contextMargin, 0), end) over the decoded
// text's lines. An end at or before the margin-widened start selects
// nothing, including end 0 with a non-zero start.
func sliceLines(text string, startLine, endLine int) (string, error) {
	if startLine < 0 || endLine < 0 || (endLine != 0 && endLine < startLine) {
		return "", fmt.Errorf("invalid line range [%d, %d)", startLine, endLine)
	}

	lines := strings.Split(text, "\n")
	start := startLine - contextMargin
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	end := endLine
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		start = end
	}
	return strings.Join(lines[start:end], "\n"), nil
}

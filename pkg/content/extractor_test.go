// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/saintfish/chardet"

	"github.com/kraklabs/repolens/internal/errors"
	"github.com/kraklabs/repolens/pkg/remote"
)

type fakeFiles struct {
	files map[string]string

	// lastPath records the path actually requested upstream.
	lastPath string
}

func (f *fakeFiles) Contents(ctx context.Context, repoName, p, ref string) ([]remote.Entry, error) {
	f.lastPath = p
	text, ok := f.files[p]
	if !ok {
		return nil, &remote.StatusError{StatusCode: http.StatusNotFound, URL: p}
	}
	return []remote.Entry{{
		Type:     "file",
		Name:     p,
		Path:     p,
		Content:  base64.StdEncoding.EncodeToString([]byte(text)),
		Encoding: "base64",
	}}, nil
}

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line%02d", i)
	}
	return strings.Join(lines, "\n")
}

func TestExtract_FullFile(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"main.go": "package main\n\nfunc main() {}\n"}}
	e := NewExtractor(src, nil)

	got, err := e.Extract(context.Background(), "acme/widgets", "main.go", 0, 0, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != src.files["main.go"] {
		t.Errorf("full-file extraction altered the text:\n%q", got)
	}
}

func TestExtract_LineRangeWithMargin(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"big.py": numberedLines(30)}}
	e := NewExtractor(src, nil)

	got, err := e.Extract(context.Background(), "acme/widgets", "big.py", 10, 20, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// [10, 20) widens to [8, 20): lines 8 through 19.
	want := strings.Join(strings.Split(numberedLines(30), "\n")[8:20], "\n")
	if got != want {
		t.Errorf("range extraction mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestExtract_MarginClampsAtZero(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"big.py": numberedLines(10)}}
	e := NewExtractor(src, nil)

	got, err := e.Extract(context.Background(), "acme/widgets", "big.py", 1, 3, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if want := "line00\nline01\nline02"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtract_ZeroEndSelectsNothing(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"big.py": numberedLines(10)}}
	e := NewExtractor(src, nil)

	// [max(5-2,0), 0) is empty; only the 0,0 pair means the whole file.
	got, err := e.Extract(context.Background(), "acme/widgets", "big.py", 5, 0, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty selection", got)
	}
}

func TestExtract_StripsSyntheticPrefix(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"src/main.go": "package main\n"}}
	e := NewExtractor(src, nil)

	_, err := e.Extract(context.Background(), "acme/widgets", "0198f1a2-demo/src/main.go", 0, 0, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if src.lastPath != "src/main.go" {
		t.Errorf("upstream path = %q, want synthetic prefix stripped", src.lastPath)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	e := NewExtractor(&fakeFiles{files: map[string]string{}}, nil)

	_, err := e.Extract(context.Background(), "acme/widgets", "nope.go", 0, 0, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.AsService(err).Kind != errors.KindPathNotFound {
		t.Errorf("kind = %v, want KindPathNotFound", errors.AsService(err).Kind)
	}
}

func TestExtract_DirectoryRejected(t *testing.T) {
	src := &dirFiles{}
	e := NewExtractor(src, nil)

	_, err := e.Extract(context.Background(), "acme/widgets", "src", 0, 0, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.AsService(err).Kind != errors.KindDirectoryNotFile {
		t.Errorf("kind = %v, want KindDirectoryNotFile", errors.AsService(err).Kind)
	}
}

// dirFiles answers every path with a directory listing.
type dirFiles struct{}

func (dirFiles) Contents(ctx context.Context, repoName, p, ref string) ([]remote.Entry, error) {
	return []remote.Entry{
		{Type: "file", Name: "a.go", Path: p + "/a.go"},
		{Type: "file", Name: "b.go", Path: p + "/b.go"},
	}, nil
}

func TestExtract_LowConfidenceEncoding(t *testing.T) {
	src := &fakeFiles{files: map[string]string{"blob.bin": "\x80\x81\x82"}}
	e := NewExtractor(src, nil)
	e.detect = func([]byte) (*chardet.Result, error) {
		return &chardet.Result{Charset: "windows-1252", Confidence: 12}, nil
	}

	_, err := e.Extract(context.Background(), "acme/widgets", "blob.bin", 0, 0, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.AsService(err).Kind != errors.KindEncodingUndetermined {
		t.Errorf("kind = %v, want KindEncodingUndetermined", errors.AsService(err).Kind)
	}
}

func TestExtract_NonUTF8Charset(t *testing.T) {
	// "café" in ISO-8859-1: é is a single 0xE9 byte.
	src := &fakeFiles{files: map[string]string{"latin.txt": "caf\xe9"}}
	e := NewExtractor(src, nil)
	e.detect = func([]byte) (*chardet.Result, error) {
		return &chardet.Result{Charset: "ISO-8859-1", Confidence: 80}, nil
	}

	got, err := e.Extract(context.Background(), "acme/widgets", "latin.txt", 0, 0, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q, want %q", got, "café")
	}
}

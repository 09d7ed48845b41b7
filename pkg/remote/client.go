// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package remote

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// apiVersion is sent on every request per GitHub's versioning scheme.
const apiVersion = "2022-11-28"

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github api %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// Client is a minimal GitHub REST client bound to one bearer token.
// It implements GitHost for both tiers; only how the token was obtained
// differs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client using a fixed bearer token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: u, Body: truncateBody(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}

// GetRepo implements GitHost.
func (c *Client) GetRepo(ctx context.Context, repoName string) (*RepoInfo, error) {
	var info RepoInfo
	if err := c.get(ctx, "/repos/"+repoName, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetContents implements GitHost. The contents endpoint returns a JSON array
// for directories and a single object for files; both shapes are normalized
// to a slice.
func (c *Client) GetContents(ctx context.Context, repoName, path, ref string) ([]Entry, error) {
	p := "/repos/" + repoName + "/contents/" + strings.TrimPrefix(path, "/")
	if ref != "" {
		p += "?ref=" + url.QueryEscape(ref)
	}

	var raw json.RawMessage
	if err := c.get(ctx, p, &raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var entries []Entry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("parse directory listing: %w", err)
		}
		return entries, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("parse file entry: %w", err)
	}
	return []Entry{entry}, nil
}

// GetBranches implements GitHost.
func (c *Client) GetBranches(ctx context.Context, repoName string) ([]Branch, error) {
	var branches []Branch
	if err := c.get(ctx, "/repos/"+repoName+"/branches?per_page=100", &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

// AppCredentials identifies a GitHub App for the installation tier.
type AppCredentials struct {
	AppID      int64
	PrivateKey *rsa.PrivateKey
}

// ParseAppCredentials parses a PEM-encoded RSA key into credentials.
func ParseAppCredentials(appID int64, pemBytes []byte) (*AppCredentials, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse app private key: %w", err)
	}
	return &AppCredentials{AppID: appID, PrivateKey: key}, nil
}

// appJWT builds the short-lived signed identity assertion of the app.
// GitHub caps validity at ten minutes; the issued-at skew follows their
// documented recommendation.
func (a *AppCredentials) appJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", a.AppID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(a.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}

// ExchangeInstallationToken performs the installation-tier credential
// exchange for a repository: locate the installation id for the repo, then
// exchange the app assertion for a short-lived access token scoped to it.
func ExchangeInstallationToken(ctx context.Context, baseURL string, creds *AppCredentials, repoName string) (string, error) {
	if creds == nil || creds.PrivateKey == nil {
		return "", fmt.Errorf("no app credentials configured")
	}

	assertion, err := creds.appJWT(time.Now())
	if err != nil {
		return "", err
	}

	jwtClient := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      assertion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	var installation struct {
		ID int64 `json:"id"`
	}
	if err := jwtClient.get(ctx, "/repos/"+repoName+"/installation", &installation); err != nil {
		return "", fmt.Errorf("locate installation for %s: %w", repoName, err)
	}

	token, err := jwtClient.createInstallationToken(ctx, installation.ID)
	if err != nil {
		return "", fmt.Errorf("exchange installation token: %w", err)
	}
	return token, nil
}

func (c *Client) createInstallationToken(ctx context.Context, installationID int64) (string, error) {
	u := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: u, Body: truncateBody(body)}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}
	return out.Token, nil
}

// Package analyzer is the HTTP client for the external statement analyzer
// service: the one collaborator that parses PDFs, categorizes merchants and
// precomputes server-side aggregates. Everything else in this codebase
// treats its payloads as opaque input.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// fileField is the multipart field name the service expects for each
// uploaded statement.
const fileField = "files"

// maxResponseBytes caps how much of an analyze response is read. Large
// statement sets stay well under this; anything bigger is a misbehaving
// upstream.
const maxResponseBytes = 32 << 20

// Client talks to the analyzer service. Safe for concurrent use.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Analyze uploads the statement files and returns the parsed transactions
// plus the server-side summary. Failures map onto the dashboard's error
// taxonomy: *UpstreamError when the service answered with a detail/error
// string, *NetworkError when it could not be reached at all.
func (c *Client) Analyze(ctx context.Context, files []File) (*Result, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to analyze")
	}

	body, contentType, err := multipartBody(files)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "analyze", Err: err}
	}
	defer resp.Body.Close()

	var payload analyzeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode analyze response: %w", err)
	}
	if msg := upstreamMessage(payload, resp.StatusCode); msg != "" {
		return nil, &UpstreamError{Detail: msg}
	}

	return &Result{Transactions: payload.Transactions, Summary: payload.Summary}, nil
}

// Ping reports whether the service is reachable. Any HTTP response counts;
// only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return &NetworkError{Op: "ping", Err: err}
	}
	resp.Body.Close()
	return nil
}

// upstreamMessage extracts the service's error string, if any. Absence of
// both fields on a 2xx response implies success.
func upstreamMessage(payload analyzeResponse, status int) string {
	if payload.Detail != "" {
		return payload.Detail
	}
	if payload.Error != "" {
		return payload.Error
	}
	if status < 200 || status > 299 {
		return fmt.Sprintf("analyzer returned HTTP %d", status)
	}
	return ""
}

// multipartBody encodes the files as a multipart form, one part per file.
// The bytes go out exactly as uploaded so server-side totals match what the
// dashboard displayed.
func multipartBody(files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(fileField, f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create part for %s: %w", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("write part for %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize upload body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for common
// query parsing, upload extraction, and input sanitization patterns.

package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"carddash/internal/analyzer"
	"carddash/internal/core"
)

// FilterParams holds parsed view filter values from query parameters.
type FilterParams struct {
	Category string
	Query    string
}

// ParseFilterParams extracts the category filter and search query from URL
// query values. A missing category means "All".
func ParseFilterParams(query url.Values) FilterParams {
	params := FilterParams{
		Category: sanitizeInput(query.Get("category")),
		Query:    sanitizeInput(query.Get("q")),
	}
	if params.Category == "" {
		params.Category = core.CategoryAll
	}
	return params
}

// ParseExportFormat extracts and validates the export format parameter.
func ParseExportFormat(query url.Values) (string, error) {
	format := strings.ToLower(sanitizeInput(query.Get("format")))
	if format == "" {
		format = analyzer.FormatCSV
	}
	if format != analyzer.FormatCSV && format != analyzer.FormatXLSX {
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	return format, nil
}

// ParseUploadedFiles reads every file part of a multipart upload into
// memory. The caller is expected to have wrapped the body with
// http.MaxBytesReader already; a nil slice with no error means the form
// carried no files.
func ParseUploadedFiles(r *http.Request, maxMemory int64) ([]analyzer.File, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}
	if r.MultipartForm == nil {
		return nil, nil
	}

	// The upload form posts every statement under the "files" field; the
	// header slice preserves the order the user picked them in. Parts
	// under any other field name are ignored rather than guessed at,
	// since exports must re-send the analyzed files in the same order.
	headers := r.MultipartForm.File["files"]

	var files []analyzer.File
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}
		name := sanitizeInput(header.Filename)
		if name == "" {
			name = "statement.pdf"
		}
		files = append(files, analyzer.File{Name: name, Data: data})
	}
	return files, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// RequireGET is a convenience function for GET-only handlers.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet)
}

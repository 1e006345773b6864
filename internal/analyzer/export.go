package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Export formats the service can produce. Encoding is entirely upstream's
// concern; the dashboard only proxies the bytes through.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Export re-submits the identical file set used for analysis and streams
// back the service's encoded export. The caller must close the reader.
// Returns the body, its Content-Type, and an error from the same taxonomy
// as Analyze.
func (c *Client) Export(ctx context.Context, files []File, format string) (io.ReadCloser, string, error) {
	if format != FormatCSV && format != FormatXLSX {
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
	if len(files) == 0 {
		return nil, "", fmt.Errorf("no files to export")
	}

	body, contentType, err := multipartBody(files)
	if err != nil {
		return nil, "", fmt.Errorf("build upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/export/"+format, body)
	if err != nil {
		return nil, "", fmt.Errorf("build export request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", &NetworkError{Op: "export", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var payload analyzeResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			if msg := upstreamMessage(payload, resp.StatusCode); msg != "" {
				return nil, "", &UpstreamError{Detail: msg}
			}
		}
		return nil, "", &UpstreamError{Detail: fmt.Sprintf("analyzer returned HTTP %d", resp.StatusCode)}
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

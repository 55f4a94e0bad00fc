// Package remote implements the blob storage adapters behind the ta.Remote
// interface: a Google-Drive-style file backend, a GitHub-gist backend, an S3
// backend, and an in-memory backend for tests.
//
// Adapters are the error-normalization boundary: every transport failure,
// non-2xx status, or malformed provider response is converted into a
// ta.RemoteUnavailableError here, so no provider-specific error shape leaks
// into orchestration logic.
package remote

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"ta-go/internal/ta"
)

// defaultTimeout bounds every provider HTTP request.
const defaultTimeout = 30 * time.Second

// newHTTPClient returns the client adapters share.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// unavailable wraps err as a RemoteUnavailableError for the provider.
func unavailable(provider ta.Provider, err error) error {
	return &ta.RemoteUnavailableError{Provider: provider, Err: err}
}

// checkStatus drains and reports a non-2xx response as unavailable.
// The response body is already consumed on the error path.
func checkStatus(provider ta.Provider, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return unavailable(provider, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
}

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ta-go/internal/ta"
)

// gistDefaultBaseURL is the public GitHub API endpoint.
const gistDefaultBaseURL = "https://api.github.com"

// GistDescription is the fixed description used to locate the sync gist
// when no explicit gist id is configured.
const GistDescription = "Task Assistant Sync Data"

// GistRemote stores the snapshot blob as a single file inside one secret
// gist. The gist is found by its description, falling back to an explicitly
// configured id. GitHub truncates large file content in gist responses; the
// adapter re-fetches via raw_url when the truncated flag is set.
type GistRemote struct {
	baseURL string
	gistID  string // optional cached id, used before the description query
	client  *http.Client
}

var _ ta.Remote = (*GistRemote)(nil)

// NewGistRemote creates a GistRemote. baseURL empty means api.github.com;
// gistID is an optional explicit gist to use instead of searching.
func NewGistRemote(baseURL, gistID string) *GistRemote {
	if baseURL == "" {
		baseURL = gistDefaultBaseURL
	}
	return &GistRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		gistID:  gistID,
		client:  newHTTPClient(),
	}
}

type gistFile struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gist struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Files       map[string]gistFile `json:"files"`
}

// Locate finds the sync gist: by configured id first, then by scanning the
// account's gists for the fixed description and blob filename.
func (g *GistRemote) Locate(ctx context.Context, token string) (*ta.BlobHandle, error) {
	if g.gistID != "" {
		found, err := g.fetch(ctx, token, g.gistID)
		if err != nil {
			return nil, err
		}
		if found != nil {
			return gistHandle(found), nil
		}
		// Configured id no longer exists; fall through to the search.
	}

	req, err := g.newRequest(ctx, token, http.MethodGet, "/gists?per_page=100", nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, unavailable(ta.ProviderGist, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderGist, resp); err != nil {
		return nil, err
	}

	var gists []gist
	if err := json.NewDecoder(resp.Body).Decode(&gists); err != nil {
		return nil, unavailable(ta.ProviderGist, fmt.Errorf("decoding gist list: %w", err))
	}

	for i := range gists {
		if gists[i].Description != GistDescription {
			continue
		}
		if _, ok := gists[i].Files[ta.BlobName]; ok {
			return gistHandle(&gists[i]), nil
		}
	}
	return nil, nil
}

// Read fetches the blob content, following raw_url when the list response
// was truncated.
func (g *GistRemote) Read(ctx context.Context, token string, handle *ta.BlobHandle) (string, error) {
	found, err := g.fetch(ctx, token, handle.ID)
	if err != nil {
		return "", err
	}
	if found == nil {
		return "", unavailable(ta.ProviderGist, fmt.Errorf("gist %s disappeared", handle.ID))
	}

	file, ok := found.Files[ta.BlobName]
	if !ok {
		return "", unavailable(ta.ProviderGist, fmt.Errorf("gist %s has no %s", handle.ID, ta.BlobName))
	}

	if !file.Truncated {
		return file.Content, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.RawURL, nil)
	if err != nil {
		return "", unavailable(ta.ProviderGist, fmt.Errorf("building raw_url request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", unavailable(ta.ProviderGist, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderGist, resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable(ta.ProviderGist, err)
	}
	return string(body), nil
}

// Write creates the gist on first upload and patches the existing one
// afterwards. A second gist is never created for the same logical blob.
func (g *GistRemote) Write(ctx context.Context, token string, content string, handle *ta.BlobHandle) (*ta.BlobHandle, error) {
	payload := map[string]any{
		"files": map[string]any{
			ta.BlobName: map[string]string{"content": content},
		},
	}

	method := http.MethodPatch
	path := ""
	if handle == nil {
		method = http.MethodPost
		path = "/gists"
		payload["description"] = GistDescription
		payload["public"] = false
	} else {
		path = "/gists/" + handle.ID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, unavailable(ta.ProviderGist, err)
	}

	req, err := g.newRequest(ctx, token, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, unavailable(ta.ProviderGist, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderGist, resp); err != nil {
		return nil, err
	}

	var updated gist
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, unavailable(ta.ProviderGist, fmt.Errorf("decoding gist response: %w", err))
	}
	return gistHandle(&updated), nil
}

// fetch returns a gist by id, or nil when it does not exist.
func (g *GistRemote) fetch(ctx context.Context, token, id string) (*gist, error) {
	req, err := g.newRequest(ctx, token, http.MethodGet, "/gists/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, unavailable(ta.ProviderGist, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if err := checkStatus(ta.ProviderGist, resp); err != nil {
		return nil, err
	}

	var found gist
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, unavailable(ta.ProviderGist, fmt.Errorf("decoding gist: %w", err))
	}
	return &found, nil
}

func (g *GistRemote) newRequest(ctx context.Context, token, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, unavailable(ta.ProviderGist, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

func gistHandle(found *gist) *ta.BlobHandle {
	return &ta.BlobHandle{ID: found.ID, Name: ta.BlobName, Modified: found.UpdatedAt}
}

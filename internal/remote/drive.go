package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ta-go/internal/ta"
)

// driveDefaultBaseURL is the public Google Drive API endpoint.
const driveDefaultBaseURL = "https://www.googleapis.com"

// DriveRemote stores the snapshot blob as a single file in the account's
// application data folder, located by its fixed filename. The file is
// overwritten on every upload; only one blob exists per account.
type DriveRemote struct {
	baseURL string
	client  *http.Client
}

var _ ta.Remote = (*DriveRemote)(nil)

// NewDriveRemote creates a DriveRemote. baseURL is the API origin; empty
// means the public Google endpoint (tests point it at a local server).
func NewDriveRemote(baseURL string) *DriveRemote {
	if baseURL == "" {
		baseURL = driveDefaultBaseURL
	}
	return &DriveRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(),
	}
}

// driveFile is the subset of the Drive file resource the adapter reads.
type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

// Locate queries the app data folder for the blob by filename.
func (d *DriveRemote) Locate(ctx context.Context, token string) (*ta.BlobHandle, error) {
	q := url.Values{}
	q.Set("q", fmt.Sprintf("name='%s' and trashed=false", ta.BlobName))
	q.Set("spaces", "appDataFolder")
	q.Set("fields", "files(id,name,modifiedTime)")

	var list driveFileList
	if err := d.getJSON(ctx, token, "/drive/v3/files?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return d.handle(list.Files[0])
}

// Read fetches the blob content.
func (d *DriveRemote) Read(ctx context.Context, token string, handle *ta.BlobHandle) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		d.baseURL+"/drive/v3/files/"+handle.ID+"?alt=media", nil)
	if err != nil {
		return "", unavailable(ta.ProviderDrive, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", unavailable(ta.ProviderDrive, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderDrive, resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable(ta.ProviderDrive, err)
	}
	return string(body), nil
}

// Write creates the blob on first upload (multipart create with metadata)
// and overwrites it in place afterwards (media update). A second blob is
// never created for the same account.
func (d *DriveRemote) Write(ctx context.Context, token string, content string, handle *ta.BlobHandle) (*ta.BlobHandle, error) {
	if handle == nil {
		return d.create(ctx, token, content)
	}
	return d.update(ctx, token, content, handle)
}

func (d *DriveRemote) create(ctx context.Context, token, content string) (*ta.BlobHandle, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaPart, err := mw.CreatePart(map[string][]string{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	meta := map[string]any{"name": ta.BlobName, "parents": []string{"appDataFolder"}}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}

	mediaPart, err := mw.CreatePart(map[string][]string{"Content-Type": {"application/json"}})
	if err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	if _, err := io.WriteString(mediaPart, content); err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	if err := mw.Close(); err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/upload/drive/v3/files?uploadType=multipart&fields=id,name,modifiedTime", &buf)
	if err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	return d.doFile(req)
}

func (d *DriveRemote) update(ctx context.Context, token, content string, handle *ta.BlobHandle) (*ta.BlobHandle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		d.baseURL+"/upload/drive/v3/files/"+handle.ID+"?uploadType=media&fields=id,name,modifiedTime",
		strings.NewReader(content))
	if err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return d.doFile(req)
}

// doFile executes a request whose response is a Drive file resource.
func (d *DriveRemote) doFile(req *http.Request) (*ta.BlobHandle, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, unavailable(ta.ProviderDrive, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderDrive, resp); err != nil {
		return nil, err
	}

	var f driveFile
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, unavailable(ta.ProviderDrive, fmt.Errorf("decoding file resource: %w", err))
	}
	return d.handle(f)
}

func (d *DriveRemote) getJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return unavailable(ta.ProviderDrive, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return unavailable(ta.ProviderDrive, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(ta.ProviderDrive, resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable(ta.ProviderDrive, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

func (d *DriveRemote) handle(f driveFile) (*ta.BlobHandle, error) {
	modified, err := time.Parse(time.RFC3339, f.ModifiedTime)
	if err != nil && f.ModifiedTime != "" {
		return nil, unavailable(ta.ProviderDrive, fmt.Errorf("parsing modifiedTime %q: %w", f.ModifiedTime, err))
	}
	return &ta.BlobHandle{ID: f.ID, Name: f.Name, Modified: modified}, nil
}

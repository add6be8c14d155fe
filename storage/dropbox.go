package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/logger"
)

// DropboxStore implements FileStore over the Dropbox HTTP API. RPC calls
// go to the api host, file content moves through the content host.
type DropboxStore struct {
	apiURL     string
	contentURL string
	httpClient *http.Client
	tokens     *tokenSource
}

// NewDropboxStore builds the Dropbox driver. The KV backs the access-token
// cache.
func NewDropboxStore(cfg *config.Config, kv cache.KV) *DropboxStore {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &DropboxStore{
		apiURL:     strings.TrimRight(cfg.DropboxAPIURL, "/"),
		contentURL: strings.TrimRight(cfg.DropboxContentURL, "/"),
		httpClient: httpClient,
		tokens: newTokenSource(kv, httpClient, cfg.DropboxTokenURL,
			cfg.DropboxAppKey, cfg.DropboxAppSecret, cfg.DropboxRefreshToken, cfg.DropboxAccessToken),
	}
}

type dropboxEntry struct {
	Tag            string    `json:".tag"`
	Name           string    `json:"name"`
	PathDisplay    string    `json:"path_display"`
	Size           int64     `json:"size"`
	ServerModified time.Time `json:"server_modified"`
}

type listFolderResult struct {
	Entries []dropboxEntry `json:"entries"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

// rpc performs a JSON-in JSON-out call against the api host.
func (d *DropboxStore) rpc(ctx context.Context, endpoint string, args, result interface{}) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal args for %s: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(endpoint, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response from %s: %w", endpoint, err)
		}
	}
	return nil
}

// apiError maps a non-2xx Dropbox response to an error, surfacing
// not-found conditions as ErrNotFound.
func apiError(endpoint string, status int, body []byte) error {
	var parsed struct {
		ErrorSummary string `json:"error_summary"`
	}
	_ = json.Unmarshal(body, &parsed)
	if strings.Contains(parsed.ErrorSummary, "not_found") {
		return fmt.Errorf("%s: %s: %w", endpoint, parsed.ErrorSummary, ErrNotFound)
	}
	if parsed.ErrorSummary != "" {
		return fmt.Errorf("%s returned status %d: %s", endpoint, status, parsed.ErrorSummary)
	}
	return fmt.Errorf("%s returned status %d: %s", endpoint, status, body)
}

// Download fetches the file content at path.
func (d *DropboxStore) Download(ctx context.Context, path string) ([]byte, error) {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	arg, _ := json.Marshal(map[string]string{"path": path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.contentURL+"/2/files/download", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download of %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("/2/files/download", resp.StatusCode, body)
	}
	return body, nil
}

// Upload writes data to path, overwriting any existing file.
func (d *DropboxStore) Upload(ctx context.Context, path string, data []byte) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return err
	}

	arg, _ := json.Marshal(map[string]interface{}{
		"path": path,
		"mode": "overwrite",
		"mute": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.contentURL+"/2/files/upload", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload of %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read upload response for %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError("/2/files/upload", resp.StatusCode, body)
	}
	return nil
}

// Move relocates a single file.
func (d *DropboxStore) Move(ctx context.Context, fromPath, toPath string) error {
	args := map[string]string{"from_path": fromPath, "to_path": toPath}
	return d.rpc(ctx, "/2/files/move_v2", args, nil)
}

// Delete removes a single file.
func (d *DropboxStore) Delete(ctx context.Context, path string) error {
	args := map[string]string{"path": path}
	return d.rpc(ctx, "/2/files/delete_v2", args, nil)
}

// List returns every file in folder, following pagination to the end.
// A missing folder lists as empty.
func (d *DropboxStore) List(ctx context.Context, folder string) ([]FileInfo, error) {
	var files []FileInfo
	cursor := ""
	for {
		page, err := d.ListPage(ctx, folder, cursor, 0)
		if err != nil {
			return nil, err
		}
		files = append(files, page.Files...)
		if !page.HasMore {
			return files, nil
		}
		cursor = page.Cursor
	}
}

// ListPage returns one page of a folder listing. Pass an empty cursor for
// the first page.
func (d *DropboxStore) ListPage(ctx context.Context, folder, cursor string, limit int) (ListPage, error) {
	var result listFolderResult
	var err error
	if cursor == "" {
		args := map[string]interface{}{"path": folder}
		if limit > 0 {
			args["limit"] = limit
		}
		err = d.rpc(ctx, "/2/files/list_folder", args, &result)
	} else {
		err = d.rpc(ctx, "/2/files/list_folder/continue", map[string]string{"cursor": cursor}, &result)
	}
	if err != nil {
		if strings.Contains(err.Error(), "not_found") {
			logger.Debug("[Dropbox] folder absent, listing as empty", logger.String("folder", folder))
			return ListPage{}, nil
		}
		return ListPage{}, err
	}

	page := ListPage{Cursor: result.Cursor, HasMore: result.HasMore}
	for _, entry := range result.Entries {
		if entry.Tag != "file" {
			continue
		}
		page.Files = append(page.Files, FileInfo{
			Path:     entry.PathDisplay,
			Name:     entry.Name,
			Size:     entry.Size,
			Modified: entry.ServerModified,
		})
	}
	return page, nil
}

// ShareLink returns the existing shared link for path, creating one when
// none exists yet.
func (d *DropboxStore) ShareLink(ctx context.Context, path string) (string, error) {
	var listed struct {
		Links []struct {
			URL string `json:"url"`
		} `json:"links"`
	}
	err := d.rpc(ctx, "/2/sharing/list_shared_links", map[string]interface{}{
		"path":        path,
		"direct_only": true,
	}, &listed)
	if err == nil && len(listed.Links) > 0 {
		return listed.Links[0].URL, nil
	}
	if err != nil {
		logger.Debug("[Dropbox] listing shared links failed, will create",
			logger.String("path", path), logger.ErrorField(err))
	}

	var created struct {
		URL string `json:"url"`
	}
	if err := d.rpc(ctx, "/2/sharing/create_shared_link_with_settings", map[string]string{"path": path}, &created); err != nil {
		return "", err
	}
	return created.URL, nil
}

// TempLink returns a short-lived direct content link.
func (d *DropboxStore) TempLink(ctx context.Context, path string) (string, error) {
	var result struct {
		Link string `json:"link"`
	}
	if err := d.rpc(ctx, "/2/files/get_temporary_link", map[string]string{"path": path}, &result); err != nil {
		return "", err
	}
	return result.Link, nil
}

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/tgrelay/tgrelay/internal/platform"
)

// remoteFile is the Telegram getFile response payload.
type remoteFile struct {
	FileID   FileID `json:"file_id"`
	FilePath string `json:"file_path"`
	FileSize int64  `json:"file_size,omitempty"`
}

// uuidNewV4 is a package-level variable for testability.
var uuidNewV4 = uuid.NewV4

// GetFile resolves a FileID to the server-side path getFile returns, the
// handle later exchanged for raw bytes by DownloadFile.
func (c *Client) GetFile(ctx context.Context, fileID FileID) (string, error) {
	slog.Debug("telegram API getFile", "component", "telegram", "operation", "get_file", "file_id", fileID)

	params := url.Values{"file_id": {string(fileID)}}
	data, err := c.doGet(ctx, "getFile", params)
	if err != nil {
		return "", fmt.Errorf("telegram: get_file: %w", err)
	}

	var resp apiResponse[remoteFile]
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("telegram: get_file: unmarshal: %w", err)
	}
	if !resp.Ok {
		return "", fmt.Errorf("telegram: get_file: %s", resp.Description)
	}

	slog.Debug("file path resolved", "component", "telegram", "operation", "get_file", "file_path", resp.Result.FilePath)
	return resp.Result.FilePath, nil
}

// DownloadFile fetches the raw bytes of a server-side file path, from the
// separate file-serving host Telegram uses (bot<token>/ becomes
// file/bot<token>/).
func (c *Client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	slog.Debug("telegram API download file", "component", "telegram", "operation", "download_file", "file_path", filePath)

	fileURL := strings.Replace(c.baseURL, "/bot", "/file/bot", 1) + filePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: download_file: new request: %w", err)
	}

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download_file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download_file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: download_file: read body: %w", err)
	}

	slog.Debug("file downloaded", "component", "telegram", "operation", "download_file", "size", len(data))
	return data, nil
}

// DownloadToFile resolves fileID and writes its bytes to a uniquely-named
// file inside destDir, preserving the remote file's extension. The write
// is atomic: //tg-file-download is only emitted to the handler once the
// file is fully and safely in place, never a partially-written one.
func (c *Client) DownloadToFile(ctx context.Context, fileID FileID, destDir string) (string, error) {
	remotePath, err := c.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}

	data, err := c.DownloadFile(ctx, remotePath)
	if err != nil {
		return "", err
	}

	id, err := uuidNewV4()
	if err != nil {
		return "", fmt.Errorf("telegram: download_to_file: generate name: %w", err)
	}

	localPath := filepath.Join(destDir, id.String()+filepath.Ext(remotePath))
	if err := platform.ValidatePath(destDir, localPath); err != nil {
		return "", fmt.Errorf("telegram: download_to_file: %w", err)
	}
	if err := platform.AtomicWrite(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("telegram: download_to_file: %w", err)
	}

	return localPath, nil
}

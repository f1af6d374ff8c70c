package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// SendPhoto uploads a local file as a compressed photo via sendPhoto's
// multipart form, the implementation behind //send-photo.
func (c *Client) SendPhoto(ctx context.Context, chatID ChatID, path string) (MessageID, error) {
	return c.sendMediaFile(ctx, "sendPhoto", "photo", chatID, path)
}

// SendDocument uploads a local file as an uncompressed document via
// sendDocument's multipart form, the implementation behind //send-file.
func (c *Client) SendDocument(ctx context.Context, chatID ChatID, path string) (MessageID, error) {
	return c.sendMediaFile(ctx, "sendDocument", "document", chatID, path)
}

// sendMediaFile is the shared multipart-upload path for sendPhoto and
// sendDocument: both differ only in the method name and the form field the
// file is attached under.
func (c *Client) sendMediaFile(ctx context.Context, method, fieldName string, chatID ChatID, path string) (MessageID, error) {
	slog.Debug("uploading media file", "component", "telegram", "operation", method, "chat_id", chatID, "path", path)

	f, err := osOpen(path)
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: open file: %w", method, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", fmt.Sprintf("%d", chatID)); err != nil {
		return 0, fmt.Errorf("telegram: %s: write chat_id field: %w", method, err)
	}

	part, err := w.CreateFormFile(fieldName, filepath.Base(path))
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: create form file: %w", method, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return 0, fmt.Errorf("telegram: %s: copy file contents: %w", method, err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("telegram: %s: close multipart writer: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, &buf)
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: new request: %w", method, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("telegram: %s: read body: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("telegram: %s: unexpected status %d: %s", method, resp.StatusCode, string(respBody))
	}

	var apiResp apiResponse[Message]
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return 0, fmt.Errorf("telegram: %s: unmarshal: %w", method, err)
	}
	if !apiResp.Ok {
		return 0, fmt.Errorf("telegram: %s: %s", method, apiResp.Description)
	}

	return apiResp.Result.MessageID, nil
}

// osOpen is a package-level variable for testability.
var osOpen = os.Open

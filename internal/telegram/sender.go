package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tgrelay/tgrelay/internal/protocol"
)

// Sender issues the Telegram Bot API calls a SendBuffer drives: posting,
// editing, and deleting text messages, setting the chat-action indicator,
// and building the inline-keyboard markup a handler queues via
// //inline-button.
type Sender struct {
	client *Client
}

// NewSender creates a new Sender.
func NewSender(client *Client) *Sender {
	return &Sender{client: client}
}

// Send posts a new text message, optionally with an inline keyboard, and
// returns the id Telegram assigned it.
func (s *Sender) Send(ctx context.Context, chatID ChatID, text string, buttons []protocol.InlineButton) (MessageID, error) {
	slog.Debug("sending message", "component", "telegram", "operation", "send", "chat_id", chatID)

	body := sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: buildReplyMarkup(buttons),
	}

	data, err := s.client.doPost(ctx, "sendMessage", body)
	if err != nil {
		return 0, fmt.Errorf("telegram: send: %w", err)
	}

	var resp apiResponse[Message]
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("telegram: send: unmarshal: %w", err)
	}
	if !resp.Ok {
		return 0, fmt.Errorf("telegram: send: %s", resp.Description)
	}

	slog.Debug("message sent", "component", "telegram", "operation", "send", "message_id", resp.Result.MessageID)
	return resp.Result.MessageID, nil
}

// Edit replaces a previously sent message's text and inline keyboard via
// editMessageText.
func (s *Sender) Edit(ctx context.Context, chatID ChatID, messageID MessageID, text string, buttons []protocol.InlineButton) error {
	slog.Debug("editing message", "component", "telegram", "operation", "edit", "chat_id", chatID, "message_id", messageID)

	body := sendMessageRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: buildReplyMarkup(buttons),
	}

	data, err := s.client.doPost(ctx, "editMessageText", body)
	if err != nil {
		return fmt.Errorf("telegram: edit: %w", err)
	}

	var resp apiResponse[Message]
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("telegram: edit: unmarshal: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: edit: %s", resp.Description)
	}
	return nil
}

// EditReplyMarkup changes only a message's inline keyboard, leaving its
// text untouched. A nil or empty buttons slice clears the keyboard —
// //remove-inline-keyboard's implementation.
func (s *Sender) EditReplyMarkup(ctx context.Context, chatID ChatID, messageID MessageID, buttons []protocol.InlineButton) error {
	slog.Debug("editing reply markup", "component", "telegram", "operation", "edit_markup", "chat_id", chatID, "message_id", messageID)

	body := editReplyMarkupRequest{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: buildReplyMarkup(buttons),
	}

	data, err := s.client.doPost(ctx, "editMessageReplyMarkup", body)
	if err != nil {
		return fmt.Errorf("telegram: edit_markup: %w", err)
	}

	var resp apiResponse[Message]
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("telegram: edit_markup: unmarshal: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: edit_markup: %s", resp.Description)
	}
	return nil
}

// Delete removes a previously sent message.
func (s *Sender) Delete(ctx context.Context, chatID ChatID, messageID MessageID) error {
	slog.Debug("deleting message", "component", "telegram", "operation", "delete", "chat_id", chatID, "message_id", messageID)

	body := deleteMessageRequest{ChatID: chatID, MessageID: messageID}

	data, err := s.client.doPost(ctx, "deleteMessage", body)
	if err != nil {
		return fmt.Errorf("telegram: delete: %w", err)
	}

	var resp apiResponse[bool]
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("telegram: delete: unmarshal: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: delete: %s", resp.Description)
	}
	return nil
}

// SendChatAction sets the chat's typing/uploading indicator for a few
// seconds.
func (s *Sender) SendChatAction(ctx context.Context, chatID ChatID, action protocol.ChatActionKind) error {
	slog.Debug("sending chat action", "component", "telegram", "operation", "chat_action", "chat_id", chatID, "action", action)

	body := sendChatActionRequest{ChatID: chatID, Action: string(action)}

	data, err := s.client.doPost(ctx, "sendChatAction", body)
	if err != nil {
		return fmt.Errorf("telegram: chat_action: %w", err)
	}

	var resp apiResponse[bool]
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("telegram: chat_action: unmarshal: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram: chat_action: %s", resp.Description)
	}
	return nil
}

// buildReplyMarkup converts a queued button list into the wire inline
// keyboard shape, laying every button out as a single row in order. A nil
// or empty slice produces a nil markup, which Telegram and editMessageText
// both interpret as "no keyboard".
func buildReplyMarkup(buttons []protocol.InlineButton) *inlineKeyboard {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]inlineButtonJSON, 0, len(buttons))
	for _, b := range buttons {
		btn := inlineButtonJSON{Text: b.Label}
		switch b.Kind {
		case protocol.ButtonURL:
			btn.URL = b.Href
		case protocol.ButtonCallback:
			btn.CallbackData = b.Data
		}
		row = append(row, btn)
	}
	return &inlineKeyboard{InlineKeyboard: [][]inlineButtonJSON{row}}
}

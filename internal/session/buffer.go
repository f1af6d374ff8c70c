package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tgrelay/tgrelay/internal/protocol"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// sender is the narrow slice of TelegramTransport a SendBuffer needs,
// letting buffer_test.go exercise the flush logic against a fake instead
// of a real HTTP round trip.
type sender interface {
	Send(ctx context.Context, chatID telegram.ChatID, text string, buttons []protocol.InlineButton) (telegram.MessageID, error)
	Edit(ctx context.Context, chatID telegram.ChatID, messageID telegram.MessageID, text string, buttons []protocol.InlineButton) error
	EditReplyMarkup(ctx context.Context, chatID telegram.ChatID, messageID telegram.MessageID, buttons []protocol.InlineButton) error
	Delete(ctx context.Context, chatID telegram.ChatID, messageID telegram.MessageID) error
}

// SendBuffer accumulates text lines and queued inline buttons between
// //send///edit directives, and remembers the last message produced so
// //edit, //delete, and //remove-inline-keyboard have a target.
type SendBuffer struct {
	chatID telegram.ChatID
	sender sender

	lines          []string
	buttons        []protocol.InlineButton
	lastMessageID  telegram.MessageID
}

// NewSendBuffer creates an empty SendBuffer for one chat.
func NewSendBuffer(chatID telegram.ChatID, s sender) *SendBuffer {
	return &SendBuffer{chatID: chatID, sender: s}
}

// AppendText accumulates one line of message text.
func (b *SendBuffer) AppendText(line string) {
	b.lines = append(b.lines, line)
}

// AppendButton queues one inline-keyboard button for the next produced
// message.
func (b *SendBuffer) AppendButton(btn protocol.InlineButton) {
	b.buttons = append(b.buttons, btn)
}

// Pending reports whether there is buffered text or queued buttons
// waiting to be flushed.
func (b *SendBuffer) Pending() bool {
	return len(b.lines) > 0 || len(b.buttons) > 0
}

// FlushSend sends the accumulated text and queued buttons as a new
// message, clearing both afterward. Empty text is a no-op on the wire:
// buttons queued without text stay queued for the next flush.
func (b *SendBuffer) FlushSend(ctx context.Context) error {
	if len(b.lines) == 0 {
		return nil
	}
	id, err := b.sender.Send(ctx, b.chatID, b.text(), b.buttons)
	if err != nil {
		return fmt.Errorf("session: flush send: %w", err)
	}
	b.lastMessageID = id
	b.reset()
	return nil
}

// FlushEdit replaces the last produced message's text and buttons. If
// there is no last message (none was ever sent, or it was deleted),
// FlushEdit degrades to FlushSend.
func (b *SendBuffer) FlushEdit(ctx context.Context) error {
	if b.lastMessageID == 0 {
		return b.FlushSend(ctx)
	}
	text := b.text()
	if err := b.sender.Edit(ctx, b.chatID, b.lastMessageID, text, b.buttons); err != nil {
		return fmt.Errorf("session: flush edit: %w", err)
	}
	b.reset()
	return nil
}

// DeleteLast deletes the last produced message and forgets it, so a
// following //edit degrades to //send.
func (b *SendBuffer) DeleteLast(ctx context.Context) error {
	if b.lastMessageID == 0 {
		return nil
	}
	if err := b.sender.Delete(ctx, b.chatID, b.lastMessageID); err != nil {
		return fmt.Errorf("session: delete last: %w", err)
	}
	b.lastMessageID = 0
	return nil
}

// RemoveKeyboard clears the last produced message's inline keyboard
// without touching its text.
func (b *SendBuffer) RemoveKeyboard(ctx context.Context) error {
	if b.lastMessageID == 0 {
		return nil
	}
	if err := b.sender.EditReplyMarkup(ctx, b.chatID, b.lastMessageID, nil); err != nil {
		return fmt.Errorf("session: remove keyboard: %w", err)
	}
	return nil
}

// AutoFlush sends any pending buffered content as a new message, as
// FlushSend does: buttons queued without text are not sent. Called when a
// handler exits or the daemon shuts down with unflushed text still in the
// buffer.
func (b *SendBuffer) AutoFlush(ctx context.Context) error {
	if !b.Pending() {
		return nil
	}
	return b.FlushSend(ctx)
}

func (b *SendBuffer) text() string {
	return strings.Join(b.lines, "\n")
}

func (b *SendBuffer) reset() {
	b.lines = nil
	b.buttons = nil
}

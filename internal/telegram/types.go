package telegram

// ChatID identifies a Telegram chat; it is the identity of a session.
type ChatID int64

// UpdateID is a monotonic identifier assigned by Telegram to every update.
type UpdateID int64

// MessageID identifies a message Telegram has accepted, used to target
// later edit/delete calls.
type MessageID int64

// FileID is an opaque Telegram file handle, exchanged for the server-side
// file path via GetFile.
type FileID string

// Update represents a Telegram Bot API Update object. Exactly one of
// Message or CallbackQuery is set, per Telegram's contract.
type Update struct {
	UpdateID      UpdateID       `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message represents a Telegram message: plain text, an uploaded
// document, or one or more photo sizes.
type Message struct {
	MessageID MessageID    `json:"message_id"`
	From      *User        `json:"from,omitempty"`
	Chat      Chat         `json:"chat"`
	Date      int64        `json:"date"`
	Text      string       `json:"text,omitempty"`
	Document  *Document    `json:"document,omitempty"`
	Photo     []PhotoSize  `json:"photo,omitempty"`
}

// CallbackQuery is delivered when the user taps an inline-keyboard button.
type CallbackQuery struct {
	ID      string  `json:"id"`
	Data    string  `json:"data"`
	Message Message `json:"message"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID   ChatID `json:"id"`
	Type string `json:"type"`
}

// Document is a generic file upload. FileName and MimeType are supplied
// by the end user and are untrusted — InputSanitizer must clean them
// before they reach a handler process.
type Document struct {
	FileID   FileID `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// PhotoSize is one Telegram-generated resolution of an uploaded photo.
type PhotoSize struct {
	FileID FileID `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// apiResponse is the generic envelope every Telegram Bot API call returns:
// {"ok": bool, "result": ..., "description": "..."}. result is present
// iff ok is true; description is present iff ok is false.
type apiResponse[T any] struct {
	Ok          bool   `json:"ok"`
	Result      T      `json:"result"`
	Description string `json:"description,omitempty"`
}

// sendMessageRequest is the JSON body for sendMessage/editMessageText.
type sendMessageRequest struct {
	ChatID      ChatID           `json:"chat_id"`
	MessageID   MessageID        `json:"message_id,omitempty"`
	Text        string           `json:"text,omitempty"`
	ReplyMarkup *inlineKeyboard  `json:"reply_markup,omitempty"`
}

// inlineKeyboard is the JSON shape of a Telegram inline keyboard markup:
// a single row containing every queued button, in order.
type inlineKeyboard struct {
	InlineKeyboard [][]inlineButtonJSON `json:"inline_keyboard"`
}

// inlineButtonJSON is the wire form of one inline-keyboard button. Exactly
// one of URL or CallbackData is set depending on the button's kind.
type inlineButtonJSON struct {
	Text         string `json:"text"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// editReplyMarkupRequest is the JSON body for editMessageReplyMarkup: a
// markup-only edit that leaves the message text untouched. A nil
// ReplyMarkup clears the keyboard.
type editReplyMarkupRequest struct {
	ChatID      ChatID          `json:"chat_id"`
	MessageID   MessageID       `json:"message_id"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

// deleteMessageRequest is the JSON body for deleteMessage.
type deleteMessageRequest struct {
	ChatID    ChatID    `json:"chat_id"`
	MessageID MessageID `json:"message_id"`
}

// sendChatActionRequest is the JSON body for sendChatAction.
type sendChatActionRequest struct {
	ChatID ChatID `json:"chat_id"`
	Action string `json:"action"`
}

// setMyCommandsRequest is the JSON body for setMyCommands.
type setMyCommandsRequest struct {
	Commands []BotCommand `json:"commands"`
}

// BotCommand is one entry of the bot's slash-command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

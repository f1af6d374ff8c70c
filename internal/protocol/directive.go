// Package protocol implements the line-oriented handler protocol: a pure,
// I/O-free scanner that turns a handler process's stdout lines into a
// stream of Directive values.
package protocol

// Kind identifies which variant of Directive is populated.
type Kind int

const (
	// KindText is a line of plain message content, accumulated until the
	// next //send or //edit.
	KindText Kind = iota
	// KindSend flushes the accumulated text (and any queued buttons) as a
	// new message.
	KindSend
	// KindEdit replaces the last sent message's text (and markup) with the
	// accumulated text.
	KindEdit
	// KindDelete deletes the last sent message.
	KindDelete
	// KindButton queues one inline-keyboard button for the next produced
	// message.
	KindButton
	// KindRemoveKeyboard clears the reply markup on the last sent message.
	KindRemoveKeyboard
	// KindChatAction sets the chat's typing/uploading indicator.
	KindChatAction
	// KindSendPhoto sends a local file as a compressed photo.
	KindSendPhoto
	// KindSendFile sends a local file as an uncompressed document.
	KindSendFile
	// KindDownloadFile requests a Telegram file be fetched to a local path.
	KindDownloadFile
)

// ButtonKind distinguishes the two inline-button variants.
type ButtonKind int

const (
	// ButtonURL opens a webpage when tapped.
	ButtonURL ButtonKind = iota
	// ButtonCallback sends an opaque payload back to the daemon when tapped.
	ButtonCallback
)

// InlineButton is one entry of a message's inline keyboard. Kind selects
// which of Href/Data is meaningful.
type InlineButton struct {
	Kind  ButtonKind
	Href  string // set when Kind == ButtonURL
	Data  string // set when Kind == ButtonCallback
	Label string
}

// ChatActionKind enumerates the chat-action values Telegram recognizes.
// Anything outside this set is rejected by the parser.
type ChatActionKind string

const (
	ActionTyping          ChatActionKind = "typing"
	ActionUploadPhoto     ChatActionKind = "upload_photo"
	ActionRecordVideo     ChatActionKind = "record_video"
	ActionUploadVideo     ChatActionKind = "upload_video"
	ActionRecordVoice     ChatActionKind = "record_voice"
	ActionUploadVoice     ChatActionKind = "upload_voice"
	ActionUploadDocument  ChatActionKind = "upload_document"
	ActionChooseSticker   ChatActionKind = "choose_sticker"
	ActionFindLocation    ChatActionKind = "find_location"
	ActionRecordVideoNote ChatActionKind = "record_video_note"
	ActionUploadVideoNote ChatActionKind = "upload_video_note"
)

// validChatActions is the fixed set of chat-action values Telegram's Bot
// API recognizes.
var validChatActions = map[ChatActionKind]bool{
	ActionTyping:          true,
	ActionUploadPhoto:     true,
	ActionRecordVideo:     true,
	ActionUploadVideo:     true,
	ActionRecordVoice:     true,
	ActionUploadVoice:     true,
	ActionUploadDocument:  true,
	ActionChooseSticker:   true,
	ActionFindLocation:    true,
	ActionRecordVideoNote: true,
	ActionUploadVideoNote: true,
}

// IsValidChatAction reports whether kind is one of the recognized values.
func IsValidChatAction(kind string) bool {
	return validChatActions[ChatActionKind(kind)]
}

// Directive is one parsed command emitted by a handler process, or a line
// of plain text accumulating in the send buffer.
type Directive struct {
	Kind Kind

	Text       string         // KindText
	Button     InlineButton   // KindButton
	ChatAction ChatActionKind // KindChatAction
	Path       string         // KindSendPhoto, KindSendFile
	FileID     string         // KindDownloadFile
}

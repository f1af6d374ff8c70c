package dispatcher

import (
	"fmt"
	"strings"

	"github.com/tgrelay/tgrelay/internal/sanitize"
	"github.com/tgrelay/tgrelay/internal/session"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// chatIDOf extracts the chat an update belongs to. ok is false only for an update carrying neither a Message nor
// a CallbackQuery, which Telegram's contract says should never happen.
func chatIDOf(u telegram.Update) (telegram.ChatID, bool) {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID, true
	case u.CallbackQuery != nil:
		return u.CallbackQuery.Message.Chat.ID, true
	default:
		return 0, false
	}
}

// decode turns one Telegram update into the line its session should
// receive. Plain text becomes sanitised user-authored text; everything
// else becomes a "//tg-*" callback line.
func decode(u telegram.Update) session.Inbound {
	switch {
	case u.CallbackQuery != nil:
		return session.Inbound{Line: fmt.Sprintf("//tg-callback %s", u.CallbackQuery.Data)}

	case u.Message != nil && u.Message.Text != "":
		text := sanitize.CollapseLeadingSlashes(sanitize.StripNewlines(u.Message.Text))
		return session.Inbound{Line: text, PlainText: true}

	case u.Message != nil && u.Message.Document != nil:
		return session.Inbound{Line: documentLine(u.Message.Document)}

	case u.Message != nil && len(u.Message.Photo) > 0:
		return session.Inbound{Line: photoLine(u.Message.Photo)}

	default:
		return session.Inbound{Line: "//tg-unknown"}
	}
}

// documentLine renders "//tg-document --file-id <id> [--file-name
// <sanitised>] [--mime-type <type>]", dropping the optional flags when the
// corresponding field sanitises to empty.
func documentLine(d *telegram.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "//tg-document --file-id %s", d.FileID)

	if name := sanitize.CleanFileName(d.FileName); name != "" {
		fmt.Fprintf(&b, " --file-name %s", name)
	}
	if mt := sanitize.RecognizedMimeType(d.MimeType); mt != "" {
		fmt.Fprintf(&b, " --mime-type %s", mt)
	}
	return b.String()
}

// photoLine renders "//tg-photo <id> <w> <h> [...]", one triple per size,
// in the order Telegram listed the sizes.
func photoLine(sizes []telegram.PhotoSize) string {
	var b strings.Builder
	b.WriteString("//tg-photo")
	for _, s := range sizes {
		fmt.Fprintf(&b, " %s %d %d", s.FileID, s.Width, s.Height)
	}
	return b.String()
}

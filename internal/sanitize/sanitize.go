// Package sanitize cleans untrusted Telegram-supplied strings before they
// cross into the line-oriented handler protocol, where a stray newline or a
// "//"-prefixed value could otherwise be mistaken for protocol framing.
package sanitize

import "strings"

// CollapseLeadingSlashes collapses a leading run of one or more '/'
// characters down to a single '/'. Applied to user-supplied text before it
// is written to a handler's stdin, so a message that itself begins with
// "//" can never be echoed back in a way that looks like a directive.
func CollapseLeadingSlashes(s string) string {
	i := 0
	for i < len(s) && s[i] == '/' {
		i++
	}
	if i <= 1 {
		return s
	}
	return "/" + s[i:]
}

// StripNewlines removes carriage returns and line feeds, and any other C0
// control character except tab, so a single untrusted field can never
// introduce an extra protocol line.
func StripNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanFileName filters a Telegram-supplied file name down to the
// characters safe to use unescaped in a shell argument or a filesystem
// path component: letters, digits, underscore, and dot. Everything else is
// dropped, not substituted, matching the conservative original behaviour
// this was recovered from.
func CleanFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// recognizedMimeTypes is the fixed set of MIME types tgrelay passes through
// to handler processes unchanged. A full MIME grammar parser is overkill
// for a value whose only use is a callback-line argument.
var recognizedMimeTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/gif":                true,
	"image/webp":               true,
	"application/pdf":          true,
	"application/zip":          true,
	"application/json":         true,
	"text/plain":               true,
	"text/csv":                 true,
	"video/mp4":                true,
	"audio/mpeg":               true,
	"audio/ogg":                true,
	"application/octet-stream": true,
}

// RecognizedMimeType returns mimeType unchanged if it belongs to the fixed
// recognised set, otherwise "" so the caller can drop it entirely.
func RecognizedMimeType(mimeType string) string {
	if recognizedMimeTypes[mimeType] {
		return mimeType
	}
	return ""
}

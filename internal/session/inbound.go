package session

// Inbound is one update routed to a session by the dispatcher, already
// rendered into the exact line the handler protocol expects.
type Inbound struct {
	// Line is delivered to the handler verbatim: either a sanitised
	// user-authored message, or a fully formed "//tg-*" callback line.
	Line string

	// PlainText is true when Line is user-authored text rather than a
	// structured callback line. Only a plain-text first message is
	// eligible to become the handler's command-line argument instead of
	// its first stdin line.
	PlainText bool
}

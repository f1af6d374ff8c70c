package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tgrelay/tgrelay/internal/metrics"
	"github.com/tgrelay/tgrelay/internal/protocol"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// transport is the slice of TelegramTransport a SessionActor needs beyond
// the message send/edit/delete operations already covered by sender.
type transport interface {
	sender
	SendChatAction(ctx context.Context, chatID telegram.ChatID, action protocol.ChatActionKind) error
	SendPhoto(ctx context.Context, chatID telegram.ChatID, path string) (telegram.MessageID, error)
	SendDocument(ctx context.Context, chatID telegram.ChatID, path string) (telegram.MessageID, error)
	DownloadToFile(ctx context.Context, fileID telegram.FileID, destDir string) (string, error)
}

const fatalServerError = "Fatal Server Error"

// Config configures one Actor.
type Config struct {
	ChatID            telegram.ChatID
	Execute           string
	PipeFirstMessage  bool
	SendHandlerErrors bool
	DownloadDir       string
	Transport         transport
	InboundCapacity   int
	Metrics           *metrics.Metrics
}

// Actor owns one chat's handler process, send buffer, and inbound queue,
// and runs the protocol loop: child stdout is parsed into Directives that
// drive the SendBuffer and transport, and inbound Telegram events become
// stdin lines for the handler.
type Actor struct {
	chatID            telegram.ChatID
	execute           string
	pipeFirstMessage  bool
	sendHandlerErrors bool
	downloadDir       string
	transport         transport
	metrics           *metrics.Metrics

	buffer *SendBuffer
	parser *protocol.Parser

	inbound chan Inbound
	child   *Child
}

// NewActor creates an Actor. Call Run to spawn the handler and start the
// protocol loop.
func NewActor(cfg Config) *Actor {
	capacity := cfg.InboundCapacity
	if capacity <= 0 {
		capacity = 32
	}
	return &Actor{
		chatID:            cfg.ChatID,
		execute:           cfg.Execute,
		pipeFirstMessage:  cfg.PipeFirstMessage,
		sendHandlerErrors: cfg.SendHandlerErrors,
		downloadDir:       cfg.DownloadDir,
		transport:         cfg.Transport,
		metrics:           cfg.Metrics,
		buffer:            NewSendBuffer(cfg.ChatID, cfg.Transport),
		parser:            protocol.NewParser(),
		inbound:           make(chan Inbound, capacity),
	}
}

// Enqueue delivers one inbound event to the session's handler, blocking
// until there is room or ctx is cancelled.
func (a *Actor) Enqueue(ctx context.Context, in Inbound) error {
	select {
	case a.inbound <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run spawns the handler process with first as its opening event, then
// drives the protocol loop until the handler exits or ctx is cancelled.
// onExit, if non-nil, is called exactly once as Run returns, regardless of
// outcome, so the dispatcher can drop this chat's session from its map.
func (a *Actor) Run(ctx context.Context, first Inbound, onExit func()) error {
	if onExit != nil {
		defer onExit()
	}

	asArgument := !a.pipeFirstMessage && first.PlainText
	spawnCfg := SpawnConfig{
		Execute:          a.execute,
		ChatID:           a.chatID,
		PipeFirstMessage: !asArgument,
		FirstMessage:     first.Line,
	}

	child, err := Spawn(ctx, spawnCfg)
	if err != nil {
		slog.Error("session: handler spawn failed",
			"component", "session", "operation", "run", "chat_id", a.chatID, "error", err)
		a.reportFatal(context.Background())
		return fmt.Errorf("session: spawn: %w", err)
	}
	a.child = child

	if !asArgument {
		if err := a.child.Write(first.Line + "\n"); err != nil {
			slog.Warn("session: write first message failed",
				"component", "session", "operation", "run", "chat_id", a.chatID, "error", err)
		}
	}

	directives := make(chan protocol.Directive, 16)
	go a.readStdout(directives)

	for {
		select {
		case d, ok := <-directives:
			if !ok {
				waitErr := a.child.Wait()
				a.handleExit(ctx, waitErr)
				return waitErr
			}
			a.applyDirective(ctx, d)
		case in := <-a.inbound:
			if err := a.child.Write(in.Line + "\n"); err != nil {
				slog.Warn("session: write inbound line failed",
					"component", "session", "operation", "run", "chat_id", a.chatID, "error", err)
			}
		}
	}
}

// readStdout turns the handler's stdout into a Directive stream and
// closes out once the pipe reaches EOF, so the caller knows it is now
// safe to call child.Wait.
func (a *Actor) readStdout(out chan<- protocol.Directive) {
	defer close(out)
	for {
		line, err := a.child.Stdout.ReadString('\n')
		if err == nil {
			for _, d := range a.parser.Feed(strings.TrimSuffix(line, "\n")) {
				out <- d
			}
			continue
		}
		for _, d := range a.parser.Flush(line) {
			out <- d
		}
		return
	}
}

func (a *Actor) applyDirective(ctx context.Context, d protocol.Directive) {
	var err error
	switch d.Kind {
	case protocol.KindText:
		a.buffer.AppendText(d.Text)
	case protocol.KindSend:
		err = a.buffer.FlushSend(ctx)
	case protocol.KindEdit:
		err = a.buffer.FlushEdit(ctx)
	case protocol.KindDelete:
		err = a.buffer.DeleteLast(ctx)
	case protocol.KindButton:
		a.buffer.AppendButton(d.Button)
	case protocol.KindRemoveKeyboard:
		err = a.buffer.RemoveKeyboard(ctx)
	case protocol.KindChatAction:
		err = a.transport.SendChatAction(ctx, a.chatID, d.ChatAction)
	case protocol.KindSendPhoto:
		_, err = a.transport.SendPhoto(ctx, a.chatID, d.Path)
		if err != nil {
			a.killMisbehavingHandler("send-photo", d.Path, err)
			return
		}
	case protocol.KindSendFile:
		_, err = a.transport.SendDocument(ctx, a.chatID, d.Path)
		if err != nil {
			a.killMisbehavingHandler("send-file", d.Path, err)
			return
		}
	case protocol.KindDownloadFile:
		a.handleDownload(ctx, telegram.FileID(d.FileID))
		return
	}
	if err != nil {
		slog.Warn("session: directive failed",
			"component", "session", "operation", "apply_directive", "chat_id", a.chatID,
			"kind", d.Kind, "error", err)
	}
}

// killMisbehavingHandler terminates the handler process after a
// //send-photo or //send-file directive named a file that could not be
// attached. Per the handler protocol this is treated as a handler bug,
// not a transient transport error.
func (a *Actor) killMisbehavingHandler(directive, path string, cause error) {
	slog.Error("session: terminating handler for invalid attachment",
		"component", "session", "operation", "apply_directive", "chat_id", a.chatID,
		"directive", directive, "path", path, "error", cause)
	if err := a.child.Kill(); err != nil {
		slog.Warn("session: kill misbehaving handler failed",
			"component", "session", "operation", "apply_directive", "chat_id", a.chatID, "error", err)
	}
}

// handleDownload services a //download-file directive: it fetches and
// saves the file, then writes the completion line to the handler's
// stdin. Because this runs inline on the actor's single protocol-loop
// goroutine, no other inbound or directive write can land on the
// handler's stdin until the completion line has been written, satisfying
// the ordering guarantee between a download request and its response.
func (a *Actor) handleDownload(ctx context.Context, fileID telegram.FileID) {
	localPath, err := a.transport.DownloadToFile(ctx, fileID, a.downloadDir)
	if err != nil {
		slog.Warn("session: download failed",
			"component", "session", "operation", "download_file", "chat_id", a.chatID,
			"file_id", fileID, "error", err)
		a.metrics.DownloadFailed()
		return
	}
	if err := a.child.Write(fmt.Sprintf("//tg-file-download %s\n", localPath)); err != nil {
		slog.Warn("session: write download completion failed",
			"component", "session", "operation", "download_file", "chat_id", a.chatID, "error", err)
	}
}

// handleExit runs once the handler process has exited: it auto-flushes
// any trailing buffered text, then reports a crash unless the exit was
// caused by the daemon's own shutdown.
func (a *Actor) handleExit(ctx context.Context, waitErr error) {
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.buffer.AutoFlush(flushCtx); err != nil {
		slog.Warn("session: auto-flush on exit failed",
			"component", "session", "operation", "exit", "chat_id", a.chatID, "error", err)
	}

	if waitErr == nil {
		slog.Info("session: handler exited cleanly",
			"component", "session", "operation", "exit", "chat_id", a.chatID)
		return
	}
	if ctx.Err() != nil {
		slog.Info("session: handler exited during shutdown",
			"component", "session", "operation", "exit", "chat_id", a.chatID, "error", waitErr)
		return
	}

	slog.Error("session: handler crashed",
		"component", "session", "operation", "exit", "chat_id", a.chatID,
		"exit_code", a.child.ExitCode(), "error", waitErr)
	a.reportFatal(context.Background())
}

func (a *Actor) reportFatal(ctx context.Context) {
	msg := fatalServerError
	if a.sendHandlerErrors && a.child != nil {
		msg = fmt.Sprintf("%s\nexit code: %d\nstderr: %s", fatalServerError, a.child.ExitCode(), a.child.StderrTail())
	}
	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := a.transport.Send(sendCtx, a.chatID, msg, nil); err != nil {
		slog.Error("session: failed to report handler failure",
			"component", "session", "operation", "report_fatal", "chat_id", a.chatID, "error", err)
	}
}

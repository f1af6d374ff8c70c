// Package dispatcher pumps updates from the Telegram transport, routes
// each to a per-chat session (creating one on demand), and enforces the
// optional chat allow-list.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tgrelay/tgrelay/internal/metrics"
	"github.com/tgrelay/tgrelay/internal/session"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// transportAdapter combines telegram.Sender's message operations with the
// media/download operations that live on telegram.Client, so a single
// value satisfies the broader interface session.Actor needs.
type transportAdapter struct {
	*telegram.Sender
	client *telegram.Client
}

func (t *transportAdapter) SendPhoto(ctx context.Context, chatID telegram.ChatID, path string) (telegram.MessageID, error) {
	return t.client.SendPhoto(ctx, chatID, path)
}

func (t *transportAdapter) SendDocument(ctx context.Context, chatID telegram.ChatID, path string) (telegram.MessageID, error) {
	return t.client.SendDocument(ctx, chatID, path)
}

func (t *transportAdapter) DownloadToFile(ctx context.Context, fileID telegram.FileID, destDir string) (string, error) {
	return t.client.DownloadToFile(ctx, fileID, destDir)
}

// Config configures a Dispatcher.
type Config struct {
	Execute           string
	Client            *telegram.Client
	AllowList         []telegram.ChatID
	PipeFirstMessage  bool
	SendHandlerErrors bool
	DownloadDir       string
	InboundCapacity   int
	Metrics           *metrics.Metrics
}

// handle is what the dispatcher keeps per active chat.
type handle struct {
	actor     *session.Actor
	startedAt time.Time
}

// Dispatcher owns the chat→session map. It is safe for concurrent use;
// Run is the only caller of route, while Len/Sessions may be called
// concurrently by the admin surface.
type Dispatcher struct {
	cfg       Config
	transport *transportAdapter
	allowList map[telegram.ChatID]bool

	mu       sync.RWMutex
	sessions map[telegram.ChatID]*handle

	wg sync.WaitGroup
}

// New creates a Dispatcher. Call Run to start pumping updates.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		cfg: cfg,
		transport: &transportAdapter{
			Sender: telegram.NewSender(cfg.Client),
			client: cfg.Client,
		},
		sessions: make(map[telegram.ChatID]*handle),
	}
	if len(cfg.AllowList) > 0 {
		d.allowList = make(map[telegram.ChatID]bool, len(cfg.AllowList))
		for _, id := range cfg.AllowList {
			d.allowList[id] = true
		}
	}
	return d
}

// Run consumes updates from in, routing each to its chat's session, until
// in closes or ctx is cancelled. It returns once draining stops.
func (d *Dispatcher) Run(ctx context.Context, in <-chan telegram.Update) {
	for {
		select {
		case u, ok := <-in:
			if !ok {
				return
			}
			d.route(ctx, u)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) route(ctx context.Context, u telegram.Update) {
	chatID, ok := chatIDOf(u)
	if !ok {
		slog.Warn("dispatcher: update carries neither message nor callback query",
			"component", "dispatcher", "operation", "route")
		return
	}

	if !d.allowed(chatID) {
		slog.Warn("dispatcher: rejecting non-whitelisted chat",
			"component", "dispatcher", "operation", "route", "chat_id", chatID)
		d.cfg.Metrics.UpdateRejected()
		if _, err := d.transport.Send(ctx, chatID, "Unauthorized", nil); err != nil {
			slog.Error("dispatcher: failed to send unauthorized notice",
				"component", "dispatcher", "operation", "route", "chat_id", chatID, "error", err)
		}
		return
	}

	d.cfg.Metrics.UpdateRouted()
	in := decode(u)

	d.mu.RLock()
	h, exists := d.sessions[chatID]
	d.mu.RUnlock()

	if exists {
		if err := h.actor.Enqueue(ctx, in); err != nil {
			slog.Warn("dispatcher: enqueue failed",
				"component", "dispatcher", "operation", "route", "chat_id", chatID, "error", err)
		}
		return
	}

	d.spawn(ctx, chatID, in)
}

func (d *Dispatcher) allowed(chatID telegram.ChatID) bool {
	if d.allowList == nil {
		return true
	}
	return d.allowList[chatID]
}

// spawn creates a new session for chatID, with first as its opening
// event, and starts its protocol loop in its own goroutine.
func (d *Dispatcher) spawn(ctx context.Context, chatID telegram.ChatID, first session.Inbound) {
	actor := session.NewActor(session.Config{
		ChatID:            chatID,
		Execute:           d.cfg.Execute,
		PipeFirstMessage:  d.cfg.PipeFirstMessage,
		SendHandlerErrors: d.cfg.SendHandlerErrors,
		DownloadDir:       d.cfg.DownloadDir,
		Transport:         d.transport,
		InboundCapacity:   d.cfg.InboundCapacity,
		Metrics:           d.cfg.Metrics,
	})

	d.mu.Lock()
	d.sessions[chatID] = &handle{actor: actor, startedAt: time.Now()}
	d.mu.Unlock()

	slog.Info("dispatcher: session created",
		"component", "dispatcher", "operation", "spawn", "chat_id", chatID)
	d.cfg.Metrics.SessionSpawned()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		runErr := actor.Run(ctx, first, func() {
			d.mu.Lock()
			delete(d.sessions, chatID)
			d.mu.Unlock()
		})
		d.cfg.Metrics.SessionEnded(exitOutcome(ctx, runErr))
	}()
}

// Wait blocks until every spawned session's goroutine has returned — which
// only happens once its handler has exited and its shutdown sequence
// (auto-flush, force-kill survivors) has run — or until ctx's deadline
// passes first, whichever comes first.
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("dispatcher: shutdown drain deadline exceeded, abandoning remaining sessions",
			"component", "dispatcher", "operation", "wait")
	}
}

// exitOutcome classifies a session's Run error for the handler_exits_total
// metric: "clean" for a nil error, "killed" when the run ended because ctx
// was cancelled, "crash" otherwise.
func exitOutcome(ctx context.Context, err error) string {
	if err == nil {
		return "clean"
	}
	if ctx.Err() != nil {
		return "killed"
	}
	return "crash"
}

// Len reports the number of active sessions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

// SessionInfo describes one active session for the admin surface.
type SessionInfo struct {
	ChatID    telegram.ChatID
	StartedAt time.Time
}

// Sessions returns a snapshot of every active session.
func (d *Dispatcher) Sessions() []SessionInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]SessionInfo, 0, len(d.sessions))
	for chatID, h := range d.sessions {
		out = append(out, SessionInfo{ChatID: chatID, StartedAt: h.startedAt})
	}
	return out
}

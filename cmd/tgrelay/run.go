package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tgrelay/tgrelay/internal/admin"
	"github.com/tgrelay/tgrelay/internal/commandsfile"
	"github.com/tgrelay/tgrelay/internal/dispatcher"
	"github.com/tgrelay/tgrelay/internal/janitor"
	"github.com/tgrelay/tgrelay/internal/metrics"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// Replaceable for testing.
var (
	signalContext = func() (context.Context, context.CancelFunc) {
		return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	}
	osOpenFile = os.Open
)

// defaultMetrics registers the daemon's metrics on the default Prometheus
// registry once per process, so runDaemon can be called more than once
// without a duplicate-registration panic.
var defaultMetrics = sync.OnceValue(func() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
})

type runFlags struct {
	execute           string
	botID             string
	chatIDs           []int64
	commandsFile      string
	sendHandlerErrors bool
	tgAPIURL          string
	pipeFirstMessage  bool
	adminAddr         string
	janitorInterval   string
	downloadRetention time.Duration
	downloadDir       string
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon, bridging Telegram updates to a handler process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.execute == "" {
				return fmt.Errorf("run: --execute is required")
			}
			if flags.botID == "" {
				return fmt.Errorf("run: --bot-id is required")
			}
			return runDaemon(cmd.Context(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.execute, "execute", "", "Path to the handler executable (required)")
	f.StringVar(&flags.botID, "bot-id", "", "Telegram bot API token (required)")
	f.Int64SliceVar(&flags.chatIDs, "chat-id", nil, "Chat ID to allow (repeatable); unset allows all chats")
	f.StringVar(&flags.commandsFile, "commands-file", "", "Path to a bot-command menu file")
	f.BoolVar(&flags.sendHandlerErrors, "send-handler-errors", false, "Include crash detail in the fatal-error message sent to the chat")
	f.StringVar(&flags.tgAPIURL, "tg-api-url", "https://api.telegram.org", "Telegram Bot API base URL")
	f.BoolVar(&flags.pipeFirstMessage, "pipe-first-message", false, "Deliver the opening message over stdin instead of argv")
	f.StringVar(&flags.adminAddr, "admin-addr", "", "Address for the admin HTTP surface (disabled unless set)")
	f.StringVar(&flags.janitorInterval, "janitor-interval", "0 * * * *", "Cron expression for the stale-download sweep")
	f.DurationVar(&flags.downloadRetention, "download-retention", 24*time.Hour, "Age after which downloaded files are swept")
	f.StringVar(&flags.downloadDir, "download-dir", filepath.Join(os.TempDir(), "tgrelay-downloads"), "Directory downloaded files are written to; the janitor only ever sweeps files it created here")

	return cmd
}

func runDaemon(parentCtx context.Context, flags runFlags) error {
	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := mergeDone(sigCtx, parentCtx)
	defer cancel()

	if err := os.MkdirAll(flags.downloadDir, 0o755); err != nil {
		return fmt.Errorf("run: create download dir: %w", err)
	}

	client := telegram.NewClientWithBaseURL(flags.botID, flags.tgAPIURL)

	if flags.commandsFile != "" {
		if err := setCommandsFromFile(ctx, client, flags.commandsFile); err != nil {
			return err
		}
	}

	m := defaultMetrics()

	allowList := make([]telegram.ChatID, len(flags.chatIDs))
	for i, id := range flags.chatIDs {
		allowList[i] = telegram.ChatID(id)
	}

	d := dispatcher.New(dispatcher.Config{
		Execute:           flags.execute,
		Client:            client,
		AllowList:         allowList,
		PipeFirstMessage:  flags.pipeFirstMessage,
		SendHandlerErrors: flags.sendHandlerErrors,
		DownloadDir:       flags.downloadDir,
		Metrics:           m,
	})

	j := janitor.New(janitor.Config{
		Dir:       flags.downloadDir,
		Retention: flags.downloadRetention,
		Schedule:  flags.janitorInterval,
	})
	if err := j.Start(); err != nil {
		return fmt.Errorf("run: janitor: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = j.Stop(stopCtx)
	}()

	var adminServer *admin.Server
	if flags.adminAddr != "" {
		adminServer = admin.New(admin.Config{Addr: flags.adminAddr, Sessions: d})
		if err := adminServer.Start(); err != nil {
			return fmt.Errorf("run: admin server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = adminServer.Stop(stopCtx)
		}()
	}

	poller := telegram.NewPoller(client, 30)
	updates := make(chan telegram.Update, 64)
	pollErrCh := make(chan error, 1)
	go func() {
		err := poller.Run(ctx, updates)
		if err != nil {
			// A fatal transport error (e.g. a revoked bot token) means
			// there's nothing left to dispatch; stop the rest of the
			// daemon the same way a shutdown signal would.
			cancel()
		}
		pollErrCh <- err
	}()

	slog.Info("tgrelay started", "component", "cmd", "operation", "run",
		"execute", flags.execute, "admin_addr", flags.adminAddr)

	d.Run(ctx, updates)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	d.Wait(drainCtx)
	drainCancel()

	if pollErr := <-pollErrCh; pollErr != nil {
		return fmt.Errorf("run: poller: %w", pollErr)
	}

	slog.Info("tgrelay stopped", "component", "cmd", "operation", "run")
	return nil
}

// setCommandsFromFile parses path and pushes the resulting menu to
// Telegram via setMyCommands.
func setCommandsFromFile(ctx context.Context, client *telegram.Client, path string) error {
	f, err := osOpenFile(path)
	if err != nil {
		return fmt.Errorf("run: open commands file: %w", err)
	}
	defer f.Close()

	commands, err := commandsfile.Parse(f)
	if err != nil {
		return fmt.Errorf("run: parse commands file: %w", err)
	}
	if err := client.SetMyCommands(ctx, commands); err != nil {
		return fmt.Errorf("run: set commands: %w", err)
	}
	return nil
}

// mergeDone returns a context that's done when either a or b is done,
// so runDaemon respects both the OS signal context and a caller-supplied
// context (tests pass the latter to bound a run without a real signal).
func mergeDone(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	go func() {
		select {
		case <-b.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

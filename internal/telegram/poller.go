package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tgrelay/tgrelay/internal/platform"
)

// retryFn is a package-level variable wrapping platform.Retry for testability.
var retryFn = platform.Retry

// retryDelay is the delay after all retries are exhausted before starting a new cycle.
var retryDelay = 5 * time.Second

// Poller receives updates from the Telegram Bot API using long polling. It
// has no opinion about which chats are allowed to talk to the daemon —
// that decision belongs to the Dispatcher, which sees every update the
// poller receives.
type Poller struct {
	client  *Client
	timeout int
	offset  UpdateID
}

// NewPoller creates a new Poller. timeout is the long-poll wait in seconds
// passed to getUpdates.
func NewPoller(client *Client, timeout int) *Poller {
	return &Poller{
		client:  client,
		timeout: timeout,
	}
}

// Poll performs a single getUpdates call and returns the updates.
func (p *Poller) Poll(ctx context.Context) ([]Update, error) {
	params := url.Values{}
	if p.offset > 0 {
		params.Set("offset", strconv.FormatInt(int64(p.offset), 10))
	}
	params.Set("timeout", strconv.Itoa(p.timeout))
	params.Set("allowed_updates", `["message","callback_query"]`)

	// Use a longer HTTP timeout than the long-poll wait itself, so the
	// request round trip has room to complete after Telegram responds.
	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(p.timeout)*time.Second+5*time.Second)
	defer cancel()

	data, err := p.client.doGet(pollCtx, "getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("telegram: poll: %w", err)
	}

	var resp apiResponse[[]Update]
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("telegram: poll: unmarshal: %w", err)
	}

	if !resp.Ok {
		return nil, fmt.Errorf("telegram: poll: %s", resp.Description)
	}

	return resp.Result, nil
}

// Run starts the long-polling loop, pushing every received update onto out
// in order, until ctx is cancelled or a fatal transport error occurs. The
// offset advances only past updates that were actually delivered, so a
// channel send blocked on a cancelled context never loses an update
// silently.
func (p *Poller) Run(ctx context.Context, out chan<- Update) error {
	slog.Info("poller started", "component", "telegram", "operation", "poll_start")

	for {
		var updates []Update
		err := retryFn(ctx, 3, 2*time.Second, func() error {
			var pollErr error
			updates, pollErr = p.Poll(ctx)
			return pollErr
		})
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("poller stopped", "component", "telegram", "operation", "poll_stop")
				return nil
			}
			if fatal := fatalPollError(err); fatal != nil {
				slog.Error("poller stopping on fatal transport error",
					"component", "telegram", "operation", "poll", "error", fatal)
				return fatal
			}
			slog.Error("poll failed after retries", "component", "telegram", "operation", "poll", "error", err)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				slog.Info("poller stopped", "component", "telegram", "operation", "poll_stop")
				return nil
			}
			continue
		}

		for _, u := range updates {
			select {
			case out <- u:
				if u.UpdateID >= p.offset {
					p.offset = u.UpdateID + 1
				}
			case <-ctx.Done():
				slog.Info("poller stopped", "component", "telegram", "operation", "poll_stop")
				return nil
			}
		}
	}
}

// fatalPollError returns err itself when it wraps a StatusError carrying a
// persistent 4xx — a misconfiguration such as a revoked bot token, not a
// transient failure. 429 Too Many Requests is excluded: Telegram uses it
// for rate limiting, which is worth retrying rather than giving up on.
func fatalPollError(err error) error {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return nil
	}
	if statusErr.StatusCode < 400 || statusErr.StatusCode >= 500 {
		return nil
	}
	if statusErr.StatusCode == http.StatusTooManyRequests {
		return nil
	}
	return err
}

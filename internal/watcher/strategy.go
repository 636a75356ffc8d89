package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"go.klb.dev/recall/internal/clip"
)

const (
	// DefaultPollInterval is the polling cadence on platforms without
	// change notifications.
	DefaultPollInterval = 500 * time.Millisecond

	// The OS can notify before the new content is committed, so a
	// notification is followed by up to captureAttempts reads.
	captureAttempts = 5
	captureDelay    = 60 * time.Millisecond
)

var errNothingCaptured = errors.New("nothing captured")

// Strategy acquires clipboard candidates until ctx is done.
type Strategy interface {
	Name() string
	// Run calls emit for every candidate it captures. emit must not block
	// on I/O.
	Run(ctx context.Context, emit func(Candidate)) error
}

// SelectStrategy picks the notification strategy when the platform offers
// a listener and polling otherwise.
func SelectStrategy(r clip.Reader, l clip.Listener, interval time.Duration) Strategy {
	poll := &PollStrategy{Reader: r, Interval: interval}
	if l == nil {
		return poll
	}
	return &NotifyStrategy{Reader: r, Listener: l, Fallback: poll}
}

// PollStrategy captures on a fixed interval.
type PollStrategy struct {
	Reader   clip.Reader
	Interval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (p *PollStrategy) Name() string { return "poll" }

func (p *PollStrategy) Run(ctx context.Context, emit func(Candidate)) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	now := nowFunc(p.Now)

	slog.Info("clipboard polling started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c, ok := Capture(p.Reader, now); ok {
			emit(c)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// NotifyStrategy captures when the OS reports a clipboard change. If the
// listener cannot be registered, or stops while ctx is still live, it
// switches to Fallback for the rest of the run.
type NotifyStrategy struct {
	Reader   clip.Reader
	Listener clip.Listener
	Fallback Strategy
	Now      func() time.Time
}

func (n *NotifyStrategy) Name() string { return "notify" }

func (n *NotifyStrategy) Run(ctx context.Context, emit func(Candidate)) error {
	now := nowFunc(n.Now)

	listenCtx, stop := context.WithCancel(ctx)
	defer stop()

	changed := make(chan struct{}, 1)
	listenErr := make(chan error, 1)
	go func() { listenErr <- n.Listener.Listen(listenCtx, changed) }()

	// Seed with whatever is on the clipboard at startup.
	if c, ok := Capture(n.Reader, now); ok {
		emit(c)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			if c, ok := n.captureWithRetry(ctx, now); ok {
				emit(c)
			}
		case err := <-listenErr:
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("clipboard listener unavailable, falling back to polling", "err", err)
			if n.Fallback == nil {
				return err
			}
			return n.Fallback.Run(ctx, emit)
		}
	}
}

func (n *NotifyStrategy) captureWithRetry(ctx context.Context, now func() time.Time) (Candidate, bool) {
	var got Candidate
	b := retry.WithMaxRetries(captureAttempts-1, retry.NewConstant(captureDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		c, ok := Capture(n.Reader, now)
		if !ok {
			return retry.RetryableError(errNothingCaptured)
		}
		got = c
		return nil
	})
	if err != nil {
		return Candidate{}, false
	}
	return got, true
}

func nowFunc(f func() time.Time) func() time.Time {
	if f == nil {
		return time.Now
	}
	return f
}

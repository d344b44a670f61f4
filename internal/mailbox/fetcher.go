package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/checkpoint"
	"github.com/IvanDeyter/EmailBot/internal/model"
)

const (
	defaultRetryCount = 3
	defaultRetryDelay = 5 * time.Second
	firstRunWindow    = 24 * time.Hour
)

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Mailbox    string
	RetryDelay time.Duration
	// MarkSeen flags every message that decoded successfully as \Seen.
	MarkSeen bool
}

// FetchOptions tunes a single GetNewEmails call.
type FetchOptions struct {
	// UpdateCheckpoint advances the stored checkpoint after a successful
	// attempt. Diagnostic runs leave it false.
	UpdateCheckpoint bool
	// RetryCount is the number of attempts; zero means three.
	RetryCount int
	// Lookback, when set, replaces the checkpoint window with a plain
	// "last N" window and skips the exact date filter.
	Lookback time.Duration
}

// Fetcher returns the messages a sender sent since the last successful
// check. Only one Fetcher may run against a checkpoint at a time.
type Fetcher struct {
	session     Session
	checkpoints checkpoint.Store
	cfg         FetcherConfig
	logger      *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewFetcher returns a Fetcher reading through session and resuming from
// checkpoints.
func NewFetcher(session Session, checkpoints checkpoint.Store, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		session:     session,
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// Connect opens the session and selects the configured mailbox.
func (f *Fetcher) Connect(ctx context.Context) error {
	if err := f.session.Connect(ctx); err != nil {
		return err
	}
	return f.session.SelectMailbox(f.cfg.Mailbox)
}

// Close releases the session.
func (f *Fetcher) Close() {
	f.session.Close()
}

// GetNewEmails returns the decoded messages from sender that arrived after
// the checkpoint. It never returns an error: a transient failure is
// retried with a reconnect, and a terminal failure or running out of
// attempts yields an empty result after logging the cause.
func (f *Fetcher) GetNewEmails(ctx context.Context, sender string, opts FetchOptions) []model.DecodedMessage {
	attempts := opts.RetryCount
	if attempts <= 0 {
		attempts = defaultRetryCount
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		msgs, err := f.attempt(ctx, sender, opts)
		if err == nil {
			return msgs
		}
		lastErr = err

		if !IsTransient(err) {
			f.logger.Error("fetching mail failed", "attempt", attempt, "error", err)
			return nil
		}

		f.logger.Warn("transient mail error, reconnecting",
			"attempt", attempt, "of", attempts, "error", err)
		f.session.Close()
		if attempt < attempts {
			f.sleep(f.cfg.RetryDelay)
		}
	}

	f.logger.Error("giving up on mail fetch", "attempts", attempts, "error", lastErr)
	return nil
}

func (f *Fetcher) ensureConnection(ctx context.Context) error {
	if f.session.Alive() {
		return nil
	}
	f.session.Close()
	if err := f.Connect(ctx); err != nil {
		return fmt.Errorf("reconnecting: %w", err)
	}
	return nil
}

func (f *Fetcher) attempt(ctx context.Context, sender string, opts FetchOptions) ([]model.DecodedMessage, error) {
	if err := f.ensureConnection(ctx); err != nil {
		return nil, err
	}

	startedAt := f.now()

	cp, err := f.checkpoints.Load(ctx)
	if err != nil {
		f.logger.Warn("checkpoint unreadable, treating as first run", "error", err)
		cp = nil
	}

	criteria := SearchCriteria{From: sender}
	exact := false
	switch {
	case opts.Lookback > 0:
		criteria.Since = startedAt.Add(-opts.Lookback)
	case cp == nil:
		criteria.Since = startedAt.Add(-firstRunWindow)
		f.logger.Info("no checkpoint, searching the last 24 hours")
	default:
		criteria.Since = cp.LastCheckTime
		exact = true
	}

	ids, err := f.session.Search(criteria)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("search done", "sender", sender, "since", criteria.Since, "candidates", len(ids))

	if exact {
		ids, err = f.newerThan(ids, cp.LastCheckTime)
		if err != nil {
			return nil, err
		}
	}

	msgs := make([]model.DecodedMessage, 0, len(ids))
	for _, id := range ids {
		raw, err := f.session.FetchFull(id)
		if err != nil {
			if IsTransient(err) {
				return nil, err
			}
			f.logger.Error("dropping message: fetch failed", "uid", id, "error", err)
			continue
		}

		msg, err := DecodeMessage(id, raw)
		if err != nil {
			f.logger.Error("dropping message: decode failed", "uid", id, "error", err)
			continue
		}
		msgs = append(msgs, msg)

		if f.cfg.MarkSeen {
			if err := f.session.MarkSeen(id); err != nil {
				if IsTransient(err) {
					return nil, err
				}
				f.logger.Warn("marking message seen failed", "uid", id, "error", err)
			}
		}
	}

	if opts.UpdateCheckpoint {
		f.advanceCheckpoint(ctx, cp)
	}

	f.logger.Info("mail fetched", "sender", sender, "new", len(msgs))
	return msgs, nil
}

// newerThan keeps the ids whose Date header, read as local wall clock, is
// strictly after cutoff. Messages with an unreadable date are dropped.
func (f *Fetcher) newerThan(ids []uint32, cutoff time.Time) ([]uint32, error) {
	kept := ids[:0:0]
	for _, id := range ids {
		date, ok, err := f.session.FetchHeaderDate(id)
		if err != nil {
			if IsTransient(err) {
				return nil, err
			}
			f.logger.Warn("skipping message: date fetch failed", "uid", id, "error", err)
			continue
		}
		if !ok {
			f.logger.Warn("skipping message without a usable Date header", "uid", id)
			continue
		}
		if stripZone(date).After(cutoff) {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// advanceCheckpoint moves the checkpoint to now, never backward.
func (f *Fetcher) advanceCheckpoint(ctx context.Context, prev *model.Checkpoint) {
	next := f.now()
	if prev != nil && next.Before(prev.LastCheckTime) {
		next = prev.LastCheckTime
	}
	if err := f.checkpoints.Save(ctx, next); err != nil {
		f.logger.Error("saving checkpoint failed", "error", err)
	}
}


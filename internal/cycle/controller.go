// Package cycle runs the watcher loop: fetch new mail, pick out the
// maintenance notices, alert the chat, sleep, repeat.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/IvanDeyter/EmailBot/internal/extract"
	"github.com/IvanDeyter/EmailBot/internal/mailbox"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/notify"
)

// Fetcher is the mail side of a cycle.
type Fetcher interface {
	Connect(ctx context.Context) error
	GetNewEmails(ctx context.Context, sender string, opts mailbox.FetchOptions) []model.DecodedMessage
	Close()
}

// Notifier is the chat side of a cycle.
type Notifier interface {
	Send(ctx context.Context, text string, silent bool) error
	SendMaintenance(ctx context.Context, rec *model.MaintenanceRecord) error
	SendError(ctx context.Context, text string) error
	TestConnection(ctx context.Context) error
}

// DeliveryRecorder logs alerts that reached the chat. Optional.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, d model.Delivery) error
}

// Config holds the loop timing and error policy.
type Config struct {
	Sender     string
	Interval   time.Duration
	RetryCount int

	// MaxErrors consecutive critical errors trigger an alert and a
	// Cooldown sleep.
	MaxErrors int
	Cooldown  time.Duration

	TransientPause time.Duration
	CriticalPause  time.Duration
	StatsEvery     time.Duration
}

func (c *Config) setDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Minute
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = 5
	}
	if c.Cooldown <= 0 {
		c.Cooldown = 5 * time.Minute
	}
	if c.TransientPause <= 0 {
		c.TransientPause = time.Minute
	}
	if c.CriticalPause <= 0 {
		c.CriticalPause = 30 * time.Second
	}
	if c.StatsEvery <= 0 {
		c.StatsEvery = 24 * time.Hour
	}
}

// Controller owns the loop. Run and Shutdown must be called from the
// same goroutine; Stop and Stats are safe from any goroutine.
type Controller struct {
	cfg        Config
	fetcher    Fetcher
	notifier   Notifier
	deliveries DeliveryRecorder
	logger     *slog.Logger

	stopping atomic.Bool

	mu    sync.Mutex
	stats model.Stats

	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a Controller. deliveries may be nil.
func New(cfg Config, fetcher Fetcher, notifier Notifier, deliveries DeliveryRecorder, logger *slog.Logger) *Controller {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:        cfg,
		fetcher:    fetcher,
		notifier:   notifier,
		deliveries: deliveries,
		logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
	c.stats.StartedAt = c.now()
	return c
}

// Stop asks the loop to exit once the current operation or sleep is over.
func (c *Controller) Stop() {
	if c.stopping.CompareAndSwap(false, true) {
		c.logger.Info("stop requested, finishing current step")
	}
}

// Stats returns a snapshot of the run counters.
func (c *Controller) Stats() model.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) count(fn func(*model.Stats)) {
	c.mu.Lock()
	fn(&c.stats)
	c.mu.Unlock()
}

// Run checks both connections, announces itself, and loops until Stop is
// called or ctx is cancelled. It only returns an error when startup
// fails.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("testing connections")
	if err := c.fetcher.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to mailbox: %w", err)
	}
	if err := c.notifier.TestConnection(ctx); err != nil {
		return fmt.Errorf("connecting to telegram: %w", err)
	}

	c.mu.Lock()
	c.stats.StartedAt = c.now()
	c.mu.Unlock()

	if err := c.notifier.Send(ctx, notify.StartupMessage(c.cfg.Sender, c.cfg.Interval, c.now()), false); err != nil {
		c.logger.Error("sending startup notification", "error", err)
	}

	c.logger.Info("watching mailbox", "sender", c.cfg.Sender, "interval", c.cfg.Interval)

	errorCount := 0
	lastStats := c.now()

	for !c.stopping.Load() {
		if ctx.Err() != nil {
			return nil
		}

		processed, err := c.RunOnce(ctx)
		if err != nil {
			if mailbox.IsTransient(err) {
				c.logger.Warn("transient error in cycle, pausing", "error", err, "pause", c.cfg.TransientPause)
				c.pause(c.cfg.TransientPause)
				continue
			}

			errorCount++
			c.count(func(s *model.Stats) { s.Errors++ })
			c.logger.Error("critical error in cycle", "error", err, "consecutive", errorCount)

			if errorCount >= c.cfg.MaxErrors {
				c.logger.Error("too many consecutive critical errors", "count", errorCount, "cooldown", c.cfg.Cooldown)
				alert := fmt.Sprintf("Критические ошибки в работе бота. Ошибок подряд: %d", errorCount)
				if err := c.notifier.SendError(ctx, alert); err != nil {
					c.logger.Debug("error alert not delivered", "error", err)
				}
				c.pause(c.cfg.Cooldown)
				errorCount = 0
			} else {
				c.pause(c.cfg.CriticalPause)
			}
			continue
		}

		errorCount = 0
		if processed > 0 {
			c.logger.Info("cycle finished", "alerts", processed)
		}

		if now := c.now(); now.Sub(lastStats) > c.cfg.StatsEvery {
			c.sendStats(ctx, now)
			lastStats = now
		}

		c.pause(c.cfg.Interval)
	}

	c.logger.Info("watcher stopped")
	return nil
}

// pause sleeps for d unless a stop was already requested.
func (c *Controller) pause(d time.Duration) {
	if c.stopping.Load() {
		return
	}
	c.sleep(d)
}

func (c *Controller) sendStats(ctx context.Context, now time.Time) {
	if err := c.notifier.Send(ctx, notify.StatsMessage(c.Stats(), now), true); err != nil {
		c.logger.Error("sending statistics", "error", err)
		return
	}
	c.logger.Info("statistics sent")
}

// RunOnce performs one fetch, extract and notify pass and returns the
// number of alerts delivered. Delivery failures are counted, not
// returned; the error reports failures of the pass itself.
func (c *Controller) RunOnce(ctx context.Context) (processed int, err error) {
	log := c.logger.With("cycle_id", uuid.NewString())

	defer func() {
		if r := recover(); r != nil {
			log.Error("cycle panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()

	msgs := c.fetcher.GetNewEmails(ctx, c.cfg.Sender, mailbox.FetchOptions{
		UpdateCheckpoint: true,
		RetryCount:       c.cfg.RetryCount,
	})
	if len(msgs) == 0 {
		log.Debug("no new mail")
		return 0, nil
	}
	log.Info("new mail", "count", len(msgs))

	var recordErr error
	for _, msg := range msgs {
		mlog := log.With("uid", msg.ID, "subject", truncate(msg.Subject, 50))

		if !extract.IsMaintenance(msg) {
			mlog.Info("not a maintenance notice, skipping")
			continue
		}

		rec := extract.Parse(msg, c.now())
		if rec == nil {
			mlog.Warn("maintenance notice without operator or times, skipping")
			continue
		}

		if err := c.notifier.SendMaintenance(ctx, rec); err != nil {
			mlog.Error("alert not delivered", "error", err)
			c.count(func(s *model.Stats) { s.Errors++; s.EmailsProcessed++ })
			continue
		}
		processed++
		c.count(func(s *model.Stats) { s.NotificationsSent++; s.EmailsProcessed++ })
		mlog.Info("alert delivered", "operator", rec.Operator)

		if c.deliveries != nil {
			if err := c.deliveries.RecordDelivery(ctx, model.Delivery{
				Subject:   rec.OriginalSubject,
				Operator:  rec.Operator,
				WorkType:  rec.WorkType,
				StartTime: rec.StartTime,
				EndTime:   rec.EndTime,
				EmailDate: rec.EmailDate,
				SentAt:    c.now(),
			}); err != nil && recordErr == nil {
				recordErr = fmt.Errorf("recording delivery: %w", err)
			}
		}
	}

	return processed, recordErr
}

// Shutdown closes the mailbox and posts the session summary.
func (c *Controller) Shutdown(ctx context.Context) {
	c.fetcher.Close()
	if err := c.notifier.Send(ctx, notify.StopMessage(c.Stats(), c.now()), false); err != nil {
		c.logger.Error("sending stop notification", "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

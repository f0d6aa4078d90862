package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bilisum/pkg/bilisum"
)

const (
	defaultPollInterval    = 30 * time.Second
	defaultPacingDelay     = 3 * time.Second
	defaultMaxProcessedIDs = 10000
)

// MentionProcessor handles one mention and reports whether a reply went out.
type MentionProcessor interface {
	Process(ctx context.Context, mention bilisum.Mention) bool
}

// MonitorOption mutates monitor configuration.
type MonitorOption func(*Monitor)

// WithMonitorLogger injects a logger.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(monitor *Monitor) {
		if logger != nil {
			monitor.logger = logger
		}
	}
}

// WithPollInterval sets the delay between poll cycles.
func WithPollInterval(interval time.Duration) MonitorOption {
	return func(monitor *Monitor) {
		if interval > 0 {
			monitor.pollInterval = interval
		}
	}
}

// WithPacingDelay sets the fixed delay between processed mentions.
//
// The delay keeps reply throughput under the platform's abuse thresholds and
// is an explicit pipeline step, not an incidental side effect.
func WithPacingDelay(delay time.Duration) MonitorOption {
	return func(monitor *Monitor) {
		if delay >= 0 {
			monitor.pacingDelay = delay
		}
	}
}

// WithMaxProcessedIDs caps the dedup ledger size.
func WithMaxProcessedIDs(maxIDs int) MonitorOption {
	return func(monitor *Monitor) {
		if maxIDs > 0 {
			monitor.maxProcessedIDs = maxIDs
		}
	}
}

// WithMonitorClock injects a clock, used by tests to pin the watermark.
func WithMonitorClock(clock func() time.Time) MonitorOption {
	return func(monitor *Monitor) {
		if clock != nil {
			monitor.clock = clock
		}
	}
}

// Monitor polls the mention feed, filters out mentions that were already
// handled, and hands each new mention to the processor, oldest first.
//
// One monitor owns the dedup ledger and the downstream cache; the whole
// pipeline runs on the goroutine that called Run, strictly sequentially, so
// none of those structures need locking.
type Monitor struct {
	source    bilisum.EventSource
	processor MentionProcessor
	logger    *slog.Logger
	clock     func() time.Time

	pollInterval    time.Duration
	pacingDelay     time.Duration
	maxProcessedIDs int

	// watermark is the timestamp boundary below which mentions are presumed
	// already handled. Monotonic, never regresses.
	watermark int64
	seen      *ledger
}

// NewMonitor creates a mention feed monitor.
func NewMonitor(source bilisum.EventSource, processor MentionProcessor, options ...MonitorOption) (*Monitor, error) {
	if source == nil {
		return nil, fmt.Errorf("new monitor: nil event source")
	}
	if processor == nil {
		return nil, fmt.Errorf("new monitor: nil processor")
	}

	monitor := &Monitor{
		source:    source,
		processor: processor,
		logger:    slog.Default(),
		clock:     time.Now,

		pollInterval:    defaultPollInterval,
		pacingDelay:     defaultPacingDelay,
		maxProcessedIDs: defaultMaxProcessedIDs,
	}
	for _, option := range options {
		option(monitor)
	}
	monitor.seen = newLedger(monitor.maxProcessedIDs)

	return monitor, nil
}

// Run blocks, polling the feed on the configured interval until ctx is
// cancelled. A failed poll cycle is logged and the next interval is attempted
// unconditionally; only cancellation ends the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("mention monitor starting", "poll_interval", m.pollInterval)

	m.initialize(ctx)

	for {
		if err := m.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				m.logger.Info("mention monitor stopped")
				return ctx.Err()
			}
			m.logger.Error("poll cycle failed", "error", err)
		}

		if !sleepContext(ctx, m.pollInterval) {
			m.logger.Info("mention monitor stopped")
			return ctx.Err()
		}
	}
}

// initialize fetches one baseline batch so that mentions predating startup
// are never replied to. A non-empty batch pins the watermark to its newest
// timestamp and marks every member as handled; an empty batch or a failed
// fetch pins the watermark to the current wall clock instead. The processor
// is never invoked here.
func (m *Monitor) initialize(ctx context.Context) {
	batch, err := m.source.FetchMentions(ctx)
	if err != nil {
		m.watermark = m.clock().Unix()
		m.logger.Warn("baseline fetch failed, starting from now",
			"watermark", m.watermark,
			"error", err,
		)
		return
	}
	if len(batch) == 0 {
		m.watermark = m.clock().Unix()
		m.logger.Info("no historical mentions, starting from now", "watermark", m.watermark)
		return
	}

	for _, mention := range batch {
		m.seen.Mark(mention.ID)
		if mention.Timestamp > m.watermark {
			m.watermark = mention.Timestamp
		}
	}
	m.logger.Info("baseline recorded, historical mentions skipped",
		"skipped", len(batch),
		"watermark", m.watermark,
	)
}

func (m *Monitor) pollOnce(ctx context.Context) error {
	batch, err := m.source.FetchMentions(ctx)
	if err != nil {
		return fmt.Errorf("fetch mentions: %w", err)
	}

	// The >= comparison is deliberate: several mentions can share one
	// timestamp granule, so the ledger, not the watermark, is the
	// authoritative duplicate filter.
	fresh := make([]bilisum.Mention, 0, len(batch))
	for _, mention := range batch {
		if mention.Timestamp >= m.watermark && !m.seen.Seen(mention.ID) {
			fresh = append(fresh, mention)
		}
	}
	if len(fresh) == 0 {
		m.logger.Debug("no new mentions", "watermark", m.watermark)
		return nil
	}

	m.logger.Info("new mentions found", "count", len(fresh))

	// The feed yields newest first; process oldest first.
	for i := len(fresh) - 1; i >= 0; i-- {
		mention := fresh[i]

		ok := m.processor.Process(ctx, mention)
		if ok {
			m.logger.Info("mention handled", "sender", mention.SenderName, "bvid", mention.BVID)
		} else {
			m.logger.Warn("mention failed", "sender", mention.SenderName, "bvid", mention.BVID)
		}

		// Marked regardless of outcome: retrying a previously attempted
		// reply risks a duplicate on the platform, which is worse than
		// silently dropping one failure.
		m.seen.Mark(mention.ID)

		if !sleepContext(ctx, m.pacingDelay) {
			return ctx.Err()
		}
	}

	for _, mention := range fresh {
		if mention.Timestamp > m.watermark {
			m.watermark = mention.Timestamp
		}
	}

	if removed := m.seen.Trim(); removed > 0 {
		m.logger.Debug("dedup ledger trimmed", "removed", removed)
	}

	return nil
}

// sleepContext waits for the duration and reports false when ctx was
// cancelled before it elapsed.
func sleepContext(ctx context.Context, duration time.Duration) bool {
	if duration <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldscale/takt/internal/shared/domain"
	"github.com/fieldscale/takt/internal/shared/infrastructure/convert"
	"github.com/fieldscale/takt/internal/shared/infrastructure/eventbus"
)

// ProcessorConfig tunes the relay loop.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns the tuning used when the environment
// does not say otherwise: poll fast, back off exponentially on publish
// failures, park a message after five failed attempts.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     100 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}
}

// Processor relays staged messages to the event bus. Single-binary
// SQLite installs run one in process; Postgres installs run it in the
// dedicated worker so the API never blocks on the broker.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats
}

// NewProcessor wires a relay to its repository and broker. A nil
// logger falls back to slog.Default.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start launches the polling goroutine. Starting a running processor
// is a no-op.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx)

	p.logger.Info("outbox relay started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
		"max_retries", p.config.MaxRetries,
	)
	return nil
}

// Stop halts polling and waits for any in-flight batch to finish.
// Stopping a stopped processor is a no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox relay stopped")
}

// IsRunning reports whether the polling goroutine is live.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ProcessOnce drains a single batch synchronously, without the poll
// loop. Tests use it to avoid timing on the ticker.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	return p.drain(ctx)
}

func (p *Processor) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

// drain fetches one batch of pending messages and pushes each to the
// broker. Per-message failures are recorded on the row and never abort
// the batch; only a failed poll surfaces as an error.
func (p *Processor) drain(ctx context.Context) error {
	batch, err := p.repo.GetUnpublished(ctx, p.config.BatchSize)
	if err != nil {
		p.noteError(err)
		return err
	}
	p.noteBatch(batch)

	for _, msg := range batch {
		if err := p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload); err != nil {
			p.handleFailure(ctx, msg, err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, msg.ID); err != nil {
			p.logger.Error("could not mark message published",
				"id", msg.ID,
				"event_id", msg.EventID,
				"error", err,
			)
			continue
		}
		p.note(func(s *Stats) { s.PublishedCount++ })
	}
	return nil
}

// handleFailure either schedules a retry with exponential backoff or,
// once attempts are exhausted, parks the message as dead-lettered.
func (p *Processor) handleFailure(ctx context.Context, msg *Message, pubErr error) {
	trace := traceFields(msg)
	p.logger.Warn("outbox publish failed",
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		"correlation_id", trace.correlationID,
		"causation_id", trace.causationID,
		"retry_count", msg.RetryCount,
		"error", pubErr,
	)

	attempt := msg.RetryCount + 1
	if p.config.MaxRetries <= 0 || attempt >= p.config.MaxRetries {
		p.noteDead(pubErr)
		if err := p.repo.MarkDead(ctx, msg.ID, pubErr.Error()); err != nil {
			p.logger.Error("could not dead-letter message", "id", msg.ID, "error", err)
		}
		return
	}

	p.noteFailed(pubErr)
	retryAt := time.Now().Add(p.backoff(attempt))
	if err := p.repo.MarkFailed(ctx, msg.ID, pubErr.Error(), retryAt); err != nil {
		p.logger.Error("could not schedule retry", "id", msg.ID, "error", err)
	}
}

// backoff doubles per attempt from the configured base, capped at the
// configured ceiling.
func (p *Processor) backoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	ceil := p.config.RetryBackoffMax
	if ceil <= 0 {
		ceil = time.Minute
	}
	if attempt < 1 {
		attempt = 1
	}

	d := base * time.Duration(1<<convert.IntToUintSafe(attempt-1))
	if d <= 0 || d > ceil {
		return ceil
	}
	return d
}

type eventTrace struct {
	correlationID string
	causationID   string
}

// traceFields decodes just enough of the stored metadata to log the
// correlation chain. Undecodable metadata yields empty IDs.
func traceFields(msg *Message) eventTrace {
	if len(msg.Metadata) == 0 {
		return eventTrace{}
	}

	var meta domain.EventMetadata
	if err := json.Unmarshal(msg.Metadata, &meta); err != nil {
		return eventTrace{}
	}

	return eventTrace{
		correlationID: meta.CorrelationID.String(),
		causationID:   meta.CausationID.String(),
	}
}

// Stats is a snapshot of relay progress, exposed on the worker health
// endpoint.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

// GetStats returns the current counters.
func (p *Processor) GetStats() Stats {
	p.statsMu.Lock()
	snapshot := p.stats
	p.statsMu.Unlock()
	snapshot.IsRunning = p.IsRunning()
	return snapshot
}

func (p *Processor) note(update func(*Stats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	update(&p.stats)
}

func (p *Processor) noteError(err error) {
	now := time.Now()
	p.note(func(s *Stats) {
		s.LastError = err.Error()
		s.LastErrorAt = &now
	})
}

func (p *Processor) noteFailed(err error) {
	now := time.Now()
	p.note(func(s *Stats) {
		s.FailedCount++
		s.LastError = err.Error()
		s.LastErrorAt = &now
	})
}

func (p *Processor) noteDead(err error) {
	now := time.Now()
	p.note(func(s *Stats) {
		s.DeadCount++
		s.LastError = err.Error()
		s.LastErrorAt = &now
	})
}

// noteBatch records poll freshness. Lag is measured from the oldest
// pending message in the batch.
func (p *Processor) noteBatch(batch []*Message) {
	now := time.Now()
	p.note(func(s *Stats) {
		s.LastProcessedAt = &now
		if len(batch) == 0 {
			s.LagSeconds = 0
			s.OldestMessageAt = nil
			return
		}

		oldest := batch[0].CreatedAt
		for _, msg := range batch[1:] {
			if msg.CreatedAt.Before(oldest) {
				oldest = msg.CreatedAt
			}
		}
		s.OldestMessageAt = &oldest
		s.LagSeconds = now.Sub(oldest).Seconds()
	})
}

package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// relayRepo is a Repository double that records which IDs the
// processor marked and how.
type relayRepo struct {
	mu        sync.Mutex
	staged    []*outbox.Message
	published []int64
	retried   []int64
	dead      []int64
	pollErr   error
}

func newRelayRepo() *relayRepo {
	return &relayRepo{}
}

func (r *relayRepo) Save(ctx context.Context, msg *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = int64(len(r.staged) + 1)
	r.staged = append(r.staged, msg)
	return nil
}

func (r *relayRepo) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	for _, msg := range msgs {
		if err := r.Save(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *relayRepo) GetUnpublished(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollErr != nil {
		return nil, r.pollErr
	}

	var pending []*outbox.Message
	now := time.Now()
	for _, msg := range r.staged {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		pending = append(pending, msg)
		if len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (r *relayRepo) MarkPublished(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, id)
	if msg := r.lookup(id); msg != nil {
		now := time.Now()
		msg.PublishedAt = &now
	}
	return nil
}

func (r *relayRepo) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retried = append(r.retried, id)
	if msg := r.lookup(id); msg != nil {
		msg.RetryCount++
		msg.LastError = &errMsg
		msg.NextRetryAt = &nextRetryAt
	}
	return nil
}

func (r *relayRepo) MarkDead(ctx context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dead = append(r.dead, id)
	if msg := r.lookup(id); msg != nil {
		now := time.Now()
		msg.DeadLetteredAt = &now
		msg.DeadLetterReason = &reason
	}
	return nil
}

func (r *relayRepo) GetFailed(ctx context.Context, maxRetries, limit int) ([]*outbox.Message, error) {
	return nil, nil
}

func (r *relayRepo) DeleteOld(ctx context.Context, olderThanDays int) (int64, error) {
	return 0, nil
}

func (r *relayRepo) lookup(id int64) *outbox.Message {
	for _, msg := range r.staged {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// recordingBroker captures published routing keys and can be told to
// reject specific ones.
type recordingBroker struct {
	mu       sync.Mutex
	sent     []string
	rejected map[string]bool
}

func newRecordingBroker() *recordingBroker {
	return &recordingBroker{rejected: make(map[string]bool)}
}

func (b *recordingBroker) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rejected[routingKey] {
		return errors.New("broker unavailable")
	}
	b.sent = append(b.sent, routingKey)
	return nil
}

func (b *recordingBroker) Close() error { return nil }

func (b *recordingBroker) sentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func stageMessage(t *testing.T, repo *relayRepo, routingKey string) *outbox.Message {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"project_id": uuid.NewString()})
	require.NoError(t, err)

	msg := &outbox.Message{
		EventID:       uuid.New(),
		AggregateType: "Project",
		AggregateID:   uuid.New(),
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repo.Save(context.Background(), msg))
	return msg
}

func TestProcessor_ProcessOnceDrainsStagedMessages(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	proc := outbox.NewProcessor(repo, broker, outbox.DefaultProcessorConfig(), nil)

	stageMessage(t, repo, "plan.computed")
	stageMessage(t, repo, "project.imported")

	require.NoError(t, proc.ProcessOnce(context.Background()))

	assert.Equal(t, []string{"plan.computed", "project.imported"}, broker.sent)
	assert.Len(t, repo.published, 2)

	stats := proc.GetStats()
	assert.Equal(t, uint64(2), stats.PublishedCount)
	assert.NotNil(t, stats.LastProcessedAt)
	assert.NotNil(t, stats.OldestMessageAt)
	assert.GreaterOrEqual(t, stats.LagSeconds, 0.0)
}

func TestProcessor_PublishFailureSchedulesRetry(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	broker.rejected["plan.computed"] = true
	proc := outbox.NewProcessor(repo, broker, outbox.DefaultProcessorConfig(), nil)

	good := stageMessage(t, repo, "project.imported")
	bad := stageMessage(t, repo, "plan.computed")

	require.NoError(t, proc.ProcessOnce(context.Background()))

	assert.Equal(t, []int64{good.ID}, repo.published)
	assert.Equal(t, []int64{bad.ID}, repo.retried)
	assert.Empty(t, repo.dead)
	require.NotNil(t, bad.NextRetryAt)
	assert.True(t, bad.NextRetryAt.After(time.Now()))

	stats := proc.GetStats()
	assert.Equal(t, uint64(1), stats.PublishedCount)
	assert.Equal(t, uint64(1), stats.FailedCount)
	assert.Equal(t, "broker unavailable", stats.LastError)
	assert.NotNil(t, stats.LastErrorAt)
}

func TestProcessor_RetryBackoffGrowsPerAttempt(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	broker.rejected["plan.computed"] = true

	config := outbox.DefaultProcessorConfig()
	config.RetryBackoffBase = time.Minute
	config.RetryBackoffMax = time.Hour
	proc := outbox.NewProcessor(repo, broker, config, nil)

	msg := stageMessage(t, repo, "plan.computed")
	msg.RetryCount = 2

	before := time.Now()
	require.NoError(t, proc.ProcessOnce(context.Background()))

	// Third attempt waits the base doubled twice: 4 minutes.
	require.NotNil(t, msg.NextRetryAt)
	wait := msg.NextRetryAt.Sub(before)
	assert.GreaterOrEqual(t, wait, 4*time.Minute)
	assert.LessOrEqual(t, wait, 4*time.Minute+time.Second)
}

func TestProcessor_RetryBackoffHonorsCeiling(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	broker.rejected["plan.computed"] = true

	config := outbox.DefaultProcessorConfig()
	config.MaxRetries = 10
	config.RetryBackoffBase = time.Minute
	config.RetryBackoffMax = 2 * time.Minute
	proc := outbox.NewProcessor(repo, broker, config, nil)

	msg := stageMessage(t, repo, "plan.computed")
	msg.RetryCount = 6

	before := time.Now()
	require.NoError(t, proc.ProcessOnce(context.Background()))

	require.NotNil(t, msg.NextRetryAt)
	wait := msg.NextRetryAt.Sub(before)
	assert.GreaterOrEqual(t, wait, 2*time.Minute)
	assert.LessOrEqual(t, wait, 2*time.Minute+time.Second)
}

func TestProcessor_DeadLettersWhenRetriesExhausted(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	broker.rejected["plan.computed"] = true

	config := outbox.DefaultProcessorConfig()
	config.MaxRetries = 1
	proc := outbox.NewProcessor(repo, broker, config, nil)

	msg := stageMessage(t, repo, "plan.computed")

	require.NoError(t, proc.ProcessOnce(context.Background()))

	assert.Equal(t, 0, broker.sentCount())
	assert.Empty(t, repo.retried)
	assert.Equal(t, []int64{msg.ID}, repo.dead)
	require.NotNil(t, msg.DeadLetterReason)
	assert.Equal(t, "broker unavailable", *msg.DeadLetterReason)
	assert.Equal(t, uint64(1), proc.GetStats().DeadCount)
}

func TestProcessor_PollErrorSurfaces(t *testing.T) {
	repo := newRelayRepo()
	repo.pollErr = errors.New("connection reset")
	proc := outbox.NewProcessor(repo, newRecordingBroker(), outbox.DefaultProcessorConfig(), nil)

	err := proc.ProcessOnce(context.Background())

	require.Error(t, err)
	stats := proc.GetStats()
	assert.Equal(t, "connection reset", stats.LastError)
	assert.NotNil(t, stats.LastErrorAt)
}

func TestProcessor_StartStop(t *testing.T) {
	repo := newRelayRepo()
	broker := newRecordingBroker()
	config := outbox.ProcessorConfig{
		PollInterval:     5 * time.Millisecond,
		BatchSize:        10,
		MaxRetries:       3,
		RetryBackoffBase: time.Millisecond,
		RetryBackoffMax:  10 * time.Millisecond,
	}
	proc := outbox.NewProcessor(repo, broker, config, nil)

	require.NoError(t, proc.Start(context.Background()))
	assert.True(t, proc.IsRunning())

	stageMessage(t, repo, "project.deleted")

	require.Eventually(t, func() bool {
		return broker.sentCount() >= 1
	}, time.Second, 5*time.Millisecond)

	proc.Stop()
	assert.False(t, proc.IsRunning())
}

func TestProcessor_StartAndStopAreIdempotent(t *testing.T) {
	proc := outbox.NewProcessor(newRelayRepo(), newRecordingBroker(), outbox.DefaultProcessorConfig(), nil)

	require.NoError(t, proc.Start(context.Background()))
	require.NoError(t, proc.Start(context.Background()))
	assert.True(t, proc.IsRunning())

	proc.Stop()
	proc.Stop()
	assert.False(t, proc.IsRunning())
}

func TestProcessor_GetStatsTracksRunning(t *testing.T) {
	proc := outbox.NewProcessor(newRelayRepo(), newRecordingBroker(), outbox.DefaultProcessorConfig(), nil)

	assert.False(t, proc.GetStats().IsRunning)

	require.NoError(t, proc.Start(context.Background()))
	assert.True(t, proc.GetStats().IsRunning)

	proc.Stop()
	assert.False(t, proc.GetStats().IsRunning)
}

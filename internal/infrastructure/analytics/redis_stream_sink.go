package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/engagesync/backend/internal/domain/shared"
	"github.com/engagesync/backend/internal/domain/sync"
)

// DefaultStream is the stream engagement events are mirrored to
const DefaultStream = "engagement:events"

// defaultDedupTTL bounds how long a delivered key suppresses re-publishing
const defaultDedupTTL = 24 * time.Hour

// streamClient is the subset of the Redis client the sink needs
type streamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamSink mirrors persisted engagement events onto a Redis stream for
// downstream analytics consumers. Delivery is at-least-once; an optional
// idempotency store suppresses duplicate publishes across process restarts.
type RedisStreamSink struct {
	client   streamClient
	dedup    shared.IdempotencyStore
	stream   string
	dedupTTL time.Duration
	logger   *zap.Logger
}

// Option configures a RedisStreamSink
type Option func(*RedisStreamSink)

// WithStream overrides the target stream name
func WithStream(stream string) Option {
	return func(s *RedisStreamSink) {
		if stream != "" {
			s.stream = stream
		}
	}
}

// WithDedup suppresses duplicate publishes using the given store
func WithDedup(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *RedisStreamSink) {
		s.dedup = store
		if ttl > 0 {
			s.dedupTTL = ttl
		}
	}
}

// NewRedisStreamSink creates a sink publishing to the given Redis client
func NewRedisStreamSink(client streamClient, logger *zap.Logger, opts ...Option) *RedisStreamSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RedisStreamSink{
		client:   client,
		stream:   DefaultStream,
		dedupTTL: defaultDedupTTL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish appends one event record to the stream. A record whose idempotency
// key was already delivered within the dedup TTL is silently skipped.
func (s *RedisStreamSink) Publish(ctx context.Context, record *sync.EngagementRecord) error {
	if s.dedup != nil {
		isNew, err := s.dedup.MarkProcessed(ctx, record.IdempotencyKey, s.dedupTTL)
		if err != nil {
			// Dedup is best-effort; publish anyway rather than drop
			s.logger.Warn("mirror dedup check failed",
				zap.String("idempotency_key", record.IdempotencyKey),
				zap.Error(err),
			)
		} else if !isNew {
			return nil
		}
	}

	values := map[string]any{
		"idempotency_key": record.IdempotencyKey,
		"namespace":       record.Namespace,
		"platform":        record.Platform.String(),
		"campaign_id":     record.CampaignID,
		"event_type":      record.EventType,
		"subject_email":   record.SubjectEmail,
		"occurred_at":     record.OccurredAt.Format(time.RFC3339Nano),
	}
	if len(record.Payload) > 0 {
		if payload, err := json.Marshal(record.Payload); err == nil {
			values["payload"] = string(payload)
		}
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("analytics: stream publish failed: %w", err)
	}
	return nil
}

var _ sync.AnalyticsSink = (*RedisStreamSink)(nil)

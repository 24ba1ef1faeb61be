package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"transitadmin/internal/activity"
	"transitadmin/internal/metrics"
	"transitadmin/internal/service"
)

const (
	TypeRevalidationSweep = "revalidation_sweep"
	TypeExpiryNoticeSweep = "expiry_notice_sweep"
	TypeAttentionSnapshot = "attention_snapshot"
)

// Verifications is the part of the verification service the worker drives.
type Verifications interface {
	SweepRevalidation(ctx context.Context, interval time.Duration) (int, error)
	SweepExpiryNotices(ctx context.Context) (int, error)
	Stats(ctx context.Context) (service.VerificationStats, error)
}

type Processor struct {
	verifications        Verifications
	revalidationInterval time.Duration
	metrics              *metrics.Metrics
	logger               zerolog.Logger
}

type TaskPayload struct {
	Type        string `json:"type"`
	RequestedAt string `json:"requestedAt"`
}

func NewProcessor(verifications Verifications, revalidationInterval time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Processor {
	return &Processor{
		verifications:        verifications,
		revalidationInterval: revalidationInterval,
		metrics:              m,
		logger:               logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	ctx = activity.WithActor(ctx, "scheduler")
	start := time.Now()
	var err error

	switch payload.Type {
	case TypeRevalidationSweep:
		err = p.handleRevalidation(ctx)
	case TypeExpiryNoticeSweep:
		err = p.handleExpiryNotices(ctx)
	case TypeAttentionSnapshot:
		err = p.handleAttentionSnapshot(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}

	p.metrics.ObserveTask(payload.Type, start, err)
	return err
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}

func (p *Processor) handleRevalidation(ctx context.Context) error {
	flagged, err := p.verifications.SweepRevalidation(ctx, p.revalidationInterval)
	if err != nil {
		return err
	}
	p.logger.Info().Int("flagged", flagged).Msg("revalidation sweep finished")
	return nil
}

func (p *Processor) handleExpiryNotices(ctx context.Context) error {
	notified, err := p.verifications.SweepExpiryNotices(ctx)
	if err != nil {
		return err
	}
	p.logger.Info().Int("notified", notified).Msg("expiry notice sweep finished")
	return nil
}

func (p *Processor) handleAttentionSnapshot(ctx context.Context) error {
	stats, err := p.verifications.Stats(ctx)
	if err != nil {
		return err
	}
	p.logger.Debug().Int("needs_attention", stats.NeedsAttention).Msg("attention snapshot")
	return nil
}

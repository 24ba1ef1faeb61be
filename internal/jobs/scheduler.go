package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"transitadmin/internal/config"
	"transitadmin/internal/tasks"
)

// Scheduler enqueues the periodic verification sweeps onto the task
// stream; the worker process executes them.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	specs  config.JobsConfig
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, stream string, specs config.JobsConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		queue:  queue,
		stream: stream,
		specs:  specs,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || !s.specs.Enabled {
		s.log.Info().Msg("scheduled sweeps disabled")
		return nil
	}

	schedule := []struct {
		spec     string
		taskType string
	}{
		{s.specs.RevalidationSweep, tasks.TypeRevalidationSweep},
		{s.specs.ExpiryNoticeSweep, tasks.TypeExpiryNoticeSweep},
		{s.specs.AttentionSnapshot, tasks.TypeAttentionSnapshot},
	}
	for _, job := range schedule {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.enqueueFunc(job.taskType)); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.taskType, job.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop; the returned context is done once running
// enqueue calls have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueFunc(taskType string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Enqueue(ctx, taskType); err != nil {
			s.log.Error().Err(err).Str("task", taskType).Msg("enqueue task failed")
		}
	}
}

func (s *Scheduler) Enqueue(ctx context.Context, taskType string) error {
	if s.queue == nil {
		return nil
	}
	id, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"type":        taskType,
			"requestedAt": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return err
	}
	s.log.Debug().Str("task", taskType).Str("message_id", id).Msg("task enqueued")
	return nil
}

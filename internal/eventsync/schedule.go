package eventsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// ErrAlreadyScheduled is returned by Schedule when a schedule is active.
var ErrAlreadyScheduled = errors.New("refresh already scheduled")

// Schedule runs Refresh on the given cron spec until ctx is done or Stop is
// called. spec uses the standard five-field syntax or a descriptor such as
// "@every 5m".
func (c *Coordinator) Schedule(ctx context.Context, spec string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler != nil {
		return ErrAlreadyScheduled
	}

	sched := cron.New()
	if _, err := sched.AddFunc(spec, func() { c.Refresh(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	sched.Start()
	c.scheduler = sched
	c.logger.Info("event refresh scheduled", "schedule", spec)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// Stop halts the refresh schedule and waits for a running scheduled refresh
// to finish. Stop without an active schedule is a no-op.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	sched := c.scheduler
	c.scheduler = nil
	c.mu.Unlock()

	if sched == nil {
		return
	}
	<-sched.Stop().Done()
}

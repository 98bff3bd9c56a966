// Package scheduler registers the time-based triggers: the hourly week rollover
// check, per-slot reminders and the daily affordance reset.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
)

const (
	rolloverCron   = "0 * * * *"
	dailyResetCron = "0 0 * * *"

	// DefaultStartupDelay postpones the first rollover check after start.
	DefaultStartupDelay = 5 * time.Second
)

// Runner is what the scheduled jobs call into.
type Runner interface {
	RefreshAll(ctx context.Context)
	ResetAndClear(ctx context.Context, force bool)
	RemindAll(ctx context.Context, inst registry.Instance, slot models.Slot)
	DailyReset(ctx context.Context, inst registry.Instance)
}

type Scheduler struct {
	s      gocron.Scheduler
	runner Runner
	reg    *registry.Registry
	clock  clockwork.Clock
	delay  time.Duration
	log    *logger.Logger
}

func New(runner Runner, reg *registry.Registry, clock clockwork.Clock, startupDelay time.Duration, log *logger.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(logger.ForCron(log)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if startupDelay <= 0 {
		startupDelay = DefaultStartupDelay
	}
	return &Scheduler{s: s, runner: runner, reg: reg, clock: clock, delay: startupDelay, log: log}, nil
}

// Register adds every job. Jobs run with ctx.
func (sc *Scheduler) Register(ctx context.Context) error {
	single := gocron.WithSingletonMode(gocron.LimitModeReschedule)

	if _, err := sc.s.NewJob(
		gocron.CronJob(rolloverCron, false),
		gocron.NewTask(func() { sc.runner.ResetAndClear(ctx, false) }),
		gocron.WithName("rollover-check"),
		single,
	); err != nil {
		return fmt.Errorf("schedule rollover check: %w", err)
	}

	for _, inst := range sc.reg.All() {
		for _, slot := range inst.Slots {
			rem, ok := inst.Reminders[slot]
			if !ok {
				continue
			}
			if _, err := sc.s.NewJob(
				gocron.CronJob(inZone(inst.Timezone, rem.Time), false),
				gocron.NewTask(func() {
					sc.log.Infow("sending scheduled reminder", "instance", inst.Key, "slot", slot)
					sc.runner.RemindAll(ctx, inst, slot)
				}),
				gocron.WithName(fmt.Sprintf("reminder:%s:%s", inst.Key, slot)),
				gocron.WithTags(inst.Key),
				single,
			); err != nil {
				return fmt.Errorf("schedule %s %s reminder: %w", inst.Key, slot, err)
			}
			sc.log.Infow("scheduled reminder", "instance", inst.Key, "slot", slot, "time", rem.Time, "timezone", inst.Timezone)
		}

		if _, err := sc.s.NewJob(
			gocron.CronJob(inZone(inst.Timezone, dailyResetCron), false),
			gocron.NewTask(func() { sc.runner.DailyReset(ctx, inst) }),
			gocron.WithName("daily-reset:"+inst.Key),
			gocron.WithTags(inst.Key),
			single,
		); err != nil {
			return fmt.Errorf("schedule %s daily reset: %w", inst.Key, err)
		}
	}

	// Catch a rollover missed while offline.
	if _, err := sc.s.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(sc.clock.Now().Add(sc.delay))),
		gocron.NewTask(func() { sc.runner.ResetAndClear(ctx, false) }),
		gocron.WithName("startup-rollover-check"),
	); err != nil {
		return fmt.Errorf("schedule startup check: %w", err)
	}
	return nil
}

// Start restores every display message, then starts the scheduler.
func (sc *Scheduler) Start(ctx context.Context) {
	sc.runner.RefreshAll(ctx)
	sc.s.Start()
	sc.log.Infow("medication scheduler started", "jobs", len(sc.s.Jobs()))
}

func (sc *Scheduler) Shutdown() error {
	return sc.s.Shutdown()
}

// JobNames lists registered jobs, for diagnostics.
func (sc *Scheduler) JobNames() []string {
	jobs := sc.s.Jobs()
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Name())
	}
	return out
}

func inZone(tz, spec string) string {
	return "CRON_TZ=" + tz + " " + spec
}

// Package medication ties the tracker, renderer, display synchronizer and reminders
// together into the operations triggered by commands, reactions and schedules.
package medication

import (
	"context"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/display"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
	"telegram-medication-report/internal/reminder"
	"telegram-medication-report/internal/report"
	"telegram-medication-report/internal/telemetry"
	"telegram-medication-report/internal/tracker"
)

// Reset reasons, also used as metric labels.
const (
	ReasonScheduled = "scheduled"
	ReasonForced    = "forced"
)

type Service struct {
	Registry  *registry.Registry
	Tracker   *tracker.Tracker
	Display   *display.Synchronizer
	Reminders *reminder.Manager

	client chat.Client
	log    *logger.Logger
}

// New wires the service. An implicit rollover sends the weekly backup and
// re-renders every display with the fresh week.
func New(reg *registry.Registry, tr *tracker.Tracker, client chat.Client, log *logger.Logger) *Service {
	s := &Service{
		Registry:  reg,
		Tracker:   tr,
		Display:   display.New(client, tr, log),
		Reminders: reminder.New(client, tr, log),
		client:    client,
		log:       log,
	}
	tr.OnRollover(func(ctx context.Context, key string, previous models.InstanceState) {
		inst, ok := reg.Get(key)
		if !ok {
			return
		}
		s.SendBackup(ctx, inst, previous)
		s.Display.SyncAll(ctx, inst)
	})
	return s
}

// Check marks day/slot done, refreshes every display and retracts the open reminder in ch.
func (s *Service) Check(ctx context.Context, inst registry.Instance, day models.Weekday, slot models.Slot, ch int64) models.InstanceState {
	st := s.Tracker.SetCheck(ctx, inst.Key, inst.Timezone, day, slot, true)
	telemetry.Checks.WithLabelValues(inst.Key, string(slot), "check").Inc()
	s.Display.SyncState(ctx, inst, st)
	s.Reminders.Retract(ctx, inst, ch)
	return st
}

// Uncheck clears day/slot and refreshes every display.
func (s *Service) Uncheck(ctx context.Context, inst registry.Instance, day models.Weekday, slot models.Slot) models.InstanceState {
	st := s.Tracker.SetCheck(ctx, inst.Key, inst.Timezone, day, slot, false)
	telemetry.Checks.WithLabelValues(inst.Key, string(slot), "uncheck").Inc()
	s.Display.SyncState(ctx, inst, st)
	return st
}

// LogMood stores the mood text and refreshes every display.
func (s *Service) LogMood(ctx context.Context, inst registry.Instance, day models.Weekday, slot models.Slot, text string) models.InstanceState {
	st := s.Tracker.LogMood(ctx, inst.Key, inst.Timezone, day, slot, text)
	telemetry.MoodsLogged.WithLabelValues(inst.Key).Inc()
	s.Display.SyncState(ctx, inst, st)
	return st
}

// Refresh restores the display messages of inst, recreating missing ones.
func (s *Service) Refresh(ctx context.Context, inst registry.Instance) {
	s.Display.EnsureDisplayed(ctx, inst)
}

// RefreshAll restores the display messages of every instance.
func (s *Service) RefreshAll(ctx context.Context) {
	for _, inst := range s.Registry.All() {
		s.Refresh(ctx, inst)
	}
}

// ResetAndClear resets every instance whose week is over, or all of them when force is set.
func (s *Service) ResetAndClear(ctx context.Context, force bool) {
	s.log.Debugw("running medication reset check", "force", force)
	for _, inst := range s.Registry.All() {
		if !force && !s.Tracker.ShouldReset(ctx, inst.Key, inst.Timezone) {
			continue
		}
		reason := ReasonScheduled
		if force {
			reason = ReasonForced
		}
		s.ResetInstance(ctx, inst, reason)
	}
}

// ResetInstance clears the week of inst and re-pushes every display with fresh
// affordances. A scheduled reset only acts on a stale week; a forced one always
// clears. The cleared week is backed up to the operator only when this call did
// the clearing, and a failed backup does not undo the reset.
func (s *Service) ResetInstance(ctx context.Context, inst registry.Instance, reason string) {
	prev, st, reset := s.Tracker.ResetWeek(ctx, inst.Key, inst.Timezone, reason == ReasonForced)
	if reset {
		s.log.Infow("instance reset", "instance", inst.Key, "reason", reason, "from", prev.CurrentWeekStart, "to", st.CurrentWeekStart)
		s.SendBackup(ctx, inst, prev)
		telemetry.Resets.WithLabelValues(inst.Key, reason).Inc()
	}
	s.Display.SyncState(ctx, inst, st)
}

// DailyReset gives every display message fresh "not yet checked today" affordances.
func (s *Service) DailyReset(ctx context.Context, inst registry.Instance) {
	s.log.Infow("running daily affordance reset", "instance", inst.Key)
	s.Display.ResetAffordances(ctx, inst)
}

// Remind sends the reminder for slot into ch.
func (s *Service) Remind(ctx context.Context, inst registry.Instance, slot models.Slot, ch int64) error {
	return s.Reminders.Send(ctx, inst, slot, ch)
}

// RemindAll sends the scheduled reminder for slot to every channel of inst.
func (s *Service) RemindAll(ctx context.Context, inst registry.Instance, slot models.Slot) {
	s.Reminders.SendAll(ctx, inst, slot)
}

// DefaultReminderSlot picks the slot an argument-less remind refers to: the first
// reminder slot not yet checked today, else the first reminder slot.
func (s *Service) DefaultReminderSlot(ctx context.Context, inst registry.Instance) (models.Slot, bool) {
	st := s.Tracker.Snapshot(ctx, inst.Key, inst.Timezone)
	today := s.Tracker.Today(inst.Timezone)
	var first models.Slot
	for _, slot := range inst.Slots {
		if _, ok := inst.Reminders[slot]; !ok {
			continue
		}
		if first == "" {
			first = slot
		}
		rec, ok := st.Days[today]
		if !ok || !rec.Checks[slot].Done {
			return slot, true
		}
	}
	return first, first != ""
}

// SendBackup delivers the weekly summary of prev to the operator's private chat.
func (s *Service) SendBackup(ctx context.Context, inst registry.Instance, prev models.InstanceState) {
	if inst.OperatorID == 0 {
		return
	}
	err := s.client.SendPrivate(ctx, inst.OperatorID, report.BackupGreeting, []chat.Embed{report.Backup(inst, prev)})
	if err != nil {
		telemetry.Backups.WithLabelValues(inst.Key, "failed").Inc()
		s.log.Errorw("failed to send backup", "instance", inst.Key, "user_id", inst.OperatorID, "err", err)
		return
	}
	telemetry.Backups.WithLabelValues(inst.Key, "sent").Inc()
	s.log.Infow("backup sent", "instance", inst.Key, "user_id", inst.OperatorID, "week", prev.CurrentWeekStart)
}

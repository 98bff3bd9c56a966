// Package reminder sends slot reminders and retracts them once the slot is checked.
package reminder

import (
	"context"
	"errors"
	"fmt"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
	"telegram-medication-report/internal/telemetry"
	"telegram-medication-report/internal/tracker"
)

// ErrNotConfigured is returned when the instance has no reminder for the slot.
var ErrNotConfigured = errors.New("no reminder configured")

type Manager struct {
	client  chat.Client
	tracker *tracker.Tracker
	log     *logger.Logger
}

func New(client chat.Client, tr *tracker.Tracker, log *logger.Logger) *Manager {
	return &Manager{client: client, tracker: tr, log: log}
}

// Send posts the slot reminder to ch and records it as the live reminder there.
// A previous reminder in ch is left in place.
func (m *Manager) Send(ctx context.Context, inst registry.Instance, slot models.Slot, ch int64) error {
	text, ok := inst.ReminderText(slot)
	if !ok {
		return ErrNotConfigured
	}
	id, err := m.client.SendText(ctx, ch, text)
	if err != nil {
		return fmt.Errorf("send reminder to %d: %w", ch, err)
	}
	m.tracker.SetReminderMessage(ctx, inst.Key, inst.Timezone, ch, id)
	telemetry.RemindersSent.WithLabelValues(inst.Key, string(slot)).Inc()
	m.log.Infow("reminder sent", "instance", inst.Key, "slot", slot, "chat_id", ch, "message_id", id)
	return nil
}

// SendAll sends the slot reminder to every channel of inst. Failures are logged per channel.
func (m *Manager) SendAll(ctx context.Context, inst registry.Instance, slot models.Slot) {
	for _, ch := range inst.Channels {
		if err := m.Send(ctx, inst, slot, ch); err != nil {
			m.log.Errorw("failed to send reminder", "instance", inst.Key, "slot", slot, "chat_id", ch, "err", err)
		}
	}
}

// Retract deletes the live reminder in ch, if any. Missing messages are not an error.
func (m *Manager) Retract(ctx context.Context, inst registry.Instance, ch int64) {
	id, ok := m.tracker.TakeReminderMessage(ctx, inst.Key, inst.Timezone, ch)
	if !ok {
		return
	}
	if err := m.client.Delete(ctx, ch, id); err != nil {
		m.log.Debugw("reminder already gone", "instance", inst.Key, "chat_id", ch, "message_id", id, "err", err)
		return
	}
	telemetry.RemindersRetracted.WithLabelValues(inst.Key).Inc()
	m.log.Infow("reminder retracted", "instance", inst.Key, "chat_id", ch, "message_id", id)
}

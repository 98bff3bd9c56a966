// Package display keeps every channel's status message in step with the stored state.
// Messages are always fully re-rendered, never patched, so a lost edit is repaired
// by the next push.
package display

import (
	"context"

	"telegram-medication-report/internal/chat"
	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/registry"
	"telegram-medication-report/internal/report"
	"telegram-medication-report/internal/telemetry"
	"telegram-medication-report/internal/tracker"
)

type Synchronizer struct {
	client  chat.Client
	tracker *tracker.Tracker
	log     *logger.Logger
}

func New(client chat.Client, tr *tracker.Tracker, log *logger.Logger) *Synchronizer {
	return &Synchronizer{client: client, tracker: tr, log: log}
}

// EnsureDisplayed makes sure every registered channel of inst has a live display
// message showing the current state, creating one where the recorded message is gone.
func (s *Synchronizer) EnsureDisplayed(ctx context.Context, inst registry.Instance) {
	st := s.tracker.Snapshot(ctx, inst.Key, inst.Timezone)
	d := report.Display(inst, st, s.tracker.Today(inst.Timezone))
	for _, ch := range inst.Channels {
		s.ensureChannel(ctx, inst, st, ch, d)
	}
}

func (s *Synchronizer) ensureChannel(ctx context.Context, inst registry.Instance, st models.InstanceState, ch int64, d chat.Display) {
	log := s.log.With("instance", inst.Key, "chat_id", ch)

	msgID, recorded := st.DisplayMessages[ch]
	if recorded {
		err := s.client.EditDisplay(ctx, ch, msgID, d)
		if err == nil {
			return
		}
		s.failed(inst.Key, err)
		if !chat.Gone(err) {
			log.Warnw("failed to update display message", "message_id", msgID, "err", err)
			return
		}
		log.Infow("display message missing, creating a new one", "message_id", msgID)
	}

	newID, err := s.client.SendDisplay(ctx, ch, d)
	if err != nil {
		s.failed(inst.Key, err)
		log.Errorw("failed to create display message", "err", err)
		if recorded && chat.Gone(err) {
			s.tracker.RemoveDisplayMessage(ctx, inst.Key, inst.Timezone, ch)
		}
		return
	}
	s.tracker.SetDisplayMessage(ctx, inst.Key, inst.Timezone, ch, newID)
	log.Infow("display message created", "message_id", newID)
}

// SyncAll re-renders the current state into every recorded display message.
func (s *Synchronizer) SyncAll(ctx context.Context, inst registry.Instance) {
	s.SyncState(ctx, inst, s.tracker.Snapshot(ctx, inst.Key, inst.Timezone))
}

// SyncState pushes st, a state the caller just obtained from the tracker.
func (s *Synchronizer) SyncState(ctx context.Context, inst registry.Instance, st models.InstanceState) {
	d := report.Display(inst, st, s.tracker.Today(inst.Timezone))
	for _, ch := range st.DisplayChannels() {
		err := s.client.EditDisplay(ctx, ch, st.DisplayMessages[ch], d)
		s.handle(ctx, inst, ch, "sync", err)
	}
}

// ResetAffordances rebuilds the buttons of every display message from today's checks,
// leaving the rendered text alone.
func (s *Synchronizer) ResetAffordances(ctx context.Context, inst registry.Instance) {
	st := s.tracker.Snapshot(ctx, inst.Key, inst.Timezone)
	affs := report.Affordances(inst, st, s.tracker.Today(inst.Timezone))
	for _, ch := range st.DisplayChannels() {
		err := s.client.SetAffordances(ctx, ch, st.DisplayMessages[ch], affs)
		s.handle(ctx, inst, ch, "reset affordances", err)
	}
}

func (s *Synchronizer) handle(ctx context.Context, inst registry.Instance, ch int64, op string, err error) {
	if err == nil {
		return
	}
	s.failed(inst.Key, err)
	if chat.Gone(err) {
		s.tracker.RemoveDisplayMessage(ctx, inst.Key, inst.Timezone, ch)
		return
	}
	s.log.Warnw("display "+op+" failed", "instance", inst.Key, "chat_id", ch, "err", err)
}

func (s *Synchronizer) failed(key string, err error) {
	telemetry.DisplayFailures.WithLabelValues(key, chat.KindOf(err).String()).Inc()
}

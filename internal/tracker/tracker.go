// Package tracker owns the weekly check-in state of every instance: it loads the
// persisted document, applies week rollover and mutations, and saves it back.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"telegram-medication-report/internal/logger"
	"telegram-medication-report/internal/models"
	"telegram-medication-report/internal/storage"
	"telegram-medication-report/internal/telemetry"
)

const maxConflictRetries = 3

// RolloverHook receives the state an instance had right before an implicit rollover.
type RolloverHook func(ctx context.Context, key string, previous models.InstanceState)

// Tracker serialises every load-mutate-save cycle behind one mutex and retries
// on storage.ErrConflict, so concurrent triggers never lose updates.
type Tracker struct {
	store storage.Store
	clock clockwork.Clock
	log   *logger.Logger

	mu         sync.Mutex
	onRollover RolloverHook
}

func New(store storage.Store, clock clockwork.Clock, log *logger.Logger) *Tracker {
	return &Tracker{store: store, clock: clock, log: log}
}

// OnRollover registers fn to run after a read or mutation rolled an instance
// into a new week. Forced resets do not trigger it.
func (t *Tracker) OnRollover(fn RolloverHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRollover = fn
}

// Now returns the current time in tz.
func (t *Tracker) Now(tz string) time.Time {
	return t.clock.Now().In(t.location(tz))
}

// Today returns the current weekday name in tz.
func (t *Tracker) Today(tz string) models.Weekday {
	return DayOf(t.clock.Now(), t.location(tz))
}

func (t *Tracker) location(tz string) *time.Location {
	loc, err := Location(tz)
	if err != nil {
		t.log.Warnw("unknown timezone, using UTC", "tz", tz, "err", err)
	}
	return loc
}

// rolled is collected under the lock and reported to the hook after it is released.
type rolled struct {
	key      string
	previous models.InstanceState
}

// update runs fn against a freshly loaded document and saves the result.
// fn may be invoked more than once when the store reports a conflict.
func (t *Tracker) update(ctx context.Context, fn func(doc *models.Document) (*rolled, error)) error {
	t.mu.Lock()
	var (
		roll *rolled
		err  error
	)
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		roll, err = t.cycle(ctx, fn)
		if !errors.Is(err, storage.ErrConflict) {
			break
		}
		telemetry.StoreConflicts.Inc()
		t.log.Warnw("document changed underneath, retrying", "attempt", attempt)
	}
	if errors.Is(err, storage.ErrConflict) {
		t.log.Errorw("giving up after repeated document conflicts", "attempts", maxConflictRetries)
	}
	hook := t.onRollover
	t.mu.Unlock()

	if roll != nil && hook != nil {
		hook(ctx, roll.key, roll.previous)
	}
	return err
}

func (t *Tracker) cycle(ctx context.Context, fn func(doc *models.Document) (*rolled, error)) (*rolled, error) {
	start := time.Now()
	doc, loadErr := t.store.Load(ctx)
	telemetry.StoreDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	if loadErr != nil {
		t.log.Errorw("failed to load medication data, continuing with empty state", "err", loadErr)
		doc = models.NewDocument()
	}

	roll, err := fn(doc)
	if err != nil {
		return nil, err
	}
	if loadErr != nil {
		// Never overwrite a document we could not read.
		return roll, nil
	}

	start = time.Now()
	err = t.store.Save(ctx, doc)
	telemetry.StoreDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	if errors.Is(err, storage.ErrConflict) {
		return nil, err
	}
	if err != nil {
		t.log.Errorw("failed to save medication data", "err", err)
	}
	return roll, nil
}

// ensure returns the instance state, creating it for the current week if absent,
// and applies rollover. The returned rolled is non-nil if a rollover happened.
func (t *Tracker) ensure(doc *models.Document, key, tz string) (*models.InstanceState, *rolled) {
	loc := t.location(tz)
	now := t.clock.Now()

	st, ok := doc.Instances[key]
	if !ok || st == nil {
		st = models.NewInstanceState(WeekStart(now, loc))
		doc.Instances[key] = st
		return st, nil
	}
	st.Normalize()

	previous := st.Clone()
	if CheckRollover(st, now, loc) {
		t.log.Infow("week rolled over", "instance", key, "from", previous.CurrentWeekStart, "to", st.CurrentWeekStart)
		telemetry.Resets.WithLabelValues(key, "rollover").Inc()
		return st, &rolled{key: key, previous: previous}
	}
	return st, nil
}

// Snapshot returns the current state of key, creating and rolling it over as needed.
func (t *Tracker) Snapshot(ctx context.Context, key, tz string) models.InstanceState {
	var out models.InstanceState
	_ = t.update(ctx, func(doc *models.Document) (*rolled, error) {
		st, roll := t.ensure(doc, key, tz)
		out = st.Clone()
		return roll, nil
	})
	return out
}

// SetCheck marks (value=true, stamped with the local time) or clears a slot.
// The slot's mood is left untouched.
func (t *Tracker) SetCheck(ctx context.Context, key, tz string, day models.Weekday, slot models.Slot, value bool) models.InstanceState {
	var out models.InstanceState
	_ = t.update(ctx, func(doc *models.Document) (*rolled, error) {
		st, roll := t.ensure(doc, key, tz)
		rec := st.Day(day)
		if value {
			rec.Checks[slot] = models.Check{Done: true, At: Stamp(t.clock.Now(), t.location(tz))}
		} else {
			rec.Checks[slot] = models.Check{}
		}
		out = st.Clone()
		return roll, nil
	})
	return out
}

// LogMood stores text verbatim as the mood of day/slot, replacing any previous text.
func (t *Tracker) LogMood(ctx context.Context, key, tz string, day models.Weekday, slot models.Slot, text string) models.InstanceState {
	var out models.InstanceState
	_ = t.update(ctx, func(doc *models.Document) (*rolled, error) {
		st, roll := t.ensure(doc, key, tz)
		st.Day(day).Mood[slot] = text
		out = st.Clone()
		return roll, nil
	})
	return out
}

// ResetWeek moves key to the current week and clears its days. Without force
// it only acts when the stored week is stale. previous is the state right
// before the clear and reset reports whether this call cleared anything, so a
// week already rolled by another trigger is never backed up twice.
func (t *Tracker) ResetWeek(ctx context.Context, key, tz string, force bool) (previous, current models.InstanceState, reset bool) {
	_ = t.update(ctx, func(doc *models.Document) (*rolled, error) {
		previous, reset = models.InstanceState{}, false
		existed := false
		if old, ok := doc.Instances[key]; ok && old != nil {
			old.Normalize()
			previous = old.Clone()
			existed = true
		}
		st, roll := t.ensure(doc, key, tz)
		if roll != nil || (force && existed) {
			st.CurrentWeekStart = WeekStart(t.clock.Now(), t.location(tz))
			st.Days = map[models.Weekday]*models.DayRecord{}
			reset = true
		}
		current = st.Clone()
		// The caller backs up previous itself; the rollover hook stays quiet.
		return nil, nil
	})
	return previous, current, reset
}

// Peek returns the stored state of key without creating or rolling it over.
func (t *Tracker) Peek(ctx context.Context, key string) (models.InstanceState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	doc, err := t.store.Load(ctx)
	if err != nil {
		t.log.Errorw("failed to load medication data", "err", err)
		return models.InstanceState{}, false
	}
	st, ok := doc.Instances[key]
	if !ok || st == nil {
		return models.InstanceState{}, false
	}
	return st.Clone(), true
}

// ShouldReset reports whether key is missing or still on a past week.
func (t *Tracker) ShouldReset(ctx context.Context, key, tz string) bool {
	st, ok := t.Peek(ctx, key)
	if !ok {
		return true
	}
	return st.CurrentWeekStart != WeekStart(t.clock.Now(), t.location(tz))
}

func (t *Tracker) pointers(ctx context.Context, key, tz string, fn func(st *models.InstanceState)) {
	_ = t.update(ctx, func(doc *models.Document) (*rolled, error) {
		st, roll := t.ensure(doc, key, tz)
		fn(st)
		return roll, nil
	})
}

// SetDisplayMessage records msgID as the display message of key in chat ch.
func (t *Tracker) SetDisplayMessage(ctx context.Context, key, tz string, ch int64, msgID int) {
	t.pointers(ctx, key, tz, func(st *models.InstanceState) { st.DisplayMessages[ch] = msgID })
}

// RemoveDisplayMessage forgets the display message of key in chat ch.
func (t *Tracker) RemoveDisplayMessage(ctx context.Context, key, tz string, ch int64) {
	t.pointers(ctx, key, tz, func(st *models.InstanceState) { delete(st.DisplayMessages, ch) })
	telemetry.PointersPruned.WithLabelValues(key).Inc()
	t.log.Infow("removed stale display channel", "instance", key, "chat_id", ch)
}

// SetReminderMessage records msgID as the live reminder of key in chat ch,
// superseding any previous pointer.
func (t *Tracker) SetReminderMessage(ctx context.Context, key, tz string, ch int64, msgID int) {
	t.pointers(ctx, key, tz, func(st *models.InstanceState) { st.ReminderMessages[ch] = msgID })
}

// TakeReminderMessage returns and clears the live reminder pointer of key in chat ch.
func (t *Tracker) TakeReminderMessage(ctx context.Context, key, tz string, ch int64) (int, bool) {
	var (
		id int
		ok bool
	)
	t.pointers(ctx, key, tz, func(st *models.InstanceState) {
		id, ok = st.ReminderMessages[ch]
		delete(st.ReminderMessages, ch)
	})
	return id, ok
}

// Package telemetry provides Prometheus metrics for the medication tracker.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Checks counts check/uncheck mutations by instance, slot and action (check|uncheck).
	Checks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_checks_total",
		Help: "Slot check and uncheck mutations",
	}, []string{"instance", "slot", "action"})

	MoodsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_moods_logged_total",
		Help: "Mood texts stored",
	}, []string{"instance"})

	// Resets counts week resets; reason is rollover, scheduled or forced.
	Resets = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_week_resets_total",
		Help: "Weekly state resets",
	}, []string{"instance", "reason"})

	Backups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_backups_total",
		Help: "Weekly backups delivered to operators, by result",
	}, []string{"instance", "result"})

	DisplayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_display_sync_failures_total",
		Help: "Display message pushes that failed, by error kind",
	}, []string{"instance", "kind"})

	PointersPruned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_display_pointers_pruned_total",
		Help: "Display message pointers removed after the target disappeared",
	}, []string{"instance"})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_reminders_sent_total",
		Help: "Reminder messages sent",
	}, []string{"instance", "slot"})

	RemindersRetracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medbot_reminders_retracted_total",
		Help: "Reminder messages deleted after the slot was checked",
	}, []string{"instance"})

	StoreConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medbot_store_conflicts_total",
		Help: "Optimistic concurrency conflicts on the state document",
	})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medbot_store_duration_seconds",
		Help:    "State document load/save duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

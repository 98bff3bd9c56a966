// Package registry loads the static list of tracked instances from a YAML file.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"telegram-medication-report/internal/models"
)

// Reminder is a scheduled nudge for one slot.
type Reminder struct {
	Time    string `yaml:"time"`    // 5-field cron expression, evaluated in the instance timezone
	Message string `yaml:"message"` // text/template: .Name .Slot .Mention
}

// Instance is one tracked person's configuration.
type Instance struct {
	Key        string                   `yaml:"-"`
	Name       string                   `yaml:"name"`
	Timezone   string                   `yaml:"timezone"`
	Slots      []models.Slot            `yaml:"slots"`
	Channels   []int64                  `yaml:"channels"`
	OperatorID int64                    `yaml:"operator_id"`
	Reminders  map[models.Slot]Reminder `yaml:"reminders,omitempty"`
}

// HasSlot reports whether s is configured.
func (i Instance) HasSlot(s models.Slot) bool {
	for _, x := range i.Slots {
		if x == s {
			return true
		}
	}
	return false
}

// HasChannel reports whether ch is one of the display channels.
func (i Instance) HasChannel(ch int64) bool {
	for _, x := range i.Channels {
		if x == ch {
			return true
		}
	}
	return false
}

// ReminderText renders the reminder template for slot.
func (i Instance) ReminderText(slot models.Slot) (string, bool) {
	r, ok := i.Reminders[slot]
	if !ok {
		return "", false
	}
	tpl, err := template.New("reminder").Parse(r.Message)
	if err != nil {
		return r.Message, true
	}
	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]string{
		"Name":    html.EscapeString(i.Name),
		"Slot":    string(slot),
		"Mention": fmt.Sprintf(`<a href="tg://user?id=%d">hey</a>`, i.OperatorID),
	})
	if err != nil {
		return r.Message, true
	}
	return buf.String(), true
}

type file struct {
	Instances map[string]Instance `yaml:"instances"`
}

// Registry is read-only after Load.
type Registry struct {
	byKey     map[string]Instance
	byChannel map[int64]string
	keys      []string
}

// Load reads and validates the registry file.
func Load(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(b)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse decodes and validates YAML registry content.
func Parse(b []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if len(f.Instances) == 0 {
		return nil, errors.New("registry: no instances configured")
	}

	r := &Registry{
		byKey:     make(map[string]Instance, len(f.Instances)),
		byChannel: map[int64]string{},
	}
	for key, inst := range f.Instances {
		inst.Key = key
		if err := validate(&inst); err != nil {
			return nil, fmt.Errorf("instance %q: %w", key, err)
		}
		for _, ch := range inst.Channels {
			if other, dup := r.byChannel[ch]; dup {
				return nil, fmt.Errorf("channel %d used by both %q and %q", ch, other, key)
			}
			r.byChannel[ch] = key
		}
		r.byKey[key] = inst
		r.keys = append(r.keys, key)
	}
	sort.Strings(r.keys)
	return r, nil
}

func validate(inst *Instance) error {
	if strings.TrimSpace(inst.Name) == "" {
		inst.Name = inst.Key
	}
	if inst.Timezone == "" {
		return errors.New("timezone is required")
	}
	if _, err := time.LoadLocation(inst.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", inst.Timezone, err)
	}
	if len(inst.Channels) == 0 {
		return errors.New("at least one channel is required")
	}
	if len(inst.Slots) == 0 {
		return errors.New("at least one slot is required")
	}

	seen := map[models.Slot]bool{}
	for i, s := range inst.Slots {
		parsed, ok := models.ParseSlot(string(s))
		if !ok {
			return fmt.Errorf("unknown slot %q", s)
		}
		if seen[parsed] {
			return fmt.Errorf("duplicate slot %q", parsed)
		}
		seen[parsed] = true
		inst.Slots[i] = parsed
	}
	// Display order is always AM before PM.
	sort.Slice(inst.Slots, func(a, b int) bool { return inst.Slots[a] < inst.Slots[b] })

	reminders := make(map[models.Slot]Reminder, len(inst.Reminders))
	for key, rem := range inst.Reminders {
		slot, ok := models.ParseSlot(string(key))
		if !ok || !seen[slot] {
			return fmt.Errorf("reminder for unconfigured slot %q", key)
		}
		if _, err := cronParser.Parse(rem.Time); err != nil {
			return fmt.Errorf("reminder %s time %q: %w", slot, rem.Time, err)
		}
		if _, err := template.New("reminder").Parse(rem.Message); err != nil {
			return fmt.Errorf("reminder %s message: %w", slot, err)
		}
		reminders[slot] = rem
	}
	inst.Reminders = reminders
	return nil
}

// Get returns the instance for key.
func (r *Registry) Get(key string) (Instance, bool) {
	inst, ok := r.byKey[key]
	return inst, ok
}

// ByChannel returns the instance that owns chat ch.
func (r *Registry) ByChannel(ch int64) (Instance, bool) {
	key, ok := r.byChannel[ch]
	if !ok {
		return Instance{}, false
	}
	return r.byKey[key], true
}

// All returns every instance ordered by key.
func (r *Registry) All() []Instance {
	out := make([]Instance, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.byKey[k])
	}
	return out
}

// Keys returns instance keys in sorted order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

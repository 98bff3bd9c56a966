package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"telegram-medication-report/internal/models"
)

// ErrConflict is returned by Save when the stored document moved on since it was loaded.
var ErrConflict = errors.New("storage: document version conflict")

// Store persists the whole medication document. Save is a compare-and-swap on
// Document.Version: it succeeds only if the stored version equals doc.Version,
// and bumps doc.Version on success.
type Store interface {
	Load(ctx context.Context) (*models.Document, error)
	Save(ctx context.Context, doc *models.Document) error
}

// legacyDocument is the flat single-instance shape written before instances existed.
type legacyDocument struct {
	CurrentWeekStart string                               `json:"currentWeekStart"`
	Days             map[models.Weekday]*models.DayRecord `json:"days"`
	MessageIDs       map[int64]int                        `json:"messageIds"`
}

// Upgrade decodes raw into the current document shape. A flat legacy document
// (top-level "days", no "instances") is moved under legacyKey. Empty input
// yields an empty document. migrated reports whether a legacy shape was found.
func Upgrade(raw []byte, legacyKey string) (doc *models.Document, migrated bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return models.NewDocument(), false, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}

	_, hasInstances := probe["instances"]
	_, hasDays := probe["days"]

	if hasDays && !hasInstances {
		var legacy legacyDocument
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, false, fmt.Errorf("decode legacy document: %w", err)
		}
		doc = models.NewDocument()
		if legacyKey != "" {
			st := &models.InstanceState{
				CurrentWeekStart: legacy.CurrentWeekStart,
				Days:             legacy.Days,
				DisplayMessages:  legacy.MessageIDs,
			}
			st.Normalize()
			doc.Instances[legacyKey] = st
		}
		return doc, true, nil
	}

	doc = &models.Document{}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	if doc.Instances == nil {
		doc.Instances = map[string]*models.InstanceState{}
	}
	for key, st := range doc.Instances {
		if st == nil {
			delete(doc.Instances, key)
			continue
		}
		st.Normalize()
	}
	return doc, false, nil
}

func encode(doc *models.Document) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// Package ledger provides an append-only history of device events.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/eventbus"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64          `json:"id"`
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
	Source    string         `json:"source,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append records an event. Recording the same event ID twice is a no-op.
func (l *Ledger) Append(ev eventbus.Event) error {
	var payloadJSON []byte
	var err error

	if ev.Data != nil {
		payloadJSON, err = json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = l.db.Exec(`
		INSERT OR IGNORE INTO event_ledger (event_id, event_type, timestamp, payload, source)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ID, string(ev.Type), ts.UTC().UnixMilli(), string(payloadJSON), ev.Source)

	return err
}

// Recorder returns a bus handler that appends every event it receives.
func (l *Ledger) Recorder() eventbus.Handler {
	return func(ev eventbus.Event) {
		if err := l.Append(ev); err != nil {
			log.Error().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to record event")
		}
	}
}

// Recent returns the newest entries, optionally filtered by event type.
func (l *Ledger) Recent(eventType string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if eventType == "" {
		rows, err = l.db.Query(`
			SELECT id, event_id, event_type, timestamp, payload, source
			FROM event_ledger
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = l.db.Query(`
			SELECT id, event_id, event_type, timestamp, payload, source
			FROM event_ledger
			WHERE event_type = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		`, eventType, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	result, err := l.db.Exec(`
		DELETE FROM event_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.EventID, &entry.EventType, &timestamp, &payloadStr, &source)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		if source.Valid {
			entry.Source = source.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

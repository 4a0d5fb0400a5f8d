package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SQLiteBucket is a persistent bucket backed by the kv_store table.
type SQLiteBucket struct {
	db   *sql.DB
	name string
}

// NewSQLiteBucket creates a new SQLite-backed bucket.
func NewSQLiteBucket(db *sql.DB, name string) *SQLiteBucket {
	return &SQLiteBucket{
		db:   db,
		name: name,
	}
}

// Name returns the bucket name.
func (b *SQLiteBucket) Name() string {
	return b.name
}

func nullableMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// Get returns a live value. Expired rows are left for CleanupExpired.
func (b *SQLiteBucket) Get(key string) (string, bool, error) {
	var value string
	err := b.db.QueryRow(`
		SELECT value FROM kv_store
		WHERE bucket = ? AND key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, b.name, key, time.Now().UnixMilli()).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value: %w", err)
	}
	return value, true, nil
}

// Put stores a value.
func (b *SQLiteBucket) Put(key, value string, ttl time.Duration) error {
	now := time.Now()

	_, err := b.db.Exec(`
		INSERT INTO kv_store (bucket, key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, b.name, key, value, nullableMillis(expiry(now, ttl)), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store value: %w", err)
	}
	return nil
}

// Incr increments a counter in a single statement.
func (b *SQLiteBucket) Incr(key string, ttl time.Duration) (int, error) {
	now := time.Now()
	nowMs := now.UnixMilli()

	var value string
	err := b.db.QueryRow(`
		INSERT INTO kv_store (bucket, key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, '1', ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			value = CASE
				WHEN kv_store.expires_at IS NOT NULL AND kv_store.expires_at <= ? THEN '1'
				ELSE CAST(CAST(kv_store.value AS INTEGER) + 1 AS TEXT)
			END,
			expires_at = CASE
				WHEN kv_store.expires_at IS NOT NULL AND kv_store.expires_at <= ? THEN excluded.expires_at
				ELSE kv_store.expires_at
			END,
			updated_at = excluded.updated_at
		RETURNING value
	`, b.name, key, nullableMillis(expiry(now, ttl)), nowMs, nowMs, nowMs, nowMs).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to increment value: %w", err)
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("counter %q holds non-integer %q", key, value)
	}
	return n, nil
}

// Delete removes a key from the bucket.
func (b *SQLiteBucket) Delete(key string) (bool, error) {
	result, err := b.db.Exec(`
		DELETE FROM kv_store WHERE bucket = ? AND key = ?
	`, b.name, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key: %w", err)
	}

	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// Clear removes all keys from the bucket.
func (b *SQLiteBucket) Clear() error {
	_, err := b.db.Exec(`DELETE FROM kv_store WHERE bucket = ?`, b.name)
	if err != nil {
		return fmt.Errorf("failed to clear bucket: %w", err)
	}
	return nil
}

// CleanupExpired removes all expired entries from the database.
func CleanupExpired(db *sql.DB) (int64, error) {
	result, err := db.Exec(`
		DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= ?
	`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired entries: %w", err)
	}

	return result.RowsAffected()
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Outbox entry statuses.
const (
	OutboxSent   = "sent"
	OutboxFailed = "failed"
)

// OutboxEntry records one delivery attempt.
type OutboxEntry struct {
	ID        string
	OwnerMXID string
	ToAddr    string
	Subject   string
	Body      string
	Status    string
	ErrorMsg  string
	TraceID   string
}

// RecordOutbox journals a delivery attempt and returns the generated entry ID.
func (s *Store) RecordOutbox(ctx context.Context, e OutboxEntry) (string, error) {
	id := uuid.New().String()
	var errMsg sql.NullString
	if e.ErrorMsg != "" {
		errMsg = sql.NullString{String: e.ErrorMsg, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, owner_mxid, to_addr, subject, body, status, error_message, trace_id, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, e.OwnerMXID, e.ToAddr, e.Subject, e.Body, e.Status, errMsg, e.TraceID, nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to record outbox entry: %w", err)
	}
	return id, nil
}

// RecentOutbox returns the owner's latest delivery attempts, newest first.
func (s *Store) RecentOutbox(ctx context.Context, ownerMXID string, limit int) ([]OutboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_mxid, to_addr, subject, body, status, COALESCE(error_message, ''), trace_id
		FROM outbox
		WHERE owner_mxid = ?
		ORDER BY sent_at DESC
		LIMIT ?
	`, ownerMXID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.OwnerMXID, &e.ToAddr, &e.Subject, &e.Body, &e.Status, &e.ErrorMsg, &e.TraceID); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

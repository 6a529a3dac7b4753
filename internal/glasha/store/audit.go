package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vkatenev/glasha/common/trace"
)

// AuditEntry is one row in the audit log.
type AuditEntry struct {
	Actor   string
	Action  string
	Target  string
	Payload any
	Result  string
	Error   string
}

// Audit action results.
const (
	AuditOK    = "ok"
	AuditError = "error"
)

// WriteAudit appends an entry to the audit log. The trace ID is taken from
// the context so one user utterance links all the rows it produced.
func (s *Store) WriteAudit(ctx context.Context, e AuditEntry) error {
	var payload sql.NullString
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal audit payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	var target sql.NullString
	if e.Target != "" {
		target = sql.NullString{String: e.Target, Valid: true}
	}
	var errMsg sql.NullString
	if e.Error != "" {
		errMsg = sql.NullString{String: e.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (ts, trace_id, actor_mxid, action, target, payload_json, result, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, nowUTC(), trace.FromContext(ctx), e.Actor, e.Action, target, payload, e.Result, errMsg)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

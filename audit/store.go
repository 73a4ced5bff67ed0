package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store persists audit events in a SQLite database. It implements both
// Recorder and Source.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the audit database at path. Use
// ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_events (
			id              TEXT PRIMARY KEY,
			event_type      TEXT NOT NULL,
			document_id     TEXT,
			signer_id       TEXT,
			user_email      TEXT,
			ip_address      TEXT,
			user_agent      TEXT,
			session_id      TEXT,
			event_metadata  TEXT,
			event_timestamp DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_document ON audit_events(document_id);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(event_timestamp);
	`)
	if err != nil {
		return fmt.Errorf("creating audit_events table: %w", err)
	}
	return nil
}

// Record inserts an event into the trail.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.ID == "" {
		return fmt.Errorf("audit event missing id")
	}
	if e.Type == "" {
		return fmt.Errorf("audit event missing type")
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var metadata sql.NullString
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding event metadata: %w", err)
		}
		metadata = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, event_type, document_id, signer_id, user_email, ip_address, user_agent, session_id, event_metadata, event_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), nullable(e.DocumentID), nullable(e.SignerID), nullable(e.UserEmail),
		nullable(e.IPAddress), nullable(e.UserAgent), nullable(e.SessionID), metadata,
		e.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// Events returns matching events, newest first unless the filter asks for
// ascending order.
func (s *Store) Events(ctx context.Context, f Filter) ([]Event, error) {
	var where []string
	var args []any

	if f.DocumentID != "" {
		where = append(where, "document_id = ?")
		args = append(args, f.DocumentID)
	}
	if f.Type != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(f.Type))
	}
	if f.UserEmail != "" {
		where = append(where, "user_email LIKE ?")
		args = append(args, "%"+f.UserEmail+"%")
	}
	if !f.Start.IsZero() {
		where = append(where, "event_timestamp >= ?")
		args = append(args, f.Start.UTC().Format(time.RFC3339Nano))
	}
	if !f.End.IsZero() {
		where = append(where, "event_timestamp <= ?")
		args = append(args, f.End.UTC().Format(time.RFC3339Nano))
	}

	query := "SELECT id, event_type, document_id, signer_id, user_email, ip_address, user_agent, session_id, event_metadata, event_timestamp FROM audit_events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	order := "DESC"
	if f.Ascending {
		order = "ASC"
	}
	query += " ORDER BY event_timestamp " + order

	// SQLite treats a negative LIMIT as unbounded.
	limit := f.Limit
	if limit == 0 {
		limit = 50
	} else if limit < 0 {
		limit = -1
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var eventType, ts string
		var docID, signerID, email, ip, ua, session, metadata sql.NullString

		if err := rows.Scan(&e.ID, &eventType, &docID, &signerID, &email, &ip, &ua, &session, &metadata, &ts); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}

		e.Type = EventType(eventType)
		e.DocumentID = docID.String
		e.SignerID = signerID.String
		e.UserEmail = email.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.SessionID = session.String

		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding event metadata: %w", err)
			}
		}

		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp %q: %w", ts, err)
		}

		events = append(events, e)
	}
	return events, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one immutable row of an evaluation record's approval trail.
// Entries are only ever appended; there is no update or delete path.
type Entry struct {
	ID         string    `json:"id"`
	RecordID   string    `json:"recordId"`
	RecordType string    `json:"recordType"`
	Action     string    `json:"action"`
	ActorName  string    `json:"actorName"`
	ActorRole  string    `json:"actorRole"`
	Comments   string    `json:"comments,omitempty"`
	TargetRole string    `json:"targetRole,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx, so a transition can
// append its history entry inside the same transaction as its status write.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func Append(ctx context.Context, db Execer, entry Entry) error {
	_, err := db.Exec(ctx, `
    INSERT INTO evaluation_history (id, record_id, record_type, action, actor_name, actor_role, comments, target_role, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, entry.ID, entry.RecordID, entry.RecordType, entry.Action, entry.ActorName, entry.ActorRole, entry.Comments, entry.TargetRole, entry.CreatedAt)
	return err
}

type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

// ListByRecord returns a record's trail ordered oldest first.
func (s *Service) ListByRecord(ctx context.Context, recordType, recordID string) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, record_id, record_type, action, actor_name, actor_role, comments, target_role, created_at
    FROM evaluation_history
    WHERE record_type = $1 AND record_id = $2
    ORDER BY created_at ASC, id ASC
  `, recordType, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.RecordID, &entry.RecordType, &entry.Action, &entry.ActorName, &entry.ActorRole, &entry.Comments, &entry.TargetRole, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *Service) LastEntry(ctx context.Context, recordType, recordID string) (Entry, bool, error) {
	var entry Entry
	err := s.DB.QueryRow(ctx, `
    SELECT id, record_id, record_type, action, actor_name, actor_role, comments, target_role, created_at
    FROM evaluation_history
    WHERE record_type = $1 AND record_id = $2
    ORDER BY created_at DESC, id DESC
    LIMIT 1
  `, recordType, recordID).Scan(&entry.ID, &entry.RecordID, &entry.RecordType, &entry.Action, &entry.ActorName, &entry.ActorRole, &entry.Comments, &entry.TargetRole, &entry.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

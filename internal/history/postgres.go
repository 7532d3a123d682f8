package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shoptalk/shoptalk/internal/fault"
)

// PostgresStore persists turns in the chat_turns table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_turns (session_id, role, text, created_at) VALUES ($1, $2, $3, $4)`,
		sessionID, turn.Role, turn.Text, turn.Timestamp,
	)
	if err != nil {
		return fault.Wrap(fault.Persistence, err, "append turn for session %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.Query(ctx,
		`SELECT role, text, created_at FROM chat_turns
		 WHERE session_id = $1
		 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, err, "fetch history for session %s", sessionID)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Text, &t.Timestamp); err != nil {
			return nil, fault.Wrap(fault.Persistence, err, "scan turn")
		}
		// Malformed rows are dropped, not fatal to retrieval.
		if t.Role == "" || t.Text == "" {
			slog.Warn("skipping malformed stored turn", "session_id", sessionID)
			continue
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *PostgresStore) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM chat_turns WHERE created_at < $1`,
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return 0, fault.Wrap(fault.Persistence, err, "prune turns")
	}
	return int(tag.RowsAffected()), nil
}

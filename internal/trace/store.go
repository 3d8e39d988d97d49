package trace

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"halyard/internal/logging"
	"halyard/internal/transport"
)

// Store manages trace persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Row is one recorded message.
type Row struct {
	ID         int64
	LinkID     string
	Direction  string
	Channel    string
	Service    uint8
	Opcode     uint8
	PayloadLen int
	Status     uint8
	HasFD      bool
	At         time.Time
}

// Open initializes or connects to the trace database and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure trace directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "trace")}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS messages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        link_id TEXT NOT NULL,
        direction TEXT NOT NULL,
        channel TEXT NOT NULL,
        service INTEGER NOT NULL,
        opcode INTEGER NOT NULL,
        payload_len INTEGER NOT NULL,
        status INTEGER NOT NULL,
        has_fd INTEGER NOT NULL,
        recorded_at TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_messages_link ON messages(link_id);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply trace schema: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordMessage implements transport.MessageTap. Recording runs on the
// transport's hot paths, so failures are logged and swallowed rather than
// propagated into the link.
func (s *Store) RecordMessage(m transport.Message) {
	_, err := s.db.Exec(
		`INSERT INTO messages (
            link_id, direction, channel, service, opcode,
            payload_len, status, has_fd, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.LinkID,
		string(m.Direction),
		string(m.Channel),
		int(m.Service),
		int(m.Opcode),
		m.PayloadLen,
		int(m.Status),
		boolToInt(m.HasFD),
		m.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn("trace record failed", logging.Error(err))
	}
}

// List returns the most recent rows, newest first, bounded by limit.
func (s *Store) List(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, link_id, direction, channel, service, opcode,
                payload_len, status, has_fd, recorded_at
         FROM messages ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trace rows: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			row      Row
			service  int
			opcode   int
			status   int
			hasFD    int
			recorded string
		)
		if err := rows.Scan(&row.ID, &row.LinkID, &row.Direction, &row.Channel,
			&service, &opcode, &row.PayloadLen, &status, &hasFD, &recorded); err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		row.Service = uint8(service)
		row.Opcode = uint8(opcode)
		row.Status = uint8(status)
		row.HasFD = hasFD != 0
		if ts, perr := time.Parse(time.RFC3339Nano, recorded); perr == nil {
			row.At = ts
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace rows: %w", err)
	}
	return result, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

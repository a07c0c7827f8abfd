package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS translation_run (
	id          uuid PRIMARY KEY,
	kind        text        NOT NULL,
	status      text        NOT NULL,
	file_name   text,
	languages   jsonb       NOT NULL DEFAULT '[]',
	units       integer     NOT NULL DEFAULT 0,
	applied     integer     NOT NULL DEFAULT 0,
	failed      integer     NOT NULL DEFAULT 0,
	errors      jsonb       NOT NULL DEFAULT '{}',
	archive_key text,
	ip_address  text,
	user_agent  text,
	error       text,
	started_at  timestamptz NOT NULL,
	finished_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS translation_run_started_at_idx ON translation_run (started_at DESC);
`

const runColumns = `id, kind, status, file_name, languages, units, applied, failed,
	errors, archive_key, ip_address, user_agent, error, started_at, finished_at`

// PostgresStore persists runs in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store over pool. Call Migrate before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the run table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate history: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	langs, err := json.Marshal(run.Languages)
	if err != nil {
		return fmt.Errorf("encode languages: %w", err)
	}
	if run.Errors == nil {
		run.Errors = map[string]int{}
	}
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO translation_run (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			units = EXCLUDED.units,
			applied = EXCLUDED.applied,
			failed = EXCLUDED.failed,
			errors = EXCLUDED.errors,
			archive_key = EXCLUDED.archive_key,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at`,
		run.ID, string(run.Kind), string(run.Status), toPgText(run.FileName), langs,
		run.Units, run.Applied, run.Failed, errs, toPgText(run.ArchiveKey),
		toPgText(run.IPAddress), toPgText(run.UserAgent), toPgText(run.Error),
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM translation_run WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM translation_run ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM translation_run WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		run                                    Run
		id                                     pgtype.UUID
		kind, status                           string
		fileName, archiveKey, ip, agent, errTx pgtype.Text
		langs, errs                            []byte
	)
	if err := row.Scan(&id, &kind, &status, &fileName, &langs, &run.Units, &run.Applied, &run.Failed,
		&errs, &archiveKey, &ip, &agent, &errTx, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}

	run.ID = uuidString(id)
	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.FileName = fileName.String
	run.ArchiveKey = archiveKey.String
	run.IPAddress = ip.String
	run.UserAgent = agent.String
	run.Error = errTx.String
	if err := json.Unmarshal(langs, &run.Languages); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}
	if err := json.Unmarshal(errs, &run.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	return &run, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

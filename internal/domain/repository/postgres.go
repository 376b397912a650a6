package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"mapdesc_service/internal/domain/model"
)

// ErrRunNotFound is returned by Get for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const runSchema = `
	CREATE TABLE IF NOT EXISTS description_runs (
		id           TEXT PRIMARY KEY,
		input_name   TEXT NOT NULL,
		features     INTEGER NOT NULL,
		classified   INTEGER NOT NULL,
		ignored      INTEGER NOT NULL,
		unclassified INTEGER NOT NULL,
		class_counts TEXT NOT NULL,
		elapsed_ms   BIGINT NOT NULL,
		created_at   TEXT NOT NULL
	)`

// createdLayout is fixed width so that created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

type runRow struct {
	ID           string `db:"id"`
	InputName    string `db:"input_name"`
	Features     int    `db:"features"`
	Classified   int    `db:"classified"`
	Ignored      int    `db:"ignored"`
	Unclassified int    `db:"unclassified"`
	ClassCounts  string `db:"class_counts"`
	ElapsedMS    int64  `db:"elapsed_ms"`
	CreatedAt    string `db:"created_at"`
}

// SQLRunStore keeps description runs in Postgres or SQLite.
type SQLRunStore struct {
	db *sqlx.DB
}

// NewRunStore connects with driver "postgres" or "sqlite" and creates the
// schema when missing.
func NewRunStore(ctx context.Context, driver, dsn string) (*SQLRunStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// :memory: живёт в рамках одного соединения
		db.SetMaxOpenConns(1)
	}
	store := &SQLRunStore{db: db}
	if _, err := db.ExecContext(ctx, runSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

func (s *SQLRunStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run, assigning an id and timestamp when unset.
func (s *SQLRunStore) SaveRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	counts, err := json.Marshal(run.ClassCounts)
	if err != nil {
		return fmt.Errorf("failed to marshal class counts: %w", err)
	}

	query := s.db.Rebind(`
		INSERT INTO description_runs (
			id, input_name,
			features, classified, ignored, unclassified,
			class_counts, elapsed_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.InputName,
		run.Features, run.Classified, run.Ignored, run.Unclassified,
		string(counts), run.Elapsed.Milliseconds(), run.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (s *SQLRunStore) Get(ctx context.Context, id string) (*model.Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM description_runs WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return row.toModel()
}

// List returns the latest runs, newest first.
func (s *SQLRunStore) List(ctx context.Context, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	query := s.db.Rebind(`SELECT * FROM description_runs ORDER BY created_at DESC, id LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	runs := make([]*model.Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r runRow) toModel() (*model.Run, error) {
	run := &model.Run{
		ID:           r.ID,
		InputName:    r.InputName,
		Features:     r.Features,
		Classified:   r.Classified,
		Ignored:      r.Ignored,
		Unclassified: r.Unclassified,
		Elapsed:      time.Duration(r.ElapsedMS) * time.Millisecond,
	}
	if err := json.Unmarshal([]byte(r.ClassCounts), &run.ClassCounts); err != nil {
		return nil, fmt.Errorf("invalid class counts of run %s: %w", r.ID, err)
	}
	created, err := time.Parse(createdLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp of run %s: %w", r.ID, err)
	}
	run.CreatedAt = created
	return run, nil
}

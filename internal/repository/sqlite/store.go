package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"votetally/internal/domain/generation"
	"votetally/internal/domain/option"
	"votetally/internal/domain/vote"
	"votetally/internal/platform/database"
	"votetally/internal/repository/sqlite/migrations"
)

// ErrClosed is returned by every operation attempted while no generation is open,
// either after Close or after a reset that failed midway.
var ErrClosed = errors.New("store is not open")

const timeLayout = "2006-01-02 15:04:05"

// Clock abstracts time retrieval so timestamps and backup names are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store is the single owner of the live store file. All access goes through mu:
// writes and reset take it exclusively, tally reads share it.
type Store struct {
	mu    sync.RWMutex
	db    *sql.DB
	path  string
	clock Clock
}

type StoreOption func(*Store)

func WithClock(c Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// New returns a Store for the file at path. Nothing is opened until Init.
func New(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, clock: realClock{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Path() string {
	return s.path
}

// Init opens the live generation if needed and brings its schema up to date.
// It is safe to call more than once.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initLocked(ctx)
}

func (s *Store) initLocked(ctx context.Context) error {
	if s.db == nil {
		db, err := database.OpenSQLite(s.path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.db = db
	}
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrations.MigrateUp(s.db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close releases the live handle. Later operations fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.db.PingContext(ctx)
}

func (s *Store) AddOption(ctx context.Context, text string) (option.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return option.Option{}, ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return option.Option{}, err
	}
	defer tx.Rollback()

	_, err = liveOptionID(ctx, tx, text)
	switch {
	case err == nil:
		return option.Option{}, fmt.Errorf("add %q: %w", text, option.ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return option.Option{}, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO options (text) VALUES (?)`, text)
	if err != nil {
		if isUniqueViolation(err) {
			return option.Option{}, fmt.Errorf("add %q: %w", text, option.ErrConflict)
		}
		return option.Option{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return option.Option{}, err
	}
	if err := tx.Commit(); err != nil {
		return option.Option{}, err
	}
	return option.Option{ID: id, Text: text}, nil
}

// DeleteOption retires the live option named text. Its votes are left untouched.
func (s *Store) DeleteOption(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id, err := liveOptionID(ctx, tx, text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete %q: %w", text, option.ErrNotFound)
		}
		return err
	}

	now := s.clock.Now().UTC().Format(timeLayout)
	res, err := tx.ExecContext(ctx, `UPDATE options SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("delete %q: expected 1 row, updated %d", text, n)
	}
	return tx.Commit()
}

// CastVote records a vote for the live option named b.Option. Votes for text that
// only matches soft-deleted options are rejected like unknown text.
func (s *Store) CastVote(ctx context.Context, b vote.Ballot) (vote.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return vote.Receipt{}, ErrClosed
	}

	optionID, err := liveOptionID(ctx, s.db, b.Option)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vote.Receipt{}, fmt.Errorf("vote for %q: %w", b.Option, vote.ErrOptionNotFound)
		}
		return vote.Receipt{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO votes (option_id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		optionID, nullString(b.Email), nullString(b.Name), s.clock.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return vote.Receipt{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return vote.Receipt{}, err
	}
	return vote.Receipt{ID: id, OptionID: optionID, Text: b.Option}, nil
}

// Tally counts votes per live option, most votes first, ties by ascending id.
func (s *Store) Tally(ctx context.Context) ([]option.Count, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT o.id, o.text, COUNT(v.id) AS votes
        FROM options o
        LEFT JOIN votes v ON v.option_id = o.id
        WHERE o.deleted_at IS NULL
        GROUP BY o.id, o.text
        ORDER BY votes DESC, o.id ASC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]option.Count, 0)
	for rows.Next() {
		var c option.Count
		if err := rows.Scan(&c.ID, &c.Text, &c.Votes); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// Option loads an option by id, including soft-deleted ones.
func (s *Store) Option(ctx context.Context, id int64) (option.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return option.Option{}, ErrClosed
	}

	var (
		o         option.Option
		deletedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, text, deleted_at FROM options WHERE id = ?`, id).
		Scan(&o.ID, &o.Text, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return option.Option{}, option.ErrNotFound
		}
		return option.Option{}, err
	}
	if deletedAt.Valid {
		t, err := time.Parse(timeLayout, deletedAt.String)
		if err != nil {
			return option.Option{}, fmt.Errorf("parse deleted_at: %w", err)
		}
		o.DeletedAt = &t
	}
	return o, nil
}

// VoteCount counts the votes attributed to an option id regardless of its lifecycle.
func (s *Store) VoteCount(ctx context.Context, optionID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE option_id = ?`, optionID).Scan(&n)
	return n, err
}

// Reset closes the live generation, renames its file to a timestamped backup in the
// same directory and initializes a fresh empty generation at the original path.
// If any step fails the store stays closed.
func (s *Store) Reset(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return "", generation.ErrNotInitialized
	}

	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return "", fmt.Errorf("close live generation: %w", err)
	}

	backup := s.freeBackupPath()
	if err := os.Rename(s.path, backup); err != nil {
		return "", fmt.Errorf("retire live generation: %w", err)
	}

	if err := s.initLocked(ctx); err != nil {
		return "", fmt.Errorf("initialize new generation: %w", err)
	}
	return backup, nil
}

// freeBackupPath never names an existing file, so a retired generation is never
// overwritten by one retired within the same millisecond.
func (s *Store) freeBackupPath() string {
	t := s.clock.Now()
	for {
		p := BackupPath(s.path, t)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		t = t.Add(time.Millisecond)
	}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func liveOptionID(ctx context.Context, q queryer, text string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM options WHERE deleted_at IS NULL AND text = ?`, text).Scan(&id)
	return id, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

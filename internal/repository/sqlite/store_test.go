package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"votetally/internal/domain/generation"
	"votetally/internal/domain/option"
	"votetally/internal/domain/vote"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *stubClock) {
	t.Helper()
	clock := &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	s := New(filepath.Join(t.TempDir(), "votes.db"), WithClock(clock))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func mustAdd(t *testing.T, s *Store, text string) option.Option {
	t.Helper()
	o, err := s.AddOption(context.Background(), text)
	if err != nil {
		t.Fatalf("AddOption(%q): %v", text, err)
	}
	return o
}

func mustVote(t *testing.T, s *Store, text string) vote.Receipt {
	t.Helper()
	r, err := s.CastVote(context.Background(), vote.Ballot{Option: text})
	if err != nil {
		t.Fatalf("CastVote(%q): %v", text, err)
	}
	return r
}

func countRows(t *testing.T, db *sql.DB, q string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func TestInitIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	mustAdd(t, s, "React")

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
	tally, err := s.Tally(context.Background())
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if len(tally) != 1 {
		t.Fatalf("expected data to survive re-init, got %+v", tally)
	}
}

func TestAddOptionsDistinctIDs(t *testing.T) {
	s, _ := newTestStore(t)

	texts := []string{"React", "Vue", "Angular", "Svelte"}
	seen := make(map[int64]bool)
	for _, text := range texts {
		o := mustAdd(t, s, text)
		if seen[o.ID] {
			t.Fatalf("id %d reused", o.ID)
		}
		seen[o.ID] = true
	}

	tally, err := s.Tally(context.Background())
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if len(tally) != len(texts) {
		t.Fatalf("expected %d options, got %d", len(texts), len(tally))
	}
	for i, c := range tally {
		if c.Text != texts[i] || c.Votes != 0 {
			t.Fatalf("unexpected tally row %d: %+v", i, c)
		}
		if i > 0 && tally[i-1].ID >= c.ID {
			t.Fatalf("expected ascending ids for equal counts: %+v", tally)
		}
	}
}

func TestAddOptionConflict(t *testing.T) {
	s, _ := newTestStore(t)
	mustAdd(t, s, "X")

	_, err := s.AddOption(context.Background(), "X")
	if !errors.Is(err, option.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if n := countRows(t, s.db, `SELECT COUNT(*) FROM options WHERE text = 'X' AND deleted_at IS NULL`); n != 1 {
		t.Fatalf("expected exactly one live X, got %d", n)
	}
}

func TestDeleteUnknownOption(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.DeleteOption(context.Background(), "ghost")
	if !errors.Is(err, option.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteThenReAddKeepsHistory(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	original := mustAdd(t, s, "X")
	mustVote(t, s, "X")
	mustVote(t, s, "X")

	clock.Advance(time.Minute)
	if err := s.DeleteOption(ctx, "X"); err != nil {
		t.Fatalf("DeleteOption: %v", err)
	}

	retired, err := s.Option(ctx, original.ID)
	if err != nil {
		t.Fatalf("Option: %v", err)
	}
	if retired.Live() || !retired.DeletedAt.Equal(clock.Now().Truncate(time.Second)) {
		t.Fatalf("expected deleted_at %v, got %+v", clock.Now(), retired)
	}

	replacement := mustAdd(t, s, "X")
	if replacement.ID == original.ID {
		t.Fatalf("expected a new id, got %d again", replacement.ID)
	}

	n, err := s.VoteCount(ctx, original.ID)
	if err != nil {
		t.Fatalf("VoteCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 historical votes on retired option, got %d", n)
	}

	tally, err := s.Tally(ctx)
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	if len(tally) != 1 || tally[0].ID != replacement.ID || tally[0].Votes != 0 {
		t.Fatalf("expected only the fresh X with 0 votes, got %+v", tally)
	}
}

func TestDeleteTouchesOnlyLiveRow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAdd(t, s, "X")
	if err := s.DeleteOption(ctx, "X"); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	mustAdd(t, s, "X")
	if err := s.DeleteOption(ctx, "X"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if err := s.DeleteOption(ctx, "X"); !errors.Is(err, option.ErrNotFound) {
		t.Fatalf("expected not found once no live X remains, got %v", err)
	}
	if n := countRows(t, s.db, `SELECT COUNT(*) FROM options WHERE deleted_at IS NOT NULL`); n != 2 {
		t.Fatalf("expected two retired rows, got %d", n)
	}
}

func TestCastVoteUnknownOption(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.CastVote(context.Background(), vote.Ballot{Option: "X"})
	if !errors.Is(err, vote.ErrOptionNotFound) {
		t.Fatalf("expected option not found, got %v", err)
	}
	if n := countRows(t, s.db, `SELECT COUNT(*) FROM votes`); n != 0 {
		t.Fatalf("expected no vote rows, got %d", n)
	}
}

func TestCastVoteForRetiredOptionRejected(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustAdd(t, s, "X")
	if err := s.DeleteOption(ctx, "X"); err != nil {
		t.Fatalf("DeleteOption: %v", err)
	}

	_, err := s.CastVote(ctx, vote.Ballot{Option: "X"})
	if !errors.Is(err, vote.ErrOptionNotFound) {
		t.Fatalf("expected retired option to reject votes, got %v", err)
	}
}

func TestCastVoteStoresContactInfo(t *testing.T) {
	s, _ := newTestStore(t)
	mustAdd(t, s, "X")

	with, err := s.CastVote(context.Background(), vote.Ballot{Option: "X", Email: "a@b.c", Name: "Ann"})
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	if with.Text != "X" || with.ID == 0 {
		t.Fatalf("unexpected receipt %+v", with)
	}
	without := mustVote(t, s, "X")

	var email, name sql.NullString
	if err := s.db.QueryRow(`SELECT email, name FROM votes WHERE id = ?`, with.ID).Scan(&email, &name); err != nil {
		t.Fatalf("read vote: %v", err)
	}
	if email.String != "a@b.c" || name.String != "Ann" {
		t.Fatalf("unexpected contact info %v %v", email, name)
	}
	if err := s.db.QueryRow(`SELECT email, name FROM votes WHERE id = ?`, without.ID).Scan(&email, &name); err != nil {
		t.Fatalf("read vote: %v", err)
	}
	if email.Valid || name.Valid {
		t.Fatalf("expected NULL contact info, got %v %v", email, name)
	}
}

func TestTallyOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := mustAdd(t, s, "A")
	b := mustAdd(t, s, "B")
	c := mustAdd(t, s, "C")
	mustVote(t, s, "C")
	mustVote(t, s, "C")
	mustVote(t, s, "B")
	mustVote(t, s, "A")

	tally, err := s.Tally(ctx)
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	want := []option.Count{
		{ID: c.ID, Text: "C", Votes: 2},
		{ID: a.ID, Text: "A", Votes: 1},
		{ID: b.ID, Text: "B", Votes: 1},
	}
	if len(tally) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), tally)
	}
	for i := range want {
		if tally[i] != want[i] {
			t.Fatalf("row %d: expected %+v, got %+v", i, want[i], tally[i])
		}
	}
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	s, _ := newTestStore(t)
	mustAdd(t, s, "A")
	mustAdd(t, s, "B")

	const perOption = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*perOption)
	for i := 0; i < perOption; i++ {
		for _, text := range []string{"A", "B"} {
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				if _, err := s.CastVote(context.Background(), vote.Ballot{Option: text}); err != nil {
					errs <- err
				}
			}(text)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent vote failed: %v", err)
	}

	tally, err := s.Tally(context.Background())
	if err != nil {
		t.Fatalf("Tally: %v", err)
	}
	for _, c := range tally {
		if c.Votes != perOption {
			t.Fatalf("expected %d votes for %s, got %d", perOption, c.Text, c.Votes)
		}
	}
}

func TestReferencedOptionCannotBeHardDeleted(t *testing.T) {
	s, _ := newTestStore(t)
	o := mustAdd(t, s, "X")
	mustVote(t, s, "X")

	if _, err := s.db.Exec(`DELETE FROM options WHERE id = ?`, o.ID); err == nil {
		t.Fatalf("expected foreign key to reject deleting a voted option")
	}
}

func TestResetEmptiesStoreAndKeepsBackup(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	mustAdd(t, s, "X")
	mustVote(t, s, "X")

	backup, err := s.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if want := BackupPath(s.Path(), clock.Now()); backup != want {
		t.Fatalf("expected backup %s, got %s", want, backup)
	}

	tally, err := s.Tally(ctx)
	if err != nil {
		t.Fatalf("Tally after reset: %v", err)
	}
	if len(tally) != 0 {
		t.Fatalf("expected empty tally, got %+v", tally)
	}

	old, err := sql.Open("sqlite3", backup)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer old.Close()
	if n := countRows(t, old, `SELECT COUNT(*) FROM votes`); n != 1 {
		t.Fatalf("expected backup to keep 1 vote, got %d", n)
	}

	backups, err := s.Backups()
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(backups) != 1 || backups[0].Path != backup {
		t.Fatalf("expected exactly one backup, got %+v", backups)
	}
}

func TestResetProducesOneBackupPerCall(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustAdd(t, s, "X")
		if _, err := s.Reset(ctx); err != nil {
			t.Fatalf("Reset %d: %v", i, err)
		}
		clock.Advance(1500 * time.Millisecond)

		backups, err := s.Backups()
		if err != nil {
			t.Fatalf("Backups: %v", err)
		}
		if len(backups) != i+1 {
			t.Fatalf("expected %d backups, got %d", i+1, len(backups))
		}
	}
}

func TestResetSameInstantKeepsBothBackups(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	second, err := s.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct backup names, both %s", first)
	}
	backups, err := s.Backups()
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
}

func TestResetWithoutInit(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "votes.db"))

	_, err := s.Reset(context.Background())
	if !errors.Is(err, generation.ErrNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
}

func TestResetFailureLeavesStoreClosed(t *testing.T) {
	s, _ := newTestStore(t)
	mustAdd(t, s, "X")

	if err := os.Remove(s.Path()); err != nil {
		t.Fatalf("remove live file: %v", err)
	}

	if _, err := s.Reset(context.Background()); err == nil {
		t.Fatalf("expected reset to fail when the live file is gone")
	}
	if _, err := s.Tally(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected closed store after failed reset, got %v", err)
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := s.AddOption(ctx, "X"); !errors.Is(err, ErrClosed) {
		t.Fatalf("AddOption: expected ErrClosed, got %v", err)
	}
	if err := s.DeleteOption(ctx, "X"); !errors.Is(err, ErrClosed) {
		t.Fatalf("DeleteOption: expected ErrClosed, got %v", err)
	}
	if _, err := s.CastVote(ctx, vote.Ballot{Option: "X"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("CastVote: expected ErrClosed, got %v", err)
	}
	if _, err := s.Tally(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Tally: expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestBackupPathFormat(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 5, 2, 42*int(time.Millisecond), time.UTC)

	got := BackupPath(filepath.Join("data", "votes.db"), ts)
	want := filepath.Join("data", "votes_2025-03-07_09-05-02_042.db")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestListBackupsIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "votes.db")
	for _, name := range []string{
		"votes.db",
		"votes_2025-03-07_09-05-02_042.db",
		"votes_2025-03-08_09-05-02_000.db",
		"votes_latest.db",
		"other_2025-03-07_09-05-02_042.db",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	backups, err := ListBackups(live)
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %+v", backups)
	}
	if backups[0].Name != "votes_2025-03-07_09-05-02_042.db" {
		t.Fatalf("expected oldest first, got %s", backups[0].Name)
	}
}

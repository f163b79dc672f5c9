package generation

import (
	"context"
	"errors"
	"testing"
)

type fakeRepo struct {
	resets  int
	err     error
	backups []Backup
}

func (r *fakeRepo) Reset(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.resets++
	return "/data/votes_backup.db", nil
}

func (r *fakeRepo) Backups() ([]Backup, error) {
	return r.backups, nil
}

type countingNotifier struct{ calls int }

func (n *countingNotifier) Broadcast(context.Context) { n.calls++ }

type recordingArchiver struct {
	paths []string
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, path string) error {
	a.paths = append(a.paths, path)
	return a.err
}

func TestResetNotifiesArchivesAndRunsHook(t *testing.T) {
	repo := &fakeRepo{}
	n := &countingNotifier{}
	arch := &recordingArchiver{}
	hooks := 0
	svc := NewService(repo, n, WithArchiver(arch), WithResetHook(func() { hooks++ }))

	backup, err := svc.Reset(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if backup != "/data/votes_backup.db" {
		t.Fatalf("unexpected backup %q", backup)
	}
	if n.calls != 1 || hooks != 1 {
		t.Fatalf("expected one broadcast and one hook, got %d and %d", n.calls, hooks)
	}
	if len(arch.paths) != 1 || arch.paths[0] != backup {
		t.Fatalf("expected backup archived, got %v", arch.paths)
	}
}

func TestResetArchiveFailureIsNotAnError(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("bucket gone")}
	svc := NewService(&fakeRepo{}, nil, WithArchiver(arch))

	if _, err := svc.Reset(context.Background()); err != nil {
		t.Fatalf("expected archive failure to be swallowed, got %v", err)
	}
}

func TestResetNotInitializedIsNotFatal(t *testing.T) {
	n := &countingNotifier{}
	svc := NewService(&fakeRepo{err: ErrNotInitialized}, n)

	_, err := svc.Reset(context.Background())
	if !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if IsFatal(err) {
		t.Fatalf("expected non-fatal error")
	}
	if n.calls != 0 {
		t.Fatalf("expected no broadcast")
	}
}

func TestResetFailureIsFatal(t *testing.T) {
	cause := errors.New("rename: permission denied")
	var fatalErr error
	svc := NewService(&fakeRepo{err: cause}, nil, WithFatal(func(err error) { fatalErr = err }))

	_, err := svc.Reset(context.Background())
	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}

	svc.Fatal(err)
	if fatalErr != err {
		t.Fatalf("expected injected fatal handler to receive the error")
	}
}

func TestBackupsPassThrough(t *testing.T) {
	repo := &fakeRepo{backups: []Backup{{Name: "votes_1.db"}}}
	got, err := NewService(repo, nil).Backups()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 1 || got[0].Name != "votes_1.db" {
		t.Fatalf("unexpected backups %+v", got)
	}
}

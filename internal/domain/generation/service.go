package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

var ErrNotInitialized = errors.New("store not initialized")

// FatalError marks a reset that failed after the live generation was taken out of
// service. The store may be half-reset; the process must not keep serving.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("reset failed: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

type Service struct {
	repo     Repository
	notifier Notifier
	archiver Archiver
	fatal    func(error)
	onReset  func()
}

type Option func(*Service)

// WithArchiver ships each backup file after a successful reset.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithFatal replaces the default exit-on-failure handler.
func WithFatal(fn func(error)) Option {
	return func(s *Service) { s.fatal = fn }
}

// WithResetHook runs fn after every successful reset.
func WithResetHook(fn func()) Option {
	return func(s *Service) { s.onReset = fn }
}

func NewService(repo Repository, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: notifier,
		fatal:    exit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset retires the live generation into a timestamped backup and starts an empty
// one. Errors other than ErrNotInitialized come back as *FatalError; the caller is
// expected to report them and then call Fatal.
func (s *Service) Reset(ctx context.Context) (string, error) {
	backup, err := s.repo.Reset(ctx)
	if err != nil {
		if errors.Is(err, ErrNotInitialized) {
			return "", err
		}
		return "", &FatalError{Err: err}
	}
	slog.Info("store reset", "backup", backup)

	if s.onReset != nil {
		s.onReset()
	}
	if s.notifier != nil {
		s.notifier.Broadcast(ctx)
	}
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, backup); err != nil {
			slog.Error("archive backup", "backup", backup, "error", err)
		}
	}
	return backup, nil
}

func (s *Service) Backups() ([]Backup, error) {
	return s.repo.Backups()
}

// Fatal terminates the process after an unrecoverable reset failure.
func (s *Service) Fatal(err error) {
	s.fatal(err)
}

func exit(err error) {
	slog.Error("unrecoverable store failure, exiting", "error", err)
	os.Exit(1)
}

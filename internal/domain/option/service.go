package option

import (
	"context"
	"errors"
	"log/slog"
)

var (
	ErrTextRequired = errors.New("option text is required")
	ErrConflict     = errors.New("option already exists")
	ErrNotFound     = errors.New("option does not exist")
)

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

func (s *Service) Add(ctx context.Context, text string) (Option, error) {
	if text == "" {
		return Option{}, ErrTextRequired
	}
	opt, err := s.repo.AddOption(ctx, text)
	if err != nil {
		return Option{}, err
	}
	slog.Info("option added", "option", text, "id", opt.ID)
	s.notify(ctx)
	return opt, nil
}

func (s *Service) Delete(ctx context.Context, text string) error {
	if text == "" {
		return ErrTextRequired
	}
	if err := s.repo.DeleteOption(ctx, text); err != nil {
		return err
	}
	slog.Info("option deleted", "option", text)
	s.notify(ctx)
	return nil
}

// Tally returns the live options ordered by votes, then by id.
func (s *Service) Tally(ctx context.Context) ([]Count, error) {
	return s.repo.Tally(ctx)
}

func (s *Service) notify(ctx context.Context) {
	if s.notifier != nil {
		s.notifier.Broadcast(ctx)
	}
}

package vote

import (
	"context"
	"errors"
)

var (
	ErrOptionRequired = errors.New("option is required")
	ErrOptionNotFound = errors.New("option does not exist")
)

type Service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Cast records one vote for the live option named by b.Option. Email and name are
// stored as given; empty values become NULL.
func (s *Service) Cast(ctx context.Context, b Ballot) (Receipt, error) {
	if b.Option == "" {
		return Receipt{}, ErrOptionRequired
	}
	rcpt, err := s.repo.CastVote(ctx, b)
	if err != nil {
		return Receipt{}, err
	}
	if s.notifier != nil {
		s.notifier.Broadcast(ctx)
	}
	return rcpt, nil
}

package vote

import (
	"context"
	"time"
)

type Vote struct {
	ID        int64     `json:"id"`
	OptionID  int64     `json:"option_id"`
	Email     *string   `json:"email,omitempty"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Ballot is what a voter submits: the option's display text plus optional contact info.
type Ballot struct {
	Option string
	Email  string
	Name   string
}

type Receipt struct {
	ID       int64  `json:"id"`
	OptionID int64  `json:"-"`
	Text     string `json:"text"`
}

type Repository interface {
	CastVote(ctx context.Context, b Ballot) (Receipt, error)
}

type Notifier interface {
	Broadcast(ctx context.Context)
}

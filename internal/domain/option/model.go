package option

import (
	"context"
	"time"
)

type Option struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

func (o Option) Live() bool {
	return o.DeletedAt == nil
}

// Count is one row of the tally: a live option and the number of votes it holds.
type Count struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Votes int64  `json:"votes"`
}

type Repository interface {
	AddOption(ctx context.Context, text string) (Option, error)
	DeleteOption(ctx context.Context, text string) error
	Tally(ctx context.Context) ([]Count, error)
}

// Notifier is told after every successful write that changes the tally.
type Notifier interface {
	Broadcast(ctx context.Context)
}

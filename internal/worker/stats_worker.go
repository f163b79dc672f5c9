package worker

import (
	"context"
	"log/slog"

	"votetally/internal/metrics"
)

// VoteEvent describes one accepted vote.
type VoteEvent struct {
	VoteID   int64
	OptionID int64
	Option   string
}

// Publish hands ev to the worker without blocking the request path. It reports
// false when the queue is full and the event was dropped.
func Publish(ch chan<- VoteEvent, ev VoteEvent) bool {
	if ch == nil {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		slog.Warn("vote event queue full, dropping event", "vote_id", ev.VoteID, "option", ev.Option)
		return false
	}
}

// StatsWorker turns accepted votes into per-option counters.
type StatsWorker struct {
	Ch <-chan VoteEvent

	// OnEvent, if set, runs after each event is recorded.
	OnEvent func(VoteEvent)
}

func NewStatsWorker(ch <-chan VoteEvent) *StatsWorker {
	return &StatsWorker{Ch: ch}
}

// Run consumes events until ctx is done or the channel is closed.
func (w *StatsWorker) Run(ctx context.Context) {
	slog.Info("stats worker started")
	defer slog.Info("stats worker stopped")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Ch:
			if !ok {
				return
			}
			metrics.IncVote(ev.Option)
			slog.Debug("vote recorded", "vote_id", ev.VoteID, "option_id", ev.OptionID, "option", ev.Option)
			if w.OnEvent != nil {
				w.OnEvent(ev)
			}
		}
	}
}

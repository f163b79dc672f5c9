package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"votetally/internal/domain/option"
	"votetally/internal/metrics"
)

// TallyFunc computes the current tally. The hub calls it once per broadcast.
type TallyFunc func(ctx context.Context) ([]option.Count, error)

// Conn is one live subscriber as seen by the hub.
type Conn interface {
	ID() string
	// Ready reports whether the transport is open. Connections that are not
	// ready are skipped without error.
	Ready() bool
	Send(data []byte) error
	Close()
}

// Hub maintains the set of live subscribers and pushes tally snapshots to them.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn

	// sendMu serializes snapshot computation and fan-out so subscribers see
	// snapshots in the order the store produced them.
	sendMu sync.Mutex
	tally  TallyFunc
}

func NewHub(tally TallyFunc) *Hub {
	return &Hub{
		conns: make(map[string]Conn),
		tally: tally,
	}
}

// Register adds c and immediately sends it the current snapshot.
func (h *Hub) Register(ctx context.Context, c Conn) {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.mu.Lock()
	h.conns[c.ID()] = c
	n := len(h.conns)
	h.mu.Unlock()
	metrics.SetSubscribers(n)
	slog.Debug("subscriber registered", "subscriber", c.ID(), "subscribers", n)

	data, err := h.snapshot(ctx)
	if err != nil {
		slog.Error("build snapshot for new subscriber", "subscriber", c.ID(), "error", err)
		return
	}
	h.deliver(c, data)
}

// Unregister removes c. Removing an unknown connection is a no-op.
func (h *Hub) Unregister(c Conn) {
	h.mu.Lock()
	_, ok := h.conns[c.ID()]
	delete(h.conns, c.ID())
	n := len(h.conns)
	h.mu.Unlock()
	if ok {
		metrics.SetSubscribers(n)
		slog.Debug("subscriber unregistered", "subscriber", c.ID(), "subscribers", n)
	}
}

// Broadcast recomputes the tally once and pushes the same encoded snapshot to every
// ready subscriber. Failures are logged per subscriber and never returned: the
// write that triggered the broadcast has already succeeded.
func (h *Hub) Broadcast(ctx context.Context) {
	if h == nil {
		slog.Warn("broadcast hub not initialized, skipping broadcast")
		return
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	data, err := h.snapshot(ctx)
	if err != nil {
		slog.Error("build broadcast snapshot", "error", err)
		return
	}

	for _, c := range h.subscribers() {
		if !c.Ready() {
			continue
		}
		h.deliver(c, data)
	}
	metrics.IncBroadcast()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	for _, c := range h.subscribers() {
		c.Close()
		h.Unregister(c)
	}
}

func (h *Hub) subscribers() []Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

func (h *Hub) snapshot(ctx context.Context) ([]byte, error) {
	counts, err := h.tally(ctx)
	if err != nil {
		return nil, err
	}
	return Encode(NewSnapshot(counts))
}

func (h *Hub) deliver(c Conn, data []byte) {
	if err := c.Send(data); err != nil {
		metrics.IncBroadcastFailure()
		slog.Warn("send snapshot", "subscriber", c.ID(), "error", err)
	}
}

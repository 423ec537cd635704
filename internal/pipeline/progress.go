package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// Update is published after every finished row.
type Update struct {
	BatchID  uuid.UUID
	Row      payout.RowResult
	Progress payout.Progress
}

// Observer receives progress updates. Implementations must not block for
// long: the next row is not dispatched until OnProgress returns.
type Observer interface {
	OnProgress(ctx context.Context, u Update)
}

type ObserverFunc func(ctx context.Context, u Update)

func (f ObserverFunc) OnProgress(ctx context.Context, u Update) {
	f(ctx, u)
}

// Observers fans an update out to every member in order.
type Observers []Observer

func (o Observers) OnProgress(ctx context.Context, u Update) {
	for _, obs := range o {
		if obs != nil {
			obs.OnProgress(ctx, u)
		}
	}
}

// Recorder keeps every update it sees. Safe for concurrent readers.
type Recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *Recorder) OnProgress(_ context.Context, u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *Recorder) Updates() []Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Update, len(r.updates))
	copy(out, r.updates)
	return out
}

// Latest returns the most recent progress snapshot.
func (r *Recorder) Latest() (payout.Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return payout.Progress{}, false
	}
	return r.updates[len(r.updates)-1].Progress, true
}

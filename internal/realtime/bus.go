package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// Op is the kind of mutation that committed.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation is the post-commit notification of an insert/update/delete on a
// tracked entity. Entity is the mutated record as it was written.
type Mutation struct {
	Op     Op
	Entity any
}

// Observer receives mutations after their transaction committed. Observers
// must not block: anything expensive belongs on their own queue.
type Observer func(ctx context.Context, m Mutation)

// CommitBus is an explicit post-commit observer list. The persistence layer
// publishes to it right after a successful commit, replacing ORM-level event
// hooks with a plain callback contract that tests can drive directly.
type CommitBus struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewCommitBus() *CommitBus {
	return &CommitBus{}
}

// Subscribe adds an observer. Subscriptions last for the process lifetime;
// there is no unsubscribe.
func (b *CommitBus) Subscribe(fn Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, fn)
}

// Publish invokes every observer synchronously. A panicking observer is
// recovered and logged so the write path that triggered the event never
// fails because of a broadcast problem.
func (b *CommitBus) Publish(ctx context.Context, m Mutation) {
	b.mu.RLock()
	observers := b.observers
	b.mu.RUnlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Commit observer panicked", "panic", r, "op", m.Op)
				}
			}()
			fn(ctx, m)
		}()
	}
}

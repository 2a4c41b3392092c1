package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/realtime"
)

// Recorder collects the mutations a transaction performs so they can be
// published to the commit bus only once the commit succeeds.
type Recorder struct {
	mutations []realtime.Mutation
}

func (r *Recorder) Record(op realtime.Op, entity any) {
	r.mutations = append(r.mutations, realtime.Mutation{Op: op, Entity: entity})
}

// Mutator runs write transactions and reports committed changes to the
// realtime bus. Rolled-back transactions publish nothing.
type Mutator struct {
	db  Querier
	bus *realtime.CommitBus
}

func NewMutator(db Querier, bus *realtime.CommitBus) *Mutator {
	return &Mutator{db: db, bus: bus}
}

// InTx executes fn inside a transaction. Mutations recorded through rec are
// published once the commit returns successfully; a fn error or commit error
// rolls back and suppresses them.
func (m *Mutator) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx, rec *Recorder) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	rec := &Recorder{}
	if err := fn(ctx, tx, rec); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	for _, mut := range rec.mutations {
		m.bus.Publish(ctx, mut)
	}
	return nil
}

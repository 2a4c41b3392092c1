package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/correlation"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/metrics"
)

const (
	assembleTimeout = 10 * time.Second
	drainTimeout    = 10 * time.Second
)

// PublishFunc forwards a broadcast envelope to other instances. Optional;
// wired to the redis bridge when cross-instance fan-out is configured.
type PublishFunc func(ctx context.Context, orgID uuid.UUID, data []byte) error

// Dispatcher turns committed mutations into tenant-wide broadcasts. A fixed
// worker pool bounds concurrent aggregation queries; when the queue is full
// the job is dropped rather than delaying or failing the write path, since
// the next mutation or a client refresh rebuilds from source of truth anyway.
type Dispatcher struct {
	resolver  *Resolver
	assembler *Assembler
	registry  domain.Broadcaster
	publish   PublishFunc

	jobs     chan Mutation
	group    singleflight.Group
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewDispatcher starts the worker pool. publish may be nil for
// single-instance deployments.
func NewDispatcher(resolver *Resolver, assembler *Assembler, registry domain.Broadcaster, publish PublishFunc, workers, queueSize int) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		assembler: assembler,
		registry:  registry,
		publish:   publish,
		jobs:      make(chan Mutation, queueSize),
	}
	for range workers {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// OnCommit is the CommitBus observer. It only enqueues: resolution and
// aggregation run on the worker pool, decoupled from the triggering
// transaction.
func (d *Dispatcher) OnCommit(_ context.Context, m Mutation) {
	select {
	case d.jobs <- m:
		metrics.DispatchQueueDepth.Set(float64(len(d.jobs)))
	default:
		metrics.DispatchDroppedJobs.Inc()
		slog.Warn("Dispatch queue full, dropping broadcast job",
			"entity", EntityName(m.Entity),
			"op", m.Op,
		)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for m := range d.jobs {
		metrics.DispatchQueueDepth.Set(float64(len(d.jobs)))
		d.process(m)
	}
}

func (d *Dispatcher) process(m Mutation) {
	ctx, cancel := context.WithTimeout(context.Background(), assembleTimeout)
	defer cancel()
	ctx = correlation.WithID(ctx, correlation.NewID())

	res, err := d.resolver.Resolve(ctx, m)
	if err != nil {
		// Unresolvable events are dropped, never escalated: the write that
		// triggered them has already committed.
		metrics.ResolutionFailuresTotal.WithLabelValues(EntityName(m.Entity)).Inc()
		slog.WarnContext(ctx, "Dropping unresolvable mutation event",
			"entity", EntityName(m.Entity),
			"op", m.Op,
			"error", err,
		)
		return
	}

	data, err := d.EnvelopeFor(ctx, res.EmployeeID)
	if err != nil {
		metrics.DispatchBroadcastsTotal.WithLabelValues("assembly_failed").Inc()
		slog.ErrorContext(ctx, "Broadcast aborted, assembly failed",
			"employee_id", res.EmployeeID.String(),
			"org_id", res.OrgID.String(),
			"error", err,
		)
		return
	}

	d.registry.Broadcast(res.OrgID, data)
	if d.publish != nil {
		if err := d.publish(ctx, res.OrgID, data); err != nil {
			slog.WarnContext(ctx, "Cross-instance publish failed",
				"org_id", res.OrgID.String(),
				"error", err,
			)
		}
	}
	metrics.DispatchBroadcastsTotal.WithLabelValues("ok").Inc()
	slog.DebugContext(ctx, "Broadcast dispatched",
		"employee_id", res.EmployeeID.String(),
		"org_id", res.OrgID.String(),
	)
}

// EnvelopeFor assembles the aggregate record from current database state and
// wraps it in the wire envelope. Used internally by the workers and by the
// transport for initial delivery and client refresh requests. Concurrent
// rebuilds of the same employee are collapsed into one.
func (d *Dispatcher) EnvelopeFor(ctx context.Context, employeeID uuid.UUID) ([]byte, error) {
	v, err, shared := d.group.Do(employeeID.String(), func() (any, error) {
		doc, err := d.assembler.Assemble(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(domain.Envelope{
			Type:       "update",
			Payload:    doc,
			EmployeeID: employeeID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	if shared {
		metrics.DispatchCollapsedRebuilds.Inc()
	}
	return v.([]byte), nil
}

// Notify sends a targeted non-update message (reminders and the like) to one
// user over the same registry. Best-effort, like every other delivery.
func (d *Dispatcher) Notify(orgID, userID uuid.UUID, kind string, payload map[string]any) error {
	data, err := json.Marshal(map[string]any{
		"type":    "notification",
		"kind":    kind,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	d.registry.SendToUser(orgID, userID, data)
	return nil
}

// Stop drains queued jobs and waits for in-flight broadcasts, bounded by
// drainTimeout.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			slog.Info("Dispatcher stopped gracefully")
		case <-time.After(drainTimeout):
			slog.Warn("Dispatcher stop timeout exceeded", "timeout", drainTimeout)
		}
	})
}

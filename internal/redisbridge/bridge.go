// Package redisbridge fans broadcast envelopes out across server instances
// via Redis pub/sub. Each instance publishes the envelopes it builds and
// re-broadcasts envelopes built elsewhere to its local connections, so a
// client stays current no matter which instance mutated the data.
package redisbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/metrics"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/retry"
)

const channelPrefix = "staffrecords:updates:"

func orgChannel(orgID uuid.UUID) string {
	return channelPrefix + orgID.String()
}

// wireMessage tags every published envelope with the origin instance so a
// subscriber can skip the messages it published itself.
type wireMessage struct {
	Instance string          `json:"instance"`
	Envelope json.RawMessage `json:"envelope"`
}

// publisher is the slice of go-redis the publish path uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

// Bridge connects the local registry to the cross-instance channel.
type Bridge struct {
	pub        publisher
	rdb        *goredis.Client
	registry   domain.Broadcaster
	instanceID string
	cb         *gobreaker.CircuitBreaker
}

func New(client *Client, registry domain.Broadcaster) *Bridge {
	rdb := client.Underlying()
	b := &Bridge{
		pub:        rdb,
		rdb:        rdb,
		registry:   registry,
		instanceID: uuid.NewString(),
	}
	b.cb = newPublishBreaker()
	return b
}

func newPublishBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Redis publish circuit state changed", "from", from.String(), "to", to.String())
			metrics.BridgeCircuitState.Set(circuitStateValue(to))
		},
	})
}

func circuitStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Publish sends an envelope to the org channel for other instances. The
// circuit breaker fails fast while Redis is down; local delivery already
// happened, so a publish failure only degrades to single-instance fan-out.
func (b *Bridge) Publish(ctx context.Context, orgID uuid.UUID, envelope []byte) error {
	data, err := json.Marshal(wireMessage{Instance: b.instanceID, Envelope: envelope})
	if err != nil {
		return fmt.Errorf("failed to marshal bridge message: %w", err)
	}

	_, err = b.cb.Execute(func() (any, error) {
		return nil, b.pub.Publish(ctx, orgChannel(orgID), data).Err()
	})
	if err != nil {
		status := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			status = "rejected"
		}
		metrics.BridgePublishesTotal.WithLabelValues(status).Inc()
		return fmt.Errorf("failed to publish envelope: %w", err)
	}

	metrics.BridgePublishesTotal.WithLabelValues("ok").Inc()
	return nil
}

// Run subscribes to every org channel and re-broadcasts remote envelopes
// until ctx is cancelled. Dropped subscriptions are re-established with
// backoff.
func (b *Bridge) Run(ctx context.Context) {
	policy := retry.Policy{
		MaxAttempts:    10,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Redis subscription lost, retrying",
				"attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	alwaysRetry := func(error) retry.Action { return retry.Retry }

	for ctx.Err() == nil {
		err := retry.DoVoid(ctx, policy, alwaysRetry, func() error {
			return b.consume(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		slog.Error("Redis subscription failed repeatedly, restarting cycle", "error", err)
	}
}

// consume blocks reading the pattern subscription until ctx is cancelled or
// the subscription breaks.
func (b *Bridge) consume(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close() //nolint:errcheck

	// Force the subscribe round trip so connection errors surface here
	// instead of as a silently empty channel.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	msgCh := sub.Channel()
	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return errors.New("subscription channel closed")
			}
			b.handleMessage(msg.Channel, []byte(msg.Payload))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleMessage re-broadcasts a remote envelope to local connections.
// Messages published by this instance were already delivered locally and
// are skipped.
func (b *Bridge) handleMessage(channel string, payload []byte) {
	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		slog.Warn("Discarding malformed bridge message", "channel", channel, "error", err)
		return
	}
	if msg.Instance == b.instanceID {
		return
	}

	orgID, err := uuid.Parse(strings.TrimPrefix(channel, channelPrefix))
	if err != nil {
		slog.Warn("Discarding bridge message with bad channel", "channel", channel, "error", err)
		return
	}

	b.registry.Broadcast(orgID, msg.Envelope)
	metrics.BridgeRemoteBroadcasts.Inc()
}

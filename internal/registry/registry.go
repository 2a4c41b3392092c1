package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/metrics"
)

// userKey scopes a connection set to one user within one tenant.
type userKey struct {
	Org  uuid.UUID
	User uuid.UUID
}

type connSet map[*websocket.Conn]*clientWriter

// Registry tracks live realtime connections by tenant and by (tenant, user).
// One instance lives for the whole process; construct it explicitly and pass
// it by reference so tests can run isolated registries side by side.
//
// A single mutex guards all structural mutation of both scope maps, so a
// connection is always present in both or in neither. Delivery happens on a
// snapshot taken under the lock; the lock is never held during socket I/O.
type Registry struct {
	mu               sync.Mutex
	tenants          map[uuid.UUID]connSet
	users            map[userKey]connSet
	owners           map[*websocket.Conn]userKey
	clock            clockwork.Clock
	maxClientsPerOrg int
	stopped          bool
}

// New creates an empty registry. maxClientsPerOrg <= 0 disables the limit.
func New(clock clockwork.Clock, maxClientsPerOrg int) *Registry {
	return &Registry{
		tenants:          make(map[uuid.UUID]connSet),
		users:            make(map[userKey]connSet),
		owners:           make(map[*websocket.Conn]userKey),
		clock:            clock,
		maxClientsPerOrg: maxClientsPerOrg,
	}
}

// Register adds the connection to both the tenant scope and the user scope.
// The registry owns the connection from here on: all writes go through its
// writer goroutine and Unregister (or Stop) closes it.
func (r *Registry) Register(orgID, userID uuid.UUID, conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return fmt.Errorf("registry is stopped")
	}
	if _, exists := r.owners[conn]; exists {
		// Single registration per handshake is assumed; a second call is a bug upstream.
		return fmt.Errorf("connection already registered")
	}
	if r.maxClientsPerOrg > 0 && len(r.tenants[orgID]) >= r.maxClientsPerOrg {
		return fmt.Errorf("max clients per organization (%d) reached", r.maxClientsPerOrg)
	}

	cw := newClientWriter(conn, r.clock)
	key := userKey{Org: orgID, User: userID}

	if r.tenants[orgID] == nil {
		r.tenants[orgID] = make(connSet)
	}
	if r.users[key] == nil {
		r.users[key] = make(connSet)
	}
	r.tenants[orgID][conn] = cw
	r.users[key][conn] = cw
	r.owners[conn] = key

	metrics.RegistryActiveTenants.Set(float64(len(r.tenants)))
	metrics.RegistryConnectedClients.Inc()
	slog.Debug("Client registered",
		"org_id", orgID.String(),
		"user_id", userID.String(),
		"org_clients", len(r.tenants[orgID]),
	)
	return nil
}

// Unregister removes the connection from both scopes and closes it. Calling
// it for a connection that was already removed is a no-op.
func (r *Registry) Unregister(orgID, userID uuid.UUID, conn *websocket.Conn) {
	r.mu.Lock()
	cw := r.remove(orgID, userID, conn)
	r.mu.Unlock()

	if cw != nil {
		cw.stop()
	}
}

// remove detaches conn from both scope maps, returning its writer, or nil if
// the connection is not registered. Caller must hold r.mu and must close the
// returned writer outside the lock.
func (r *Registry) remove(orgID, userID uuid.UUID, conn *websocket.Conn) *clientWriter {
	key := userKey{Org: orgID, User: userID}
	clients, exists := r.tenants[orgID]
	if !exists {
		return nil
	}
	cw, exists := clients[conn]
	if !exists {
		return nil
	}

	delete(clients, conn)
	if len(clients) == 0 {
		delete(r.tenants, orgID)
	}
	if userClients, ok := r.users[key]; ok {
		delete(userClients, conn)
		if len(userClients) == 0 {
			delete(r.users, key)
		}
	}
	delete(r.owners, conn)

	metrics.RegistryActiveTenants.Set(float64(len(r.tenants)))
	metrics.RegistryConnectedClients.Dec()
	slog.Debug("Client unregistered",
		"org_id", orgID.String(),
		"user_id", userID.String(),
		"org_clients", len(r.tenants[orgID]),
	)
	return cw
}

// UnregisterAll force-evicts every connection for the given user, sending a
// close frame first. Used for forced logout; already-closed connections are
// tolerated.
func (r *Registry) UnregisterAll(orgID, userID uuid.UUID) {
	key := userKey{Org: orgID, User: userID}

	r.mu.Lock()
	var evicted []*clientWriter
	for conn := range r.users[key] {
		if cw := r.remove(orgID, userID, conn); cw != nil {
			evicted = append(evicted, cw)
		}
	}
	r.mu.Unlock()

	for _, cw := range evicted {
		cw.stopWithClose(websocket.ClosePolicyViolation, "session revoked")
		metrics.RegistryForcedEvictions.Inc()
	}
	if len(evicted) > 0 {
		slog.Info("Forced logout evicted connections",
			"org_id", orgID.String(),
			"user_id", userID.String(),
			"count", len(evicted),
		)
	}
}

// Broadcast delivers message to every connection in the tenant scope.
// Best-effort: a full client buffer drops the message for that client only,
// and a tenant with no connections is a no-op.
func (r *Registry) Broadcast(orgID uuid.UUID, message []byte) {
	r.mu.Lock()
	writers := make([]*clientWriter, 0, len(r.tenants[orgID]))
	for _, cw := range r.tenants[orgID] {
		writers = append(writers, cw)
	}
	r.mu.Unlock()

	for _, cw := range writers {
		cw.trySend(message)
	}
}

// SendToUser delivers message to every connection of one user. A user with no
// live connections is a no-op: the message is dropped, there is no queue.
func (r *Registry) SendToUser(orgID, userID uuid.UUID, message []byte) {
	key := userKey{Org: orgID, User: userID}

	r.mu.Lock()
	writers := make([]*clientWriter, 0, len(r.users[key]))
	for _, cw := range r.users[key] {
		writers = append(writers, cw)
	}
	r.mu.Unlock()

	for _, cw := range writers {
		cw.trySend(message)
	}
}

// Send delivers message to one registered connection. Returns false when the
// connection is unknown or its buffer is full.
func (r *Registry) Send(conn *websocket.Conn, message []byte) bool {
	r.mu.Lock()
	var cw *clientWriter
	if key, ok := r.owners[conn]; ok {
		cw = r.tenants[key.Org][conn]
	}
	r.mu.Unlock()

	if cw == nil {
		return false
	}
	return cw.trySend(message)
}

// Evict removes one connection and closes it with the given close code. Used
// when a connection's credentials stop being valid mid-session. Unknown
// connections are a no-op.
func (r *Registry) Evict(conn *websocket.Conn, code int, reason string) {
	r.mu.Lock()
	var cw *clientWriter
	if key, ok := r.owners[conn]; ok {
		cw = r.remove(key.Org, key.User, conn)
	}
	r.mu.Unlock()

	if cw != nil {
		cw.stopWithClose(code, reason)
	}
}

// ClientCount returns the number of connections in the tenant scope.
func (r *Registry) ClientCount(orgID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tenants[orgID])
}

// Stop closes every connection with a going-away frame and rejects further
// registrations. Called once during shutdown.
func (r *Registry) Stop() {
	r.mu.Lock()
	r.stopped = true
	var writers []*clientWriter
	for _, clients := range r.tenants {
		for _, cw := range clients {
			writers = append(writers, cw)
		}
	}
	r.tenants = make(map[uuid.UUID]connSet)
	r.users = make(map[userKey]connSet)
	r.owners = make(map[*websocket.Conn]userKey)
	r.mu.Unlock()

	for _, cw := range writers {
		cw.stopWithClose(websocket.CloseGoingAway, "server shutting down")
	}

	metrics.RegistryActiveTenants.Set(0)
	slog.Info("Registry stopped", "disconnected_clients", len(writers))
}

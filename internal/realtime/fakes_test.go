package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
)

// fakeReader is an in-memory domain.EmployeeReader.
type fakeReader struct {
	mu          sync.Mutex
	bundles     map[uuid.UUID]*domain.EmployeeBundle
	bundleCalls int
	orgCalls    int
	err         error
	gate        chan struct{} // when set, GetBundle blocks until the gate closes
}

func newFakeReader() *fakeReader {
	return &fakeReader{bundles: make(map[uuid.UUID]*domain.EmployeeBundle)}
}

func (f *fakeReader) add(b *domain.EmployeeBundle) {
	f.bundles[b.Employee.ID] = b
}

func (f *fakeReader) GetBundle(ctx context.Context, employeeID uuid.UUID) (*domain.EmployeeBundle, error) {
	f.mu.Lock()
	f.bundleCalls++
	gate := f.gate
	err := f.err
	b, ok := f.bundles[employeeID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainNotFound
	}
	return b, nil
}

func (f *fakeReader) GetEmployeeOrg(ctx context.Context, employeeID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgCalls++
	if f.err != nil {
		return uuid.Nil, f.err
	}
	b, ok := f.bundles[employeeID]
	if !ok {
		return uuid.Nil, domainNotFound
	}
	return b.Employee.OrganizationID, nil
}

func (f *fakeReader) GetEmployeeByUser(ctx context.Context, orgID, userID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range f.bundles {
		if b.Employee.OrganizationID == orgID && b.Employee.UserID == userID {
			return id, nil
		}
	}
	return uuid.Nil, domainNotFound
}

var domainNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }

// fakeBroadcaster records deliveries and signals them on channels.
type fakeBroadcaster struct {
	mu         sync.Mutex
	broadcasts []delivery
	targeted   []delivery
	notifyCh   chan delivery
}

type delivery struct {
	org  uuid.UUID
	user uuid.UUID
	data []byte
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{notifyCh: make(chan delivery, 64)}
}

func (f *fakeBroadcaster) Broadcast(orgID uuid.UUID, message []byte) {
	f.mu.Lock()
	f.broadcasts = append(f.broadcasts, delivery{org: orgID, data: message})
	f.mu.Unlock()
	f.notifyCh <- delivery{org: orgID, data: message}
}

func (f *fakeBroadcaster) SendToUser(orgID, userID uuid.UUID, message []byte) {
	f.mu.Lock()
	f.targeted = append(f.targeted, delivery{org: orgID, user: userID, data: message})
	f.mu.Unlock()
	f.notifyCh <- delivery{org: orgID, user: userID, data: message}
}

func (f *fakeBroadcaster) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

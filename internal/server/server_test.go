package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/config"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/domain"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/realtime"
	"github.com/SamTugah-KACE/staged-staff-records-backend-sub001/internal/registry"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type userScope struct {
	org, user uuid.UUID
}

type fakeReader struct {
	mu      sync.Mutex
	bundles map[uuid.UUID]*domain.EmployeeBundle
	byUser  map[userScope]uuid.UUID
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		bundles: make(map[uuid.UUID]*domain.EmployeeBundle),
		byUser:  make(map[userScope]uuid.UUID),
	}
}

func (f *fakeReader) add(b *domain.EmployeeBundle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles[b.Employee.ID] = b
	f.byUser[userScope{b.Employee.OrganizationID, b.Employee.UserID}] = b.Employee.ID
}

func (f *fakeReader) GetBundle(_ context.Context, employeeID uuid.UUID) (*domain.EmployeeBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[employeeID]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	return b, nil
}

func (f *fakeReader) GetEmployeeOrg(_ context.Context, employeeID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bundles[employeeID]
	if !ok {
		return uuid.Nil, domain.ErrEmployeeNotFound
	}
	return b.Employee.OrganizationID, nil
}

func (f *fakeReader) GetEmployeeByUser(_ context.Context, orgID, userID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUser[userScope{orgID, userID}]
	if !ok {
		return uuid.Nil, domain.ErrEmployeeNotFound
	}
	return id, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

// seedEmployee stores a minimal private-org employee and returns it.
func seedEmployee(reader *fakeReader) domain.Employee {
	emp := domain.Employee{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		UserID:         uuid.New(),
		FirstName:      "Adjoa",
		LastName:       "Asante",
		Email:          "adjoa@example.com",
		IsActive:       true,
	}
	reader.add(&domain.EmployeeBundle{
		Employee: emp,
		Organization: domain.Organization{
			ID:     emp.OrganizationID,
			Name:   "Acme Holdings",
			Nature: "Private Limited",
		},
	})
	return emp
}

type testEnv struct {
	server   *Server
	http     *httptest.Server
	registry *registry.Registry
	reader   *fakeReader
}

func (e *testEnv) wsURL(orgID, userID uuid.UUID, token string) string {
	base := "ws" + strings.TrimPrefix(e.http.URL, "http")
	return base + "/ws/" + orgID.String() + "/" + userID.String() + "?token=" + token
}

func newTestEnv(t *testing.T, clock clockwork.Clock, recheck time.Duration, db Pinger) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AppEnv:              "test",
		Port:                "0",
		JWTSecret:           testSecret,
		AuthRecheckInterval: recheck,
		MaxClientsPerOrg:    0,
		MaxConnsPerIP:       50,
		MaxConnections:      100,
		DispatchWorkers:     2,
		DispatchQueueSize:   16,
	}

	reader := newFakeReader()
	reg := registry.New(clockwork.NewRealClock(), cfg.MaxClientsPerOrg)
	t.Cleanup(reg.Stop)

	dispatcher := realtime.NewDispatcher(
		realtime.DefaultResolver(reader),
		realtime.NewAssembler(reader, clockwork.NewRealClock()),
		reg, nil,
		cfg.DispatchWorkers, cfg.DispatchQueueSize,
	)
	t.Cleanup(dispatcher.Stop)

	srv := New(cfg, reg, dispatcher, reader, db, nil, clock)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, http: ts, registry: reg, reader: reader}
}

func signToken(t *testing.T, orgID, userID uuid.UUID, admin bool, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		OrgID: orgID.String(),
		Admin: admin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

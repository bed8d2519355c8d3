package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/handler"
	"github.com/tripbazaar/backend/internal/registration"
	"github.com/tripbazaar/backend/internal/service"
)

// Test doubles for the handler servicer interfaces.
// Set only the method fields your test needs.

type mockCart struct {
	add    func(ctx context.Context, actor domain.Actor, listingID uuid.UUID, qty int) (domain.CartLine, error)
	update func(ctx context.Context, actor domain.Actor, lineID uuid.UUID, qty int) (domain.CartLine, error)
	remove func(ctx context.Context, actor domain.Actor, lineID uuid.UUID) error
	clear  func(ctx context.Context, actor domain.Actor) error
	list   func(ctx context.Context, actor domain.Actor) ([]domain.CartItem, error)
}

func (m *mockCart) AddOrIncrement(ctx context.Context, a domain.Actor, id uuid.UUID, q int) (domain.CartLine, error) {
	return m.add(ctx, a, id, q)
}
func (m *mockCart) UpdateQuantity(ctx context.Context, a domain.Actor, id uuid.UUID, q int) (domain.CartLine, error) {
	return m.update(ctx, a, id, q)
}
func (m *mockCart) Remove(ctx context.Context, a domain.Actor, id uuid.UUID) error {
	return m.remove(ctx, a, id)
}
func (m *mockCart) Clear(ctx context.Context, a domain.Actor) error { return m.clear(ctx, a) }
func (m *mockCart) List(ctx context.Context, a domain.Actor) ([]domain.CartItem, error) {
	return m.list(ctx, a)
}

type mockBookings struct {
	checkout func(ctx context.Context, actor domain.Actor, lineIDs []uuid.UUID, date *time.Time) ([]domain.Booking, error)
	respond  func(ctx context.Context, actor domain.Actor, id uuid.UUID, d domain.Decision, note string) (domain.Booking, error)
	complete func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error)
	withdraw func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error)
	get      func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.Booking, error)
	list     func(ctx context.Context, actor domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error)
}

func (m *mockBookings) Checkout(ctx context.Context, a domain.Actor, ids []uuid.UUID, d *time.Time) ([]domain.Booking, error) {
	return m.checkout(ctx, a, ids, d)
}
func (m *mockBookings) Respond(ctx context.Context, a domain.Actor, id uuid.UUID, d domain.Decision, note string) (domain.Booking, error) {
	return m.respond(ctx, a, id, d, note)
}
func (m *mockBookings) Complete(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return m.complete(ctx, a, id)
}
func (m *mockBookings) Withdraw(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return m.withdraw(ctx, a, id)
}
func (m *mockBookings) Get(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.Booking, error) {
	return m.get(ctx, a, id)
}
func (m *mockBookings) List(ctx context.Context, a domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error) {
	return m.list(ctx, a, p)
}

type listingOp func(ctx context.Context, actor domain.Actor, id uuid.UUID) (service.ListingOutcome, error)
type providerOp func(ctx context.Context, actor domain.Actor, id uuid.UUID) (service.ProviderOutcome, error)

type mockModeration struct {
	approve, pause, resume listingOp
	reject                 func(ctx context.Context, actor domain.Actor, id uuid.UUID, reason string) (service.ListingOutcome, error)
	verify, revoke         providerOp
}

func (m *mockModeration) Approve(ctx context.Context, a domain.Actor, id uuid.UUID) (service.ListingOutcome, error) {
	return m.approve(ctx, a, id)
}
func (m *mockModeration) Reject(ctx context.Context, a domain.Actor, id uuid.UUID, reason string) (service.ListingOutcome, error) {
	return m.reject(ctx, a, id, reason)
}
func (m *mockModeration) Pause(ctx context.Context, a domain.Actor, id uuid.UUID) (service.ListingOutcome, error) {
	return m.pause(ctx, a, id)
}
func (m *mockModeration) Resume(ctx context.Context, a domain.Actor, id uuid.UUID) (service.ListingOutcome, error) {
	return m.resume(ctx, a, id)
}
func (m *mockModeration) Verify(ctx context.Context, a domain.Actor, id uuid.UUID) (service.ProviderOutcome, error) {
	return m.verify(ctx, a, id)
}
func (m *mockModeration) Revoke(ctx context.Context, a domain.Actor, id uuid.UUID) (service.ProviderOutcome, error) {
	return m.revoke(ctx, a, id)
}

type mockCatalog struct {
	create     func(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error)
	update     func(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error)
	get        func(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.ListingView, error)
	listActive func(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.ListingView], error)
}

func (m *mockCatalog) Create(ctx context.Context, a domain.Actor, l domain.Listing) (domain.Listing, error) {
	return m.create(ctx, a, l)
}
func (m *mockCatalog) UpdateContent(ctx context.Context, a domain.Actor, l domain.Listing) (domain.Listing, error) {
	return m.update(ctx, a, l)
}
func (m *mockCatalog) Get(ctx context.Context, a domain.Actor, id uuid.UUID) (domain.ListingView, error) {
	return m.get(ctx, a, id)
}
func (m *mockCatalog) ListActive(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.ListingView], error) {
	return m.listActive(ctx, p)
}

type mockRegistration struct {
	start    func(ctx context.Context, subject, displayName string) (registration.Pending, error)
	complete func(ctx context.Context, token string, role domain.Role) (service.Enrollment, error)
	abandon  func(ctx context.Context, token string) error
}

func (m *mockRegistration) Start(ctx context.Context, subject, name string) (registration.Pending, error) {
	return m.start(ctx, subject, name)
}
func (m *mockRegistration) Complete(ctx context.Context, token string, role domain.Role) (service.Enrollment, error) {
	return m.complete(ctx, token, role)
}
func (m *mockRegistration) Abandon(ctx context.Context, token string) error {
	return m.abandon(ctx, token)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.CartServicer         = (*mockCart)(nil)
	_ handler.BookingServicer      = (*mockBookings)(nil)
	_ handler.ModerationServicer   = (*mockModeration)(nil)
	_ handler.CatalogServicer      = (*mockCatalog)(nil)
	_ handler.RegistrationServicer = (*mockRegistration)(nil)
)

// ---- helpers ---------------------------------------------------------------

// fixedActor stands in for auth.Middleware: it authenticates every request as
// actor, or rejects it when actor is nil.
func fixedActor(srv *handler.Server, actor *domain.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor == nil {
				srv.WriteError(w, r, domain.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), *actor)))
		})
	}
}

// newHTTPHandler wires a Server into its router, authenticated as actor.
// This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.Services, actor *domain.Actor) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := handler.NewServer(svc, logger)
	return srv.Routes(fixedActor(srv, actor), []byte("openapi: 3.0.3\n"))
}

func actorWithRole(role domain.Role) *domain.Actor {
	return &domain.Actor{ID: uuid.New(), Role: role}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// response is the decoded envelope of a JSON response.
type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do serves one request and decodes the envelope.
func do(t *testing.T, h http.Handler, method, path string, body io.Reader) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp response
	if rec.Header().Get("Content-Type") == "application/json" && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// data decodes the envelope's data into v.
func (r response) data(t *testing.T, v any) {
	t.Helper()
	require.True(t, r.Success)
	require.NoError(t, json.Unmarshal(r.Data, v))
}

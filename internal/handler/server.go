// Package handler implements the HTTP handlers for the marketplace API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (cart.go, booking.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/tripbazaar/backend/internal/auth"
	"github.com/tripbazaar/backend/internal/domain"
	"github.com/tripbazaar/backend/internal/registration"
	"github.com/tripbazaar/backend/internal/service"
)

// CartServicer defines the cart operations the handlers depend on.
// Defining the interfaces here (in the consumer package) lets handler tests
// inject mocks without touching the database or service layer.
type CartServicer interface {
	AddOrIncrement(ctx context.Context, actor domain.Actor, listingID uuid.UUID, qty int) (domain.CartLine, error)
	UpdateQuantity(ctx context.Context, actor domain.Actor, lineID uuid.UUID, qty int) (domain.CartLine, error)
	Remove(ctx context.Context, actor domain.Actor, lineID uuid.UUID) error
	Clear(ctx context.Context, actor domain.Actor) error
	List(ctx context.Context, actor domain.Actor) ([]domain.CartItem, error)
}

// BookingServicer defines the booking operations the handlers depend on.
type BookingServicer interface {
	Checkout(ctx context.Context, actor domain.Actor, lineIDs []uuid.UUID, requestedDate *time.Time) ([]domain.Booking, error)
	Respond(ctx context.Context, actor domain.Actor, bookingID uuid.UUID, decision domain.Decision, note string) (domain.Booking, error)
	Complete(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	Withdraw(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	Get(ctx context.Context, actor domain.Actor, bookingID uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, actor domain.Actor, p domain.PaginationParams) (domain.Page[domain.Booking], error)
}

// ModerationServicer defines the listing approval and provider verification
// operations the handlers depend on.
type ModerationServicer interface {
	Approve(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (service.ListingOutcome, error)
	Reject(ctx context.Context, actor domain.Actor, listingID uuid.UUID, reason string) (service.ListingOutcome, error)
	Pause(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (service.ListingOutcome, error)
	Resume(ctx context.Context, actor domain.Actor, listingID uuid.UUID) (service.ListingOutcome, error)
	Verify(ctx context.Context, actor domain.Actor, profileID uuid.UUID) (service.ProviderOutcome, error)
	Revoke(ctx context.Context, actor domain.Actor, profileID uuid.UUID) (service.ProviderOutcome, error)
}

// CatalogServicer defines the listing write and browse operations.
type CatalogServicer interface {
	Create(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error)
	UpdateContent(ctx context.Context, actor domain.Actor, l domain.Listing) (domain.Listing, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (domain.ListingView, error)
	ListActive(ctx context.Context, p domain.PaginationParams) (domain.Page[domain.ListingView], error)
}

// RegistrationServicer defines the self-service enrollment operations.
type RegistrationServicer interface {
	Start(ctx context.Context, subject, displayName string) (registration.Pending, error)
	Complete(ctx context.Context, token string, role domain.Role) (service.Enrollment, error)
	Abandon(ctx context.Context, token string) error
}

// Services groups the dependencies of Server. Nil fields are allowed in tests
// that only exercise a subset of the routes.
type Services struct {
	Cart         CartServicer
	Bookings     BookingServicer
	Moderation   ModerationServicer
	Catalog      CatalogServicer
	Registration RegistrationServicer
}

// Server holds every handler dependency.
type Server struct {
	cart         CartServicer
	bookings     BookingServicer
	moderation   ModerationServicer
	catalog      CatalogServicer
	registration RegistrationServicer

	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(svc Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names, not Go field names, in validation messages.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Prices arrive as decimal.Decimal; compare them as numbers so gte/lte tags apply.
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		n, _ := d.Float64()
		return n
	}, decimal.Decimal{})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return &Server{
		cart:         svc.Cart,
		bookings:     svc.Bookings,
		moderation:   svc.Moderation,
		catalog:      svc.Catalog,
		registration: svc.Registration,
		validate:     v,
		logger:       logger,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Services{}, nil)
}

// Routes mounts every endpoint. authn resolves the bearer credential and must
// store the actor with auth.WithActor; it guards everything except health,
// the OpenAPI document and registration.
func (s *Server) Routes(authn func(http.Handler) http.Handler, openAPI []byte) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck // best-effort write of a static document.
		w.Write(openAPI)
	})

	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", s.StartRegistration)
		r.Post("/{token}/complete", s.CompleteRegistration)
		r.Delete("/{token}", s.AbandonRegistration)
	})

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.ListCart)
			r.Delete("/", s.ClearCart)
			r.Post("/add", s.AddToCart)
			r.Put("/{lineId}", s.UpdateCartLine)
			r.Delete("/{lineId}", s.RemoveCartLine)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", s.ListBookings)
			r.Post("/checkout", s.Checkout)
			r.Get("/{id}", s.GetBooking)
			r.Post("/{id}/respond", s.RespondToBooking)
			r.Post("/{id}/complete", s.CompleteBooking)
			r.Post("/{id}/withdraw", s.WithdrawBooking)
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Post("/listings/{id}/approve", s.ApproveListing)
			r.Post("/listings/{id}/reject", s.RejectListing)
			r.Post("/listings/{id}/pause", s.PauseListing)
			r.Post("/listings/{id}/resume", s.ResumeListing)
			r.Post("/providers/{id}/verify", s.VerifyProvider)
			r.Post("/providers/{id}/revoke", s.RevokeProvider)
		})

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", s.ListListings)
			r.Post("/", s.CreateListing)
			r.Get("/{id}", s.GetListing)
			r.Put("/{id}", s.UpdateListing)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// --- request helpers --------------------------------------------------------

// actorFrom returns the authenticated actor. The auth middleware guarantees
// presence on guarded routes; a missing actor is reported as unauthenticated.
func (s *Server) actorFrom(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := auth.ActorFrom(r.Context())
	if !ok {
		s.WriteError(w, r, domain.ErrUnauthenticated)
		return domain.Actor{}, false
	}
	return actor, true
}

// pathUUID binds a UUID path parameter the way generated servers do.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		requestError(w, "invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads the optional page and limit query parameters.
func pagination(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		requestError(w, "invalid page: must be an integer")
		return domain.PaginationParams{}, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		requestError(w, "invalid limit: must be an integer")
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, limit), true
}

// decodeBody decodes and validates a JSON request body into dst.
// Unknown fields are rejected. An empty body is reported as missing.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return s.decode(w, r, dst, false)
}

// decodeOptionalBody is decodeBody for routes whose body may be omitted:
// an empty body leaves dst at its zero value.
func (s *Server) decodeOptionalBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	return s.decode(w, r, dst, true)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeFailure(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		case errors.Is(err, io.EOF) && optional:
			return true
		case errors.Is(err, io.EOF):
			requestError(w, "request body is required")
		default:
			requestError(w, "malformed request body: "+err.Error())
		}
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		requestError(w, validationMessage(err))
		return false
	}
	return true
}

// pageResponse is the JSON form of a domain.Page.
type pageResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func toPageResponse[S, T any](p domain.Page[S], conv func(S) T) pageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResponse[T]{Items: items, Total: p.Total, Page: p.Page, Limit: p.Limit}
}

// Package httpapi exposes the ride-hailing operations as a JSON API on a gorilla/mux
// router, together with health, metrics and the websocket relay endpoint.
package httpapi

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/voyya/internal/auth"
	"github.com/example/voyya/internal/fare"
	"github.com/example/voyya/internal/service"
	"github.com/example/voyya/internal/storage"
)

// Options wires the server. Services, Sessions and Store are required.
type Options struct {
	Services *service.Services
	Sessions *auth.Sessions
	Store    storage.Store
	Quoter   *fare.Quoter
	Relay    http.Handler
	Logger   *slog.Logger

	SessionCookie string
	SessionTTL    time.Duration
	SecureCookie  bool
	DevLogin      bool
	CORSOrigin    string
}

type Server struct {
	opts     Options
	svc      *service.Services
	logger   *slog.Logger
	validate *validator.Validate
	mux      *mux.Router
	handler  http.Handler
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Quoter == nil {
		opts.Quoter = fare.NewQuoter(nil)
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "app_session_id"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 365 * 24 * time.Hour
	}
	s := &Server{
		opts:     opts,
		svc:      opts.Services,
		logger:   opts.Logger,
		validate: newValidator(),
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	s.handler = s.corsMiddleware(s.mux)
	return s
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) routes() {
	const id = "{id:[0-9]+}"
	r := s.mux
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	r.HandleFunc("/ready", s.handleReady).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())
	if s.opts.Relay != nil {
		r.Handle("/ws", s.opts.Relay)
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/me", s.handleMe).Methods("GET")
	api.HandleFunc("/auth/logout", s.handleLogout).Methods("POST")
	if s.opts.DevLogin {
		api.HandleFunc("/auth/session", s.handleDevSession).Methods("POST")
	}

	api.Handle("/profile", s.requireUser(s.handleGetProfile)).Methods("GET")
	api.Handle("/profile", s.requireUser(s.handleCreateProfile)).Methods("POST")
	api.Handle("/profile", s.requireUser(s.handleUpdateProfile)).Methods("PATCH")

	api.Handle("/driver", s.requireUser(s.handleGetDriver)).Methods("GET")
	api.Handle("/driver", s.requireUser(s.handleCreateDriver)).Methods("POST")
	api.Handle("/driver", s.requireUser(s.handleUpdateDriver)).Methods("PATCH")
	api.Handle("/driver/location", s.requireUser(s.handleDriverLocation)).Methods("POST")
	api.Handle("/driver/availability", s.requireUser(s.handleDriverAvailability)).Methods("POST")
	api.HandleFunc("/drivers/available", s.handleAvailableDrivers).Methods("GET")

	api.Handle("/rides", s.requireUser(s.handleCreateRide)).Methods("POST")
	api.Handle("/rides/history/rider", s.requireUser(s.handleRiderHistory)).Methods("GET")
	api.Handle("/rides/history/driver", s.requireUser(s.handleDriverHistory)).Methods("GET")
	api.Handle("/rides/active", s.requireUser(s.handleActiveRides)).Methods("GET")
	api.Handle("/rides/"+id, s.requireUser(s.handleGetRide)).Methods("GET")
	api.Handle("/rides/"+id, s.requireUser(s.handleUpdateRide)).Methods("PATCH")
	api.Handle("/rides/"+id+"/rating", s.requireUser(s.handleGetRating)).Methods("GET")

	api.Handle("/ratings", s.requireUser(s.handleCreateRating)).Methods("POST")
	api.Handle("/users/"+id+"/ratings", s.requireUser(s.handleUserRatings)).Methods("GET")

	api.Handle("/payment-methods", s.requireUser(s.handleListPaymentMethods)).Methods("GET")
	api.Handle("/payment-methods", s.requireUser(s.handleCreatePaymentMethod)).Methods("POST")
	api.Handle("/payment-methods/default", s.requireUser(s.handleDefaultPaymentMethod)).Methods("GET")
	api.Handle("/payment-methods/"+id, s.requireUser(s.handleUpdatePaymentMethod)).Methods("PATCH")

	api.HandleFunc("/fare", s.handleFare).Methods("GET")
	api.HandleFunc("/fare/estimate", s.handleFareEstimate).Methods("GET")

	api.Handle("/ride-requests", s.requireUser(s.handleCreateRideRequest)).Methods("POST")
	api.Handle("/ride-requests/pending", s.requireUser(s.handlePendingRideRequests)).Methods("GET")
	api.Handle("/ride-requests/"+id, s.requireUser(s.handleGetRideRequest)).Methods("GET")
	api.Handle("/ride-requests/"+id, s.requireUser(s.handleUpdateRideRequest)).Methods("PATCH")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.handler.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database not available")
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

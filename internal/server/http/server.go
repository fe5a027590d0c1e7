// Package http exposes the user and upload services over a JSON HTTP API
// routed by chi.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// UserService is the part of services.UserService the API needs.
type UserService interface {
	Signup(ctx context.Context, username, email, password string) (string, error)
	Login(ctx context.Context, usernameOrEmail, password string) (string, error)
	ResolveIdentity(ctx context.Context, token string) (*models.User, error)
	LookupPublic(ctx context.Context, username string) (models.PublicUser, error)
}

type UploadService interface {
	Upload(ctx context.Context, username, filename string, r io.Reader) (string, error)
}

// Options tune the server. Zero timeouts mean none.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadSize   int64
	AllowedOrigins  []string
}

type HTTPServer struct {
	address string
	users   UserService
	uploads UploadService
	logger  logging.Logger
	opts    Options

	mu   sync.Mutex
	addr net.Addr
}

func NewHTTPServer(a string, l logging.Logger, us UserService, up UploadService, opts Options) *HTTPServer {
	if l == nil {
		l = logging.Nop{}
	}
	return &HTTPServer{
		address: a,
		logger:  l.With("module", "http_server"),
		users:   us,
		uploads: up,
		opts:    opts,
	}
}

// Handler builds the router with all middleware attached.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(s.opts.AllowedOrigins))

	r.Get("/", s.root)
	r.Post("/signup", s.signup)
	r.Post("/login", s.login)
	r.Get("/users/{username}", s.user)

	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/users/me", s.me)
		r.Post("/upload", s.upload)
	})

	return r
}

// Addr returns the bound listener address once Run is serving, nil before.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// ShutdownTimeout.
func (s *HTTPServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = listen.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		sctx := context.Background()
		if s.opts.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, s.opts.ShutdownTimeout)
			defer cancel()
		}
		srv.SetKeepAlivesEnabled(false)
		stopped <- srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-stopped
}

// Package server wires the gophauth components together: logger, identity
// store, password hasher, token codec, upload storage and the HTTP API. It
// handles OS signals and shuts everything down in order.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/storage"

	hs "github.com/dmitrijs2005/gophauth/internal/server/http"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	repomanager   repomanager.RepositoryManager
	userService   *services.UserService
	uploadService *services.UploadService
	httpServer    *hs.HTTPServer
}

// NewApp builds every component from c. Logs go to w (stdout when nil).
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if w == nil {
		w = os.Stdout
	}
	logger := logging.New(c.LogLevel, c.LogFormat, w)

	codec, err := auth.NewTokenCodec([]byte(c.SecretKey), auth.WithDefaultTTL(c.DefaultTokenTTL))
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}

	st, err := newStorage(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("upload storage init error: %w", err)
	}

	rm, err := repomanager.New(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	us := services.NewUserService(rm.Users(), auth.NewBcryptHasher(c.BcryptCost), codec, c.AccessTokenValidityDuration, logger)
	ups := services.NewUploadService(st, logger)

	srv := hs.NewHTTPServer(c.EndpointAddrHTTP, logger, us, ups, hs.Options{
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		MaxUploadSize:   c.MaxUploadSize,
		AllowedOrigins:  splitList(c.CORSAllowedOrigins),
	})

	return &App{
		config:        c,
		logger:        logger,
		repomanager:   rm,
		userService:   us,
		uploadService: ups,
		httpServer:    srv,
	}, nil
}

func newStorage(ctx context.Context, c *config.Config) (storage.Storage, error) {
	switch c.UploadBackend {
	case config.UploadBackendS3:
		return storage.NewS3Storage(ctx, storage.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
	case config.UploadBackendLocal, "":
		return storage.NewLocalStorage(c.UploadDir)
	default:
		return nil, fmt.Errorf("unknown upload backend %q", c.UploadBackend)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// closes the identity store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	runErr := app.httpServer.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "http server error", "error", runErr)
	}

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(ctx, "close store", "error", err)
		if runErr == nil {
			runErr = err
		}
	}

	app.logger.Info(ctx, "App stopped")
	return runErr
}

package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/readmeforge/readme-front/internal/auth"
	"github.com/readmeforge/readme-front/internal/config"
	"github.com/readmeforge/readme-front/internal/cookie"
	"github.com/readmeforge/readme-front/internal/idp"
	"github.com/readmeforge/readme-front/internal/log"
	"github.com/readmeforge/readme-front/internal/proxy"
	"github.com/readmeforge/readme-front/internal/server"
	"github.com/readmeforge/readme-front/internal/session"
	"github.com/readmeforge/readme-front/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful drain of in-flight requests
const ShutdownTimeout = 30 * time.Second

// ReadmeFront is the complete session front end
type ReadmeFront struct {
	config     config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
	storage    storage.Storage
}

// NewReadmeFront builds every component from cfg. Missing GitHub credentials
// are not an error: the login endpoint reports them instead.
func NewReadmeFront(ctx context.Context, cfg config.Config) (*ReadmeFront, error) {
	log.LogInfoWithFields("readmefront", "Building readme front", map[string]any{
		"addr":        cfg.Addr,
		"environment": cfg.Environment,
		"storage":     cfg.Storage.Kind,
		"backend":     cfg.BackendURL != "",
	})

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	handler, err := buildHTTPHandler(cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &ReadmeFront{
		config:     cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
		storage:    store,
	}, nil
}

// Handler returns the fully wired HTTP handler
func (f *ReadmeFront) Handler() http.Handler {
	return f.handler
}

// Run serves on the configured address until ctx is cancelled, SIGINT or
// SIGTERM arrives, or the server fails.
func (f *ReadmeFront) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", f.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.config.Addr, err)
	}
	return f.Serve(ctx, l)
}

// Serve runs the application on l. It returns once the server has shut down
// and storage is closed.
func (f *ReadmeFront) Serve(ctx context.Context, l net.Listener) error {
	log.LogInfoWithFields("readmefront", "Starting readme front", map[string]any{
		"addr": l.Addr().String(),
	})
	if !f.config.OAuthConfigured() {
		log.LogWarnWithFields("readmefront", "GitHub OAuth is not configured; logins will be refused", nil)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := f.httpServer.Serve(l); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		reason := "context cancelled"
		if cause := context.Cause(gctx); cause != nil && !errors.Is(cause, context.Canceled) {
			reason = cause.Error()
		}
		log.LogInfoWithFields("readmefront", "Starting graceful shutdown", map[string]any{
			"reason":  reason,
			"timeout": ShutdownTimeout.String(),
		})

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return f.httpServer.Stop(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := f.storage.Close(); closeErr != nil {
		log.LogWarnWithFields("readmefront", "Failed to close storage", map[string]any{
			"error": closeErr.Error(),
		})
	}
	if err != nil {
		log.LogErrorWithFields("readmefront", "Shutdown after error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("readmefront", "Application shutdown complete", nil)
	return nil
}

func setupStorage(ctx context.Context, cfg config.Config) (storage.Storage, error) {
	if cfg.Storage.Kind == config.StorageFirestore {
		log.LogInfoWithFields("storage", "Using Firestore storage", map[string]any{
			"project":    cfg.Storage.GCPProject,
			"database":   cfg.Storage.Database,
			"collection": cfg.Storage.Collection,
		})
		return storage.NewFirestoreStorage(ctx, storage.FirestoreOptions{
			ProjectID:       cfg.Storage.GCPProject,
			Database:        cfg.Storage.Database,
			Collection:      cfg.Storage.Collection,
			CredentialsFile: cfg.Storage.CredentialsFile,
		})
	}

	log.LogInfoWithFields("storage", "Using in-memory storage", nil)
	return storage.NewMemoryStorage(), nil
}

// buildHTTPHandler creates the complete HTTP handler with all routing and middleware
func buildHTTPHandler(cfg config.Config, store storage.Storage) (http.Handler, error) {
	codec, err := session.NewCodec([]byte(cfg.Session.Secret), cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session codec: %w", err)
	}

	provider := idp.NewGitHubProvider(
		cfg.GitHub.ClientID,
		string(cfg.GitHub.ClientSecret),
		cfg.RedirectURI(),
		cfg.GitHub.APIURL,
		idp.WithEndpoint(idp.EnterpriseEndpoint(cfg.GitHub.OAuthURL)),
	)

	verifier := auth.NewVerifier(codec)
	authHandlers := server.NewAuthHandlers(
		auth.NewInitiator(provider),
		auth.NewAuthenticator(provider, codec,
			auth.WithUserDirectory(store),
			auth.WithExchangeTimeout(cfg.GitHub.ExchangeTimeout),
		),
		verifier,
		cookie.NewManager(!cfg.IsDev()),
		cfg.ErrorPath,
	)

	cors := server.NewCORSMiddleware(cfg.AllowedOrigins)
	sessionMiddleware := server.NewSessionMiddleware(verifier)

	// Session sits outside the logger so request logs carry the user.
	// Recovery middleware is last (outermost).
	withAuth := func(h http.Handler) http.Handler {
		return server.ChainMiddleware(h,
			cors,
			server.NewLoggerMiddleware("auth"),
			sessionMiddleware,
			server.NewRecoverMiddleware("auth"),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", server.NewHealthHandler())
	mux.Handle("/auth/login", withAuth(http.HandlerFunc(authHandlers.LoginHandler)))
	mux.Handle(config.CallbackPath, withAuth(http.HandlerFunc(authHandlers.CallbackHandler)))
	mux.Handle("/auth/logout", withAuth(http.HandlerFunc(authHandlers.LogoutHandler)))
	mux.Handle("/auth/verify", withAuth(http.HandlerFunc(authHandlers.VerifyHandler)))

	if cfg.BackendURL != "" {
		generation, err := proxy.NewGenerationProxy(proxy.Config{
			BaseURL: cfg.BackendURL,
			Prefix:  "/api",
			Timeout: cfg.BackendTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create generation proxy: %w", err)
		}
		mux.Handle("/api/", server.ChainMiddleware(generation,
			server.NewRequireSessionMiddleware(verifier),
			cors,
			server.NewLoggerMiddleware("api"),
			sessionMiddleware,
			server.NewRecoverMiddleware("api"),
		))
		log.LogInfoWithFields("server", "Generation backend enabled", map[string]any{
			"backend": cfg.BackendURL,
		})
	}

	log.LogInfoWithFields("server", "Readme front initialized", map[string]any{
		"oauthConfigured": cfg.OAuthConfigured(),
		"allowedOrigins":  cfg.AllowedOrigins,
	})
	return mux, nil
}

// Command mcpstudio runs the MCP definition studio: accounts, document
// ingestion, scoped retrieval, structured definition generation, the
// assistance endpoints, and test runs, backed by one SQLite database.
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"

	"github.com/hazyhaar/mcpstudio/auth"
	"github.com/hazyhaar/mcpstudio/dbopen"
	"github.com/hazyhaar/mcpstudio/docpipe"
	"github.com/hazyhaar/mcpstudio/embedding"
	"github.com/hazyhaar/mcpstudio/llm"
	"github.com/hazyhaar/mcpstudio/observability"
	"github.com/hazyhaar/mcpstudio/shield"
	"github.com/hazyhaar/mcpstudio/studio"
	"github.com/hazyhaar/mcpstudio/vecindex"
)

func main() {
	port := env("PORT", "8090")
	dbPath := env("DB_PATH", "db/mcpstudio.db")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	secretInput := os.Getenv("SESSION_SECRET")
	if secretInput == "" {
		slog.Error("SESSION_SECRET is required")
		os.Exit(1)
	}
	// Derive a fixed-size JWT secret from whatever the operator provides.
	secretHash := sha256.Sum256([]byte(secretInput))
	jwtSecret := secretHash[:]

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// One SQLite database holds accounts, MCP records, vector entries,
	// rate-limit config and the observability tables.
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("open db", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := shield.Init(db); err != nil {
		slog.Error("shield schema", "error", err)
		os.Exit(1)
	}
	if err := observability.Init(db); err != nil {
		slog.Error("observability schema", "error", err)
		os.Exit(1)
	}

	// Observability: business events, buffered metrics, audit trail,
	// worker liveness.
	events := observability.NewEventLogger(db)
	metrics := observability.NewMetricsManager(db, 256, 10*time.Second)
	defer metrics.Close()
	auditLog := observability.NewAuditLogger(db, 256)
	defer auditLog.Close()
	heartbeat := observability.NewHeartbeatWriter(db, "mcpstudio", 15*time.Second)
	heartbeat.Start(ctx)
	defer heartbeat.Stop()

	// Embedding client. Without an endpoint a noop embedder keeps the
	// service running; retrieval returns nothing useful until one is set.
	emb := embedding.New(embedding.Config{
		Endpoint: os.Getenv("EMBED_ENDPOINT"),
		APIKey:   os.Getenv("EMBED_API_KEY"),
		Model:    env("EMBED_MODEL", "nomic-embed-text"),
		Logger:   logger,
	})

	// Vector index: remote server when VECTOR_ENDPOINT is set, embedded
	// SQLite otherwise. An unreachable remote is fatal here rather than on
	// the first ingest.
	idx, err := vecindex.NewProvider(vecindex.ProviderConfig{
		Endpoint: os.Getenv("VECTOR_ENDPOINT"),
		APIKey:   os.Getenv("VECTOR_API_KEY"),
		DB:       db,
		Logger:   logger,
	}).Get(ctx)
	if err != nil {
		slog.Error("vector index", "error", err)
		os.Exit(1)
	}

	// Chat model client.
	model := llm.New(llm.Config{
		Endpoint: os.Getenv("LLM_ENDPOINT"),
		APIKey:   os.Getenv("LLM_API_KEY"),
		Model:    env("LLM_MODEL", "gpt-4o-mini"),
		Logger:   logger,
	})

	svc, err := studio.New(db, emb, idx, model, &studio.Config{
		UploadDir: env("UPLOAD_DIR", "data/uploads"),
	}, logger,
		studio.WithMetrics(metrics),
		studio.WithAudit(auditLog))
	if err != nil {
		slog.Error("studio service", "error", err)
		os.Exit(1)
	}

	// Optional MCP tool surface over stdio.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "mcpstudio",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)
		docpipe.New(docpipe.Config{Logger: logger}).RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
		}()
	}

	// Optional Google login, enabled by GOOGLE_CLIENT_ID.
	googleOAuth := googleProvider()

	// Router.
	r := chi.NewRouter()
	rl := shield.NewRateLimiter(db)
	rl.StartReloader(ctx.Done(), time.Minute)
	for _, mw := range shield.APIStack(rl) {
		r.Use(mw)
	}
	r.Use(auth.Middleware(jwtSecret)) // Parse JWT on all routes (soft, doesn't enforce).

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public auth endpoints (no session required).
	r.Post("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string `json:"email"`
			Password    string `json:"password"`
			DisplayName string `json:"display_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		acc, err := svc.RegisterUser(r.Context(), req.Email, req.Password, req.DisplayName)
		if errors.Is(err, studio.ErrEmailTaken) {
			writeJSON(w, 409, map[string]string{"error": "email already registered"})
			return
		}
		if errors.Is(err, studio.ErrInvalidInput) {
			writeError(w, 400, err)
			return
		}
		if err != nil {
			writeError(w, 500, err)
			return
		}
		events.LogEvent(r.Context(), observability.BusinessEvent{
			EventType:   "user_registered",
			ServiceName: "mcpstudio",
			EntityType:  "user",
			EntityID:    acc.ID,
			UserID:      acc.ID,
			Action:      "register",
			Success:     true,
		})
		issueSession(w, r, jwtSecret, acc)
	})

	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		acc, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeJSON(w, 401, map[string]string{"error": "invalid credentials"})
			return
		}
		issueSession(w, r, jwtSecret, acc)
	})

	r.Post("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		auth.ClearTokenCookie(w, "")
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	if googleOAuth != nil {
		r.Get("/api/auth/google", func(w http.ResponseWriter, r *http.Request) {
			state := randomState()
			http.SetCookie(w, &http.Cookie{
				Name:     "oauth_state",
				Value:    state,
				Path:     "/",
				MaxAge:   300,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			http.Redirect(w, r, googleOAuth.AuthCodeURL(state), http.StatusFound)
		})

		r.Get("/api/auth/google/callback", func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie("oauth_state")
			if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
				writeJSON(w, 400, map[string]string{"error": "oauth state mismatch"})
				return
			}
			gu, _, err := auth.FetchGoogleUser(r.Context(), googleOAuth, r.URL.Query().Get("code"))
			if err != nil {
				writeError(w, 502, err)
				return
			}
			acc, err := svc.UpsertOAuthUser(r.Context(), gu.Email, gu.Name, gu.AvatarURL, "google")
			if err != nil {
				writeError(w, 500, err)
				return
			}
			issueSession(w, r, jwtSecret, acc)
		})
	}

	// Authenticated API surface.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			c := auth.GetClaims(r.Context())
			writeJSON(w, 200, map[string]string{
				"id":            c.UserID,
				"email":         c.Email,
				"display_name":  c.DisplayName,
				"avatar_url":    c.AvatarURL,
				"auth_provider": c.AuthProvider,
			})
		})

		svc.RegisterRoutes(r)
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// googleProvider builds the Google OAuth config, or nil when not configured.
func googleProvider() *oauth2.Config {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	if clientID == "" {
		return nil
	}
	return auth.NewGoogleProvider(auth.OAuthConfig{
		ClientID:     clientID,
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:  env("GOOGLE_REDIRECT_URL", "http://localhost:8090/api/auth/google/callback"),
	})
}

// issueSession mints a JWT for the account and sets the session cookie.
func issueSession(w http.ResponseWriter, r *http.Request, secret []byte, acc *studio.Account) {
	claims := &auth.Claims{
		UserID:       acc.ID,
		Email:        acc.Email,
		DisplayName:  acc.DisplayName,
		AvatarURL:    acc.AvatarURL,
		AuthProvider: acc.AuthProvider,
	}
	token, err := auth.GenerateToken(secret, claims, 24*time.Hour)
	if err != nil {
		writeError(w, 500, err)
		return
	}
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
	auth.SetTokenCookie(w, token, "", secure)
	writeJSON(w, 200, map[string]string{
		"id":           acc.ID,
		"email":        acc.Email,
		"display_name": acc.DisplayName,
	})
}

func randomState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// --- Helpers ---

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

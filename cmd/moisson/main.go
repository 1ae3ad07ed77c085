// Command moisson serves the profile harvesting pipeline over HTTP and
// MCP, or runs a single harvest from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/moisson/config"
	"github.com/hazyhaar/moisson/finfeed"
	"github.com/hazyhaar/moisson/harvest"
	"github.com/hazyhaar/moisson/kit"
	"github.com/hazyhaar/moisson/session"
	"github.com/hazyhaar/moisson/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration")
		ticker     = flag.String("ticker", "", "run one harvest and print the result")
		listen     = flag.String("listen", "", "HTTP listen address (overrides config)")
		mcpStdio   = flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
		logLevel   = flag.String("log-level", "info", "debug | info | warn | error")
	)
	flag.Parse()

	var lvl slog.Level
	switch *logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			slog.Error("load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	feeds := finfeed.New(finfeed.Config{
		BaseURLs: cfg.Feeds.BaseURLs,
		Timeout:  cfg.Feeds.Timeout,
		Logger:   logger,
	})

	harvester := harvest.New(harvest.Options{
		Config: harvest.Config{
			PromptTemplate:  cfg.Harvest.PromptTemplate,
			MinAcceptChars:  cfg.Harvest.MinAcceptChars,
			PollInterval:    cfg.Harvest.PollInterval,
			StabilizeWindow: cfg.Harvest.StabilizeWindow,
			Rereads:         cfg.Harvest.Rereads,
			RereadInterval:  cfg.Harvest.RereadInterval,
			RereadStable:    cfg.Harvest.RereadStable,
			DirectTimeout:   cfg.Harvest.DirectTimeout,
			CopyTimeout:     cfg.Harvest.CopyTimeout,
			ScrapeTimeout:   cfg.Harvest.ScrapeTimeout,
			Logger:          logger,
		},
		Session: session.Config{
			SurfaceURL:      cfg.Surface.URL,
			ProfileDir:      cfg.Surface.ProfileDir,
			Headless:        cfg.Surface.Headless,
			Proxy:           cfg.Surface.Proxy,
			NavigateTimeout: cfg.Surface.NavigateTimeout,
			LoginGrace:      cfg.Surface.LoginGrace,
			Logger:          logger,
		},
		SelectorMemoryPath: cfg.Harvest.SelectorMemory,
	})

	app := &app{cfg: cfg, store: st, feeds: feeds, harvester: harvester}

	switch {
	case *ticker != "":
		os.Exit(app.runOnce(ctx, *ticker))
	case *mcpStdio:
		srv := mcp.NewServer(&mcp.Implementation{Name: "moisson", Version: "1.0.0"}, nil)
		harvester.RegisterMCP(srv)
		slog.Info("mcp server starting", "transport", "stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("mcp server", "error", err)
			os.Exit(1)
		}
	default:
		app.serveHTTP(ctx)
	}
}

type app struct {
	cfg       *config.Config
	store     *store.Store
	feeds     *finfeed.Client
	harvester *harvest.Harvester
}

// runOnce harvests one ticker and prints the result to stdout.
func (a *app) runOnce(ctx context.Context, ticker string) int {
	res, err := a.harvestAndPersist(ctx, ticker)
	if err != nil {
		slog.Error("harvest", "ticker", ticker, "error", err)
		return 1
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		slog.Error("encode result", "error", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// harvestAndPersist runs one harvest and stores complete profiles.
func (a *app) harvestAndPersist(ctx context.Context, ticker string) (*harvest.Result, error) {
	res, err := a.harvester.Run(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if res.Profile != nil {
		payload, err := json.Marshal(res.Profile)
		if err != nil {
			return nil, fmt.Errorf("encode profile: %w", err)
		}
		if err := a.store.Upsert(ctx, res.Ticker, a.cfg.Store.SourceLabel, payload); err != nil {
			slog.Error("persist profile", "ticker", res.Ticker, "error", err)
		}
	}
	return res, nil
}

func (a *app) serveHTTP(ctx context.Context) {
	// Bound concurrent harvests; each one owns a whole browser.
	sem := make(chan struct{}, a.cfg.Server.MaxConcurrent)

	r := chi.NewRouter()
	r.Use(requestContext)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/profiles", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			tickers, err := a.store.Tickers(req.Context())
			if err != nil {
				writeError(w, 500, err)
				return
			}
			if tickers == nil {
				tickers = []string{}
			}
			writeJSON(w, 200, map[string]any{"tickers": tickers})
		})

		r.Get("/{ticker}", func(w http.ResponseWriter, req *http.Request) {
			tk := chi.URLParam(req, "ticker")
			data, updated, err := a.store.Get(req.Context(), tk)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, 404, err)
				return
			}
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, map[string]any{
				"ticker":     tk,
				"profiles":   json.RawMessage(data),
				"updated_at": updated.UTC().Format(time.RFC3339),
			})
		})

		r.Get("/{ticker}/feed", func(w http.ResponseWriter, req *http.Request) {
			tk := chi.URLParam(req, "ticker")
			data, err := a.feeds.Fetch(req.Context(), tk)
			if err != nil {
				writeError(w, 502, err)
				return
			}
			if data == nil {
				writeJSON(w, 200, map[string]any{"ticker": tk, "feed": nil})
				return
			}
			writeJSON(w, 200, map[string]any{"ticker": tk, "feed": json.RawMessage(data)})
		})

		r.With(a.requireAdmin).Post("/{ticker}/harvest", func(w http.ResponseWriter, req *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			default:
				writeError(w, 429, errors.New("harvest capacity exhausted"))
				return
			}

			res, err := a.harvestAndPersist(req.Context(), chi.URLParam(req, "ticker"))
			if err != nil {
				writeError(w, harvestStatus(err), err)
				return
			}
			writeJSON(w, 200, res)
		})
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Harvests run inside the request; keep writes open long enough.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", a.cfg.Server.Listen)
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

// requireAdmin enforces HTTP Basic credentials when a password hash is
// configured. Without one, mutating endpoints are open (lab setups).
func (a *app) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hash := a.cfg.Server.AdminPassHash
		if hash == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != a.cfg.Server.AdminUser ||
			bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="moisson"`)
			writeJSON(w, 401, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestContext tags each request for downstream logging.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
		ctx = kit.WithRequestID(ctx, id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func harvestStatus(err error) int {
	switch {
	case errors.Is(err, harvest.ErrInvalidTicker):
		return 400
	case errors.Is(err, harvest.ErrAcquisitionTimeout):
		return 504
	case errors.Is(err, session.ErrInputNotFound),
		errors.Is(err, session.ErrNavigationTimeout):
		return 502
	default:
		return 500
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

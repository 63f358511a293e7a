// Package api is the HTTP control plane the web panel drives: status,
// logs, announcements, tickets, moderation, and configuration, plus
// health and metrics endpoints for the hosting platform.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fty-club-bot/internal/bot"
	"fty-club-bot/internal/botlog"
	"fty-club-bot/internal/config"
	"fty-club-bot/internal/moderation"
	"fty-club-bot/internal/monitoring"
	"fty-club-bot/internal/panel"
	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/tickets"

	"github.com/alexliesenfeld/health"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	cfg        config.Config
	store      *storage.Store
	ring       *botlog.Ring
	panel      *panel.Client
	bot        *bot.Bot
	tickets    *tickets.Manager
	dispatcher *moderation.Dispatcher
	logger     *zap.Logger

	http *http.Server
}

func NewServer(cfg config.Config, store *storage.Store, ring *botlog.Ring, panelClient *panel.Client,
	b *bot.Bot, manager *tickets.Manager, dispatcher *moderation.Dispatcher, logger *zap.Logger) *Server {

	s := &Server{
		cfg:        cfg,
		store:      store,
		ring:       ring,
		panel:      panelClient,
		bot:        b,
		tickets:    manager,
		dispatcher: dispatcher,
		logger:     logger,
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Get("/status", s.handleStatus)
		r.Get("/logs", s.handleLogs)
		r.Post("/update-status", s.handleUpdateStatus)
		r.Post("/send-dm", s.handleSendDM)
		r.Post("/announce", s.handleAnnounce)
		r.Post("/announce-match", s.handleAnnounceMatch)
		r.Post("/patch-notes", s.handlePatchNotes)
		r.Get("/tickets", s.handleListTickets)
		r.Post("/ticket", s.handleTicketAction)
		r.Post("/moderate", s.handleModerate)
		r.Post("/notify-poste", s.handleNotifyPoste)
		r.Post("/notify-sanction", s.handleNotifySanction)
		r.Get("/server-config", s.handleGetServerConfig)
		r.Post("/server-config", s.handlePatchServerConfig)
		r.Get("/guild-channels", s.handleGuildChannels)
		r.Get("/guild-roles", s.handleGuildRoles)
		r.Post("/bot", s.handleBotInbound)
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info("control plane listening", zap.String("addr", s.cfg.ListenAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}
		monitoring.HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}

// requireAPIKey accepts the key either as the X-Api-Key header or as
// the apiKey field of a JSON body (the panel uses both forms). The
// body is restored for the handler. With no key configured the check
// is disabled.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.PanelAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") == s.cfg.PanelAPIKey {
			next.ServeHTTP(w, r)
			return
		}

		if r.Body != nil {
			raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err == nil {
				r.Body = io.NopCloser(bytes.NewReader(raw))
				var creds struct {
					APIKey string `json:"apiKey"`
				}
				if json.Unmarshal(raw, &creds) == nil && creds.APIKey == s.cfg.PanelAPIKey {
					next.ServeHTTP(w, r)
					return
				}
			}
		}

		writeError(w, http.StatusUnauthorized, "Clé API invalide")
	})
}

func (s *Server) healthHandler() http.HandlerFunc {
	checker := health.NewChecker(
		health.WithCacheDuration(2*time.Second),
		health.WithTimeout(5*time.Second),
		health.WithCheck(health.Check{
			Name: "discord-gateway",
			Check: func(ctx context.Context) error {
				if !s.bot.Ready() {
					return errors.New("gateway session not ready")
				}
				return nil
			},
		}),
		health.WithCheck(health.Check{
			Name: "config-store",
			Check: func(ctx context.Context) error {
				return s.store.Ping()
			},
		}),
	)
	return health.NewHandler(checker)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

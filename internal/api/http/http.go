// Package httpapi is the small operational surface: health, manual report
// trigger and report preview. Report generation itself runs on the
// scheduler, not behind these endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/wickery/storepulse/internal/dependency"
	"github.com/wickery/storepulse/internal/entity"
)

// Config is the configuration for the http server
type Config struct {
	Port           string   `mapstructure:"port"`
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReportService is the part of the report service the API exposes.
type ReportService interface {
	TriggerFor(ctx context.Context, email, name string) error
	Preview(ctx context.Context, weekStart time.Time, includeTrends bool) (*entity.WeeklyReport, error)
}

// Server is the http server
type Server struct {
	hs   *http.Server
	c    *Config
	svc  ReportService
	rep  dependency.Repository
	done chan struct{}
}

// New creates a new server
func New(config *Config, svc ReportService, rep dependency.Repository) *Server {
	return &Server{
		c:    config,
		svc:  svc,
		rep:  rep,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the http server exits
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.c.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length", "Authorization"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/report", func(r chi.Router) {
		r.Post("/trigger", s.handleTrigger)
		r.Get("/preview", s.handlePreview)
	})
	return r
}

// Start starts the server
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	listenerAddr := fmt.Sprintf("%s:%s", s.c.Address, s.c.Port)
	s.hs = &http.Server{
		Addr:    listenerAddr,
		Handler: s.router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = s.hs.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Default().InfoContext(ctx, fmt.Sprintf("storepulse listener on: http://%v", listenerAddr))
		err := s.hs.ListenAndServe()
		if err == http.ErrServerClosed {
			slog.Default().InfoContext(ctx, "http server returned")
		} else {
			slog.Default().ErrorContext(ctx, "http server exited with an error",
				slog.String("err", err.Error()),
			)
		}
		cancel()
		close(s.done)
	}()

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rep.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"db":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type triggerRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if !govalidator.IsEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}

	if err := s.svc.TriggerFor(r.Context(), req.Email, req.Name); err != nil {
		slog.Default().ErrorContext(r.Context(), "can't trigger report",
			slog.String("email", req.Email),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "email": req.Email})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var weekStart time.Time
	if ws := r.URL.Query().Get("week_start"); ws != "" {
		t, err := time.Parse("2006-01-02", ws)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week_start must be YYYY-MM-DD")
			return
		}
		weekStart = t
	}
	includeTrends := r.URL.Query().Get("trends") != "false"

	rep, err := s.svc.Preview(r.Context(), weekStart, includeTrends)
	if err != nil {
		slog.Default().ErrorContext(r.Context(), "can't build preview",
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "report generation failed")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

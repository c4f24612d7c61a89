package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wo-matcher/internal/config"
	"github.com/sells-group/wo-matcher/internal/export"
	"github.com/sells-group/wo-matcher/internal/matcher"
	"github.com/sells-group/wo-matcher/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP matching server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initMatchEnv(ctx, "serve")
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Engine, env.Orders, env.Registry, cfg.Server, cfg.Matching.ConfidenceThreshold),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("work_orders", len(env.Orders)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// matchRequest is the body of POST /v1/match.
type matchRequest struct {
	Text          string `json:"text"`
	ExpectedCount int    `json:"expected_count"`
	MinConfidence *int   `json:"min_confidence,omitempty"`
}

// buildRouter wires the HTTP routes. reg may be nil to omit /metrics.
func buildRouter(eng *matcher.Engine, orders []model.WorkOrder, reg *prometheus.Registry, sc config.ServerConfig, threshold int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	origins := sc.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "work_orders": len(orders)})
	})

	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	maxBody := sc.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	r.Post("/v1/match", func(w http.ResponseWriter, r *http.Request) {
		if eng == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "matcher not configured"})
			return
		}

		var req matchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Text == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
			return
		}

		log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))

		res, err := eng.Match(r.Context(), req.Text, orders, req.ExpectedCount)
		if err != nil {
			if matcher.Classify(err) == matcher.ClassInputRejected {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			log.Error("match request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "matching aborted"})
			return
		}

		minConf := threshold
		if req.MinConfidence != nil {
			minConf = *req.MinConfidence
		}
		status := http.StatusOK
		if !res.Success {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, export.FromResult(applyThreshold(res, minConf)))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

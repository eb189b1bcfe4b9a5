package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/payscore/internal/model"
	"github.com/sells-group/payscore/internal/scoring"
	"github.com/sells-group/payscore/internal/source"
)

var (
	servePort  int
	serveLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the payment-risk scoring HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env, serveLimit),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().IntVar(&serveLimit, "limit", 100, "maximum number of customers per bulk request")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the API routes. Separated from the serve command so tests
// can drive the handlers through httptest without binding a port.
func newRouter(env *Env, limit int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/customers", func(r chi.Router) {
		r.Get("/payment-scores", func(w http.ResponseWriter, req *http.Request) {
			report, err := scoreAll(req.Context(), env, requestLimit(req, limit))
			if err != nil {
				writeSourceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, report)
		})

		r.Get("/high-risk", func(w http.ResponseWriter, req *http.Request) {
			report, err := scoreAll(req.Context(), env, requestLimit(req, limit))
			if err != nil {
				writeSourceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, scoring.FilterHighRisk(scoring.Scores(report)))
		})

		r.Get("/followups", func(w http.ResponseWriter, req *http.Request) {
			report, err := scoreAll(req.Context(), env, requestLimit(req, limit))
			if err != nil {
				writeSourceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, scoring.GroupFollowups(scoring.Scores(report)))
		})

		r.Get("/{customerID}/score", func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			customerID := chi.URLParam(req, "customerID")

			customer, err := env.Source.GetCustomer(ctx, customerID)
			if err != nil {
				writeSourceError(w, err)
				return
			}
			invoices, err := env.Source.GetInvoices(ctx, customerID)
			if err != nil {
				writeSourceError(w, err)
				return
			}
			payments, err := env.Source.GetPayments(ctx, customerID)
			if err != nil {
				writeSourceError(w, err)
				return
			}

			score := env.Resolver.Resolve(ctx, *customer, invoices, payments, time.Now().UTC())
			writeJSON(w, http.StatusOK, score)
		})

		r.Get("/{customerID}/insights", func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			customerID := chi.URLParam(req, "customerID")

			insights, err := customerInsights(ctx, env, customerID)
			if err != nil {
				writeSourceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, insights)
		})
	})

	return r
}

// requestLimit honors an optional ?limit= query parameter, capped at the
// server's configured maximum.
func requestLimit(req *http.Request, maxLimit int) int {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return maxLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		return maxLimit
	}
	return n
}

// customerInsights builds the detailed payment-behavior view for one
// customer. The narrative comes from the deterministic renderer regardless
// of which path produced the score.
func customerInsights(ctx context.Context, env *Env, customerID string) (*model.CustomerInsights, error) {
	customer, err := env.Source.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	invoices, err := env.Source.GetInvoices(ctx, customerID)
	if err != nil {
		return nil, err
	}
	payments, err := env.Source.GetPayments(ctx, customerID)
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	score := env.Resolver.Resolve(ctx, *customer, invoices, payments, asOf)

	return &model.CustomerInsights{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		Insights:      scoring.RenderInsights(score),
		TrendAnalysis: scoring.TrendAnalysis(invoices, asOf),
		TotalInvoices: len(invoices),
		Invoices:      invoices,
	}, nil
}

func scoreAll(ctx context.Context, env *Env, limit int) (*model.BatchReport, error) {
	customers, err := env.Source.ListCustomers(ctx, limit)
	if err != nil {
		return nil, err
	}
	return env.Resolver.ResolveAll(ctx, customers, env.Source, time.Now().UTC()), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

// writeSourceError maps record-source failures onto HTTP statuses. Customer
// lookups that miss are 404, upstream auth failures are 401, and everything
// else is a 502 since the failure belongs to the system of record, not us.
func writeSourceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	kind, ok := source.KindOf(err)
	if !ok {
		zap.L().Error("unexpected handler error", zap.Error(err))
	}
	switch kind {
	case source.KindNotFound:
		status = http.StatusNotFound
	case source.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

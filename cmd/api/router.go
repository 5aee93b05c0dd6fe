package main

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/metrics"
)

func newRouter(db *sql.DB, cfg *config.Config, logger zerolog.Logger, tokens *auth.TokenManager, m *metrics.ServerMetrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(requestMetrics(m))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	optionalAuth := auth.Middleware(tokens, db, false)
	requireAuth := auth.Middleware(tokens, db, true)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(db, cfg, tokens, logger))
		r.Post("/login", handleLogin(db, tokens))
		r.With(requireAuth).Get("/me", handleMe(db))
	})

	r.Route("/products", func(r chi.Router) {
		r.With(optionalAuth).Get("/", handleListProducts(db, cfg, logger))
		r.With(requireAuth).Get("/trashed", handleListTrashed(db, logger))
		r.With(optionalAuth).Get("/{id}", handleGetProduct(db, logger))
		r.With(requireAuth).Post("/", handleCreateProduct(db, logger))
		r.With(requireAuth).Patch("/{id}", handleUpdateProduct(db, logger))
		r.With(requireAuth).Delete("/{id}", handleSoftDeleteProduct(db, logger))
		r.With(requireAuth).Post("/{id}/restore", handleRestoreProduct(db, logger))
		r.With(requireAuth).Delete("/{id}/purge", handleHardDeleteProduct(db, logger))
		r.With(requireAuth).Patch("/sizes/{id}", handleUpdateSize(db, logger))
	})

	r.Route("/categories", func(r chi.Router) {
		r.With(optionalAuth).Get("/", handleListCategories(db, logger))
		r.With(requireAuth).Post("/", handleCreateCategory(db, logger))
		r.With(requireAuth).Patch("/{id}", handleRenameCategory(db, logger))
		r.With(requireAuth).Delete("/{id}", handleDeleteCategory(db, logger))
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", handleGetCart(db, logger))
		r.Post("/items", handleUpsertCartItem(db, logger))
		r.Patch("/items/{id}", handleUpdateCartItem(db, logger))
		r.Delete("/items/{id}", handleRemoveCartItem(db, logger))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", handlePlaceOrder(db, logger, m))
		r.Get("/", handleListOrders(db, logger))
		r.Get("/cancellations", handleListCancellations(db, logger))
		r.Patch("/cancellations/{id}", handleDecideCancellation(db, logger))
		r.Get("/{id}", handleGetOrder(db, logger))
		r.Patch("/{id}/status", handleSetOrderStatus(db, logger))
		r.Post("/{id}/cancellation", handleSubmitCancellation(db, logger))
	})

	return r
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func requestMetrics(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

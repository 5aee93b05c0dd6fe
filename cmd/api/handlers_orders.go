package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/store"
)

func handlePlaceOrder(db *sql.DB, logger zerolog.Logger, m *metrics.ServerMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Shipping json.RawMessage `json:"shipping"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := store.PlaceOrder(r.Context(), db, identityFrom(r), req.Shipping)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}

		m.OrdersPlaced.Inc()
		respondJSON(w, http.StatusCreated, order)
	}
}

func handleListOrders(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := store.ListOrders(r.Context(), db, identityFrom(r))
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, orders)
	}
}

func handleGetOrder(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid order id")
			return
		}

		order, err := store.GetOrder(r.Context(), db, identityFrom(r), id)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func handleSetOrderStatus(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		order, err := store.SetOrderStatus(r.Context(), db, identityFrom(r), id, req.Status)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, order)
	}
}

func handleSubmitCancellation(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid order id")
			return
		}

		var req struct {
			Reason *string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		request, err := store.SubmitCancellation(r.Context(), db, identityFrom(r), id, req.Reason)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, request)
	}
}

func handleListCancellations(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := store.ListCancellations(r.Context(), db, identityFrom(r))
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, requests)
	}
}

func handleDecideCancellation(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid cancellation request id")
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		request, err := store.DecideCancellation(r.Context(), db, identityFrom(r), id, req.Status)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, request)
	}
}

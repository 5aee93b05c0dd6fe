package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/store"
)

func handleGetCart(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := store.GetCart(r.Context(), db, identityFrom(r).ID)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, cart)
	}
}

func handleUpsertCartItem(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cart, err := store.UpsertCartItem(r.Context(), db, identityFrom(r).ID, req.ProductID, req.Quantity)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, cart)
	}
}

func handleUpdateCartItem(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid cart item id")
			return
		}

		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cart, err := store.UpdateCartItem(r.Context(), db, identityFrom(r).ID, id, req.Quantity)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, cart)
	}
}

func handleRemoveCartItem(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid cart item id")
			return
		}

		cart, err := store.RemoveCartItem(r.Context(), db, identityFrom(r).ID, id)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, cart)
	}
}

package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/store"
)

func handleListProducts(db *sql.DB, cfg *config.Config, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := store.ListActive(r.Context(), db, cfg.Catalog.TrashRetention)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, products)
	}
}

func handleListTrashed(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := store.ListTrashed(r.Context(), db, identityFrom(r))
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, products)
	}
}

func handleGetProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid product id")
			return
		}

		product, err := store.GetActive(r.Context(), db, id)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	}
}

func handleCreateProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input store.ProductInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		product, err := store.CreateProduct(r.Context(), db, identityFrom(r), input)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, product)
	}
}

func handleUpdateProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid product id")
			return
		}

		var input store.ProductInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		product, err := store.UpdateProduct(r.Context(), db, identityFrom(r), id, input)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, product)
	}
}

func handleSoftDeleteProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := store.SoftDeleteProduct(r.Context(), db, identityFrom(r), id); err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusNoContent, nil)
	}
}

func handleRestoreProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := store.RestoreProduct(r.Context(), db, identityFrom(r), id); err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusNoContent, nil)
	}
}

func handleHardDeleteProduct(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := store.HardDeleteProduct(r.Context(), db, identityFrom(r), id); err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusNoContent, nil)
	}
}

func handleUpdateSize(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid size id")
			return
		}

		var patch store.SizePatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		size, err := store.UpdateSize(r.Context(), db, identityFrom(r), id, patch)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, size)
	}
}

func handleListCategories(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := store.ListCategories(r.Context(), db)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, categories)
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

func handleCreateCategory(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		category, err := store.CreateCategory(r.Context(), db, identityFrom(r), req.Name)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, category)
	}
}

func handleRenameCategory(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid category id")
			return
		}

		var req categoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		category, err := store.RenameCategory(r.Context(), db, identityFrom(r), id, req.Name)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusOK, category)
	}
}

func handleDeleteCategory(db *sql.DB, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			respondMessage(w, http.StatusBadRequest, "invalid category id")
			return
		}

		if err := store.DeleteCategory(r.Context(), db, identityFrom(r), id); err != nil {
			respondStoreError(w, logger, err)
			return
		}
		respondJSON(w, http.StatusNoContent, nil)
	}
}

package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondStoreError maps the store error taxonomy onto HTTP statuses.
// Internal failures are logged with full context and surfaced opaquely.
func respondStoreError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	kind := store.KindOf(err)
	if kind == store.KindInternal {
		logger.Error().Err(err).Msg("internal error")
		respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var storeErr *store.Error
	message := err.Error()
	if e, ok := err.(*store.Error); ok {
		storeErr = e
		message = storeErr.Message
	}

	respondMessage(w, statusForKind(kind), message)
}

func statusForKind(kind store.Kind) int {
	switch kind {
	case store.KindValidation:
		return http.StatusBadRequest
	case store.KindUnauthorized:
		return http.StatusUnauthorized
	case store.KindForbidden:
		return http.StatusForbidden
	case store.KindNotFound:
		return http.StatusNotFound
	case store.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func identityFrom(r *http.Request) models.Identity {
	identity, _ := auth.IdentityFrom(r.Context())
	return identity
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

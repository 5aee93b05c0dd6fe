package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

func handleRegister(db *sql.DB, cfg *config.Config, tokens *auth.TokenManager, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondMessage(w, http.StatusBadRequest, "email and password are required")
			return
		}

		hash, err := auth.HashPassword(req.Password, cfg.Auth.BcryptCost)
		if err != nil {
			respondMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		user, err := store.CreateUser(r.Context(), db, req.Email, hash)
		if err != nil {
			respondStoreError(w, logger, err)
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			respondMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, http.StatusCreated, authResponse{
			Token: token,
			User:  models.UserSummary{ID: user.ID, Email: user.Email, Role: user.Role},
		})
	}
}

func handleLogin(db *sql.DB, tokens *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Email == "" || req.Password == "" {
			respondMessage(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := store.GetUserByEmail(r.Context(), db, req.Email)
		if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			respondMessage(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := tokens.Issue(user)
		if err != nil {
			respondMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		respondJSON(w, http.StatusOK, authResponse{
			Token: token,
			User:  models.UserSummary{ID: user.ID, Email: user.Email, Role: user.Role},
		})
	}
}

func handleMe(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := identityFrom(r)

		user, err := store.GetUserByID(r.Context(), db, identity.ID)
		if err != nil {
			respondMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		respondJSON(w, http.StatusOK, models.UserSummary{ID: user.ID, Email: user.Email, Role: user.Role})
	}
}

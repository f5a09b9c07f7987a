// Authentication service: signs accounts up and in and issues the JWT
// tokens accepted by the POS service.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gartstein/pdv/internal/pos/auth"
	"github.com/gartstein/pdv/internal/pos/config"
	gorm "github.com/gartstein/pdv/internal/pos/db"
	e "github.com/gartstein/pdv/internal/pos/errors"
	"github.com/gartstein/pdv/internal/pos/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultPort = 8081

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TokenResponse represents the response structure
type TokenResponse struct {
	Token   string          `json:"token"`
	Account accountResponse `json:"account"`
}

type server struct {
	accounts *auth.Accounts
	logger   *zap.Logger
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := gorm.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	s := &server{
		accounts: auth.NewAccounts(repo, cfg.JWTSecret, logger),
		logger:   logger.Named("auth_http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /signup", s.signUp)
	mux.HandleFunc("POST /signin", s.signIn)
	mux.HandleFunc("PATCH /v1/profile", s.updateProfile)

	port := cfg.AuthPort
	if port == 0 {
		port = defaultPort
	}
	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           auth.HTTPMiddleware(mux, cfg.JWTSecret),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Authentication service running", zap.Int("port", port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("authentication service failed", zap.Error(err))
	}
}

func (s *server) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	session, err := s.accounts.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusCreated, tokenResponse(session))
}

func (s *server) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	session, err := s.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusOK, tokenResponse(session))
}

func (s *server) updateProfile(w http.ResponseWriter, r *http.Request) {
	sub, _ := auth.UserID(r.Context())
	id, err := uuid.Parse(sub)
	if err != nil {
		http.Error(w, "token subject is not an account", http.StatusUnauthorized)
		return
	}
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	account, err := s.accounts.UpdateProfile(r.Context(), id, req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.write(w, http.StatusOK, toAccountResponse(account))
}

func (s *server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, e.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, e.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, e.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("Internal server error", zap.Error(err))
		http.Error(w, fmt.Sprintf("internal server error: %v", err), http.StatusInternalServerError)
	}
}

func (s *server) write(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func tokenResponse(session *auth.Session) TokenResponse {
	return TokenResponse{Token: session.Token, Account: toAccountResponse(session.Account)}
}

func toAccountResponse(a *models.Account) accountResponse {
	return accountResponse{ID: a.ID.String(), Email: a.Email, Name: a.Name}
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/botforge/botforge/internal/auth"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/errs"
)

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	IsPro bool   `json:"is_pro"`
}

type authResponse struct {
	Token   string      `json:"token"`
	Account accountView `json:"account"`
}

func viewAccount(a *database.Account) accountView {
	return accountView{ID: a.ID, Email: a.Email, Name: a.Name, IsPro: a.IsPro}
}

func (s *Server) handleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid request body", errs.ErrValidation))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errs.ErrValidation, err))
			return
		}

		if _, err := s.store.GetAccountByEmail(r.Context(), req.Email); err == nil {
			s.respondJSON(w, http.StatusConflict, errorResponse{Error: "email_taken"})
			return
		} else if !errors.Is(err, errs.ErrNotFound) {
			s.respondError(w, r, err)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		account := &database.Account{
			ID:           uuid.NewString(),
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
		}
		if err := s.store.CreateAccount(r.Context(), account); err != nil {
			s.respondError(w, r, err)
			return
		}

		token, err := s.auth.GenerateToken(account.ID, account.Email, account.Name)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusCreated, authResponse{Token: token, Account: viewAccount(account)})
	}
}

func (s *Server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid request body", errs.ErrValidation))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errs.ErrValidation, err))
			return
		}

		account, err := s.store.GetAccountByEmail(r.Context(), req.Email)
		if err != nil || !auth.CheckPassword(req.Password, account.PasswordHash) {
			// Same response for unknown email and wrong password.
			s.respondError(w, r, errs.ErrUnauthenticated)
			return
		}

		token, err := s.auth.GenerateToken(account.ID, account.Email, account.Name)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusOK, authResponse{Token: token, Account: viewAccount(account)})
	}
}

func (s *Server) handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, err := s.store.GetAccountByID(r.Context(), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, viewAccount(account))
	}
}

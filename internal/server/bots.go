package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botforge/botforge/internal/auth"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/entitlement"
	"github.com/botforge/botforge/internal/errs"
	"github.com/botforge/botforge/internal/template"
)

type createBotRequest struct {
	Name          string            `json:"name"     validate:"required"`
	Template      string            `json:"template" validate:"required"`
	Config        map[string]string `json:"config"`
	TelegramToken string            `json:"telegram_token"`
}

// updateBotRequest uses pointers to distinguish absent fields from empty
// values. The template is immutable and the status is owned by the
// lifecycle manager, so neither is patchable.
type updateBotRequest struct {
	Name          *string            `json:"name"`
	Config        *map[string]string `json:"config"`
	TelegramToken *string            `json:"telegram_token"`
}

type deployRequest struct {
	Action string `json:"action" validate:"required,oneof=deploy undeploy"`
}

type botView struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Template      string             `json:"template"`
	Config        map[string]string  `json:"config"`
	TelegramToken string             `json:"telegram_token,omitempty"`
	Status        database.BotStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func viewBot(b *database.Bot) botView {
	return botView{
		ID:            b.ID,
		Name:          b.Name,
		Template:      b.TemplateID,
		Config:        b.Config,
		TelegramToken: b.TelegramToken.String,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (s *Server) handleListBots() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bots, err := s.store.ListBots(r.Context(), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		views := make([]botView, 0, len(bots))
		for i := range bots {
			views = append(views, viewBot(&bots[i]))
		}
		s.respondJSON(w, http.StatusOK, views)
	}
}

func (s *Server) handleCreateBot() http.HandlerFunc {
	log := s.logger.With("handler", "create_bot")

	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := auth.AccountID(r)

		var req createBotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid request body", errs.ErrValidation))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errs.ErrValidation, err))
			return
		}
		if !template.Valid(template.ID(req.Template)) {
			s.respondError(w, r, fmt.Errorf("%w: unknown template %q", errs.ErrValidation, req.Template))
			return
		}

		account, err := s.store.GetAccountByID(r.Context(), ownerID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		count, err := s.store.CountBots(r.Context(), ownerID)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if decision := entitlement.CanCreateBot(account.IsPro, count); !decision.Allowed {
			log.InfoContext(r.Context(), "Bot creation denied by entitlement gate",
				"account_id", ownerID, "bot_count", count)
			s.respondJSON(w, http.StatusForbidden, errorResponse{
				Error:   decision.Reason,
				Message: "Les utilisateurs gratuits sont limités à 1 bot. Passez en Pro pour en créer plus !",
			})
			return
		}

		bot := &database.Bot{
			ID:            uuid.NewString(),
			OwnerID:       ownerID,
			Name:          req.Name,
			TemplateID:    req.Template,
			Config:        req.Config,
			TelegramToken: sql.NullString{String: req.TelegramToken, Valid: req.TelegramToken != ""},
			Status:        database.BotStatusDraft,
		}
		if err := s.store.CreateBot(r.Context(), bot); err != nil {
			s.respondError(w, r, err)
			return
		}

		s.respondJSON(w, http.StatusCreated, viewBot(bot))
	}
}

func (s *Server) handleGetBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := s.store.GetBot(r.Context(), chi.URLParam(r, "id"), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, viewBot(bot))
	}
}

func (s *Server) handleUpdateBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := s.store.GetBot(r.Context(), chi.URLParam(r, "id"), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		var req updateBotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid request body", errs.ErrValidation))
			return
		}

		if req.Name != nil {
			if *req.Name == "" {
				s.respondError(w, r, fmt.Errorf("%w: name must not be empty", errs.ErrValidation))
				return
			}
			bot.Name = *req.Name
		}
		if req.Config != nil {
			bot.Config = *req.Config
		}
		if req.TelegramToken != nil {
			bot.TelegramToken = sql.NullString{String: *req.TelegramToken, Valid: *req.TelegramToken != ""}
		}

		if err := s.store.UpdateBot(r.Context(), bot); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, viewBot(bot))
	}
}

func (s *Server) handleDeleteBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := s.store.GetBot(r.Context(), chi.URLParam(r, "id"), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if err := s.lifecycle.Delete(r.Context(), bot); err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) handleDeployBot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot, err := s.store.GetBot(r.Context(), chi.URLParam(r, "id"), auth.AccountID(r))
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		var req deployRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: invalid request body", errs.ErrValidation))
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errs.ErrValidation, err))
			return
		}

		switch req.Action {
		case "undeploy":
			if err := s.lifecycle.Undeploy(r.Context(), bot); err != nil {
				s.respondError(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusOK, map[string]any{
				"ok":     true,
				"status": database.BotStatusDraft,
			})
		case "deploy":
			username, err := s.lifecycle.Deploy(r.Context(), bot)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusOK, map[string]any{
				"ok":           true,
				"status":       database.BotStatusActive,
				"bot_username": username,
			})
		}
	}
}

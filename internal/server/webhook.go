package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-telegram/bot/models"

	"github.com/botforge/botforge/internal/template"
)

// secretTokenHeader is echoed back by Telegram on every webhook call with
// the secret supplied at registration time.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleTelegramWebhook receives Telegram updates for one bot, classifies
// the message, and sends back the rendered reply.
//
// The provider-facing contract: once a call is authenticated, it is always
// acknowledged with 200 {"ok":true} — Telegram retries and eventually
// disables webhooks that keep failing, so internal errors are logged and
// swallowed, never surfaced as an error status.
func (s *Server) handleTelegramWebhook() http.HandlerFunc {
	log := s.logger.With("handler", "telegram_webhook")

	return func(w http.ResponseWriter, r *http.Request) {
		botID := chi.URLParam(r, "botID")

		bot, err := s.store.GetActiveBot(r.Context(), botID)
		if err != nil {
			// Unknown, draft, or unreadable bot: reject before acknowledging.
			log.WarnContext(r.Context(), "Webhook for unresolvable bot", "bot_id", botID, "error", err)
			s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
			return
		}

		secret := r.Header.Get(secretTokenHeader)
		if !bot.WebhookSecret.Valid ||
			subtle.ConstantTimeCompare([]byte(secret), []byte(bot.WebhookSecret.String)) != 1 {
			log.WarnContext(r.Context(), "Webhook secret mismatch", "bot_id", botID)
			s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}

		// Authenticated: from here on, always acknowledge.
		var update models.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.ErrorContext(r.Context(), "Failed to decode update payload", "bot_id", botID, "error", err)
			s.ack(w)
			return
		}

		if update.Message == nil || update.Message.Text == "" {
			// Non-text update types are acknowledged and ignored.
			s.ack(w)
			return
		}

		chatID := update.Message.Chat.ID
		intent := template.Classify(template.ID(bot.TemplateID), update.Message.Text)
		reply := template.Render(template.ID(bot.TemplateID), intent, template.Config(bot.Config))

		if err := s.tg.SendText(r.Context(), bot.TelegramToken.String, chatID, reply); err != nil {
			log.ErrorContext(r.Context(), "Failed to send reply",
				"bot_id", botID, "chat_id", chatID, "intent", intent, "error", err)
		} else {
			log.DebugContext(r.Context(), "Reply sent",
				"bot_id", botID, "chat_id", chatID, "intent", intent)
		}

		s.ack(w)
	}
}

// ack writes the success acknowledgment Telegram expects.
func (s *Server) ack(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

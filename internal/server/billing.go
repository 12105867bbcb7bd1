package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/botforge/botforge/internal/errs"
)

// signatureHeader carries the HMAC-SHA256 signature of the raw billing
// webhook body.
const signatureHeader = "X-Billing-Signature"

// Billing event types consumed by the entitlement flow.
const (
	eventCheckoutCompleted   = "checkout.completed"
	eventSubscriptionDeleted = "subscription.deleted"
)

// billingEvent is the payment provider's webhook envelope.
type billingEvent struct {
	Type string `json:"type"`
	Data struct {
		CustomerEmail  string `json:"customer_email"`
		CustomerID     string `json:"customer"`
		SubscriptionID string `json:"subscription"`
	} `json:"data"`
}

// handleBillingWebhook applies subscription-status changes to accounts.
// The server only reacts to these events, it never computes pro status
// itself. Events for unknown accounts and unknown event types are
// acknowledged and ignored so the provider does not retry them forever.
func (s *Server) handleBillingWebhook() http.HandlerFunc {
	log := s.logger.With("handler", "billing_webhook")

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_body"})
			return
		}

		if secret := s.cfg.Billing.WebhookSecret; secret != "" {
			sig := r.Header.Get(signatureHeader)
			if !validSignature(body, sig, secret) {
				log.WarnContext(r.Context(), "Billing webhook signature verification failed")
				s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_signature"})
				return
			}
		}

		var event billingEvent
		if err := json.Unmarshal(body, &event); err != nil {
			s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_payload"})
			return
		}

		switch event.Type {
		case eventCheckoutCompleted:
			if event.Data.CustomerEmail == "" {
				log.WarnContext(r.Context(), "Checkout event without customer email")
				break
			}
			err := s.store.UpgradeAccountByEmail(r.Context(),
				event.Data.CustomerEmail, event.Data.CustomerID, event.Data.SubscriptionID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				log.ErrorContext(r.Context(), "Failed to upgrade account", "error", err)
			}
		case eventSubscriptionDeleted:
			err := s.store.DowngradeAccountBySubscription(r.Context(), event.Data.SubscriptionID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				log.ErrorContext(r.Context(), "Failed to downgrade account", "error", err)
			}
		default:
			log.DebugContext(r.Context(), "Unhandled billing event type", "type", event.Type)
		}

		s.respondJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

// validSignature checks the HMAC-SHA256 body signature in constant time.
func validSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtleCompare(expected, signature)
}

func subtleCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

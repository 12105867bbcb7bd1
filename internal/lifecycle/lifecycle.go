// Package lifecycle implements the bot deployment state machine: moving a
// bot between draft and active, rotating the webhook secret, and keeping
// the provider-side webhook registration in step with local state.
package lifecycle

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/errs"
	"github.com/botforge/botforge/internal/telegram"
)

const webhookSecretBytes = 32

// Manager drives deploy and undeploy transitions. Transitions mutate the
// bot record and are serialized per bot through the store's conditional
// status update.
type Manager struct {
	store   database.Store
	tg      telegram.Client
	baseURL string
	logger  *slog.Logger
}

// NewManager creates a lifecycle manager. baseURL is the public base URL
// webhook URLs are derived from.
func NewManager(store database.Store, tg telegram.Client, baseURL string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   store,
		tg:      tg,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "lifecycle"),
	}
}

// WebhookURL returns the public webhook URL for a bot id.
func (m *Manager) WebhookURL(botID string) string {
	return fmt.Sprintf("%s/webhooks/telegram/%s", m.baseURL, botID)
}

// Deploy validates the bot's token, rotates the webhook secret, registers
// the webhook with the provider, and only then flips the record to active.
// Any failure leaves the bot in its current state with its current secret;
// a concurrent transition that wins the race yields errs.ErrConflict, and
// the just-made registration is rolled back best-effort.
// It returns the provider-side bot username on success.
func (m *Manager) Deploy(ctx context.Context, bot *database.Bot) (string, error) {
	if !bot.HasToken() {
		return "", fmt.Errorf("%w: telegram token required", errs.ErrValidation)
	}
	token := bot.TelegramToken.String

	identity, err := m.tg.ValidateToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("token validation: %w", err)
	}

	secret, err := newWebhookSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}

	url := m.WebhookURL(bot.ID)
	if err := m.tg.RegisterWebhook(ctx, token, url, secret); err != nil {
		return "", fmt.Errorf("webhook registration: %w", err)
	}

	err = m.store.TransitionBotStatus(ctx, bot.ID, bot.Status, database.BotStatusActive,
		sql.NullString{String: secret, Valid: true})
	if err != nil {
		// The provider now points at us with a secret we will not persist.
		// Undo the registration so the remote side matches local state.
		if derr := m.tg.DeregisterWebhook(ctx, token); derr != nil {
			m.logger.WarnContext(ctx, "Failed to roll back webhook registration after lost transition",
				"bot_id", bot.ID, "error", derr)
		}
		return "", fmt.Errorf("status transition: %w", err)
	}

	m.logger.InfoContext(ctx, "Bot deployed",
		"bot_id", bot.ID, "bot_username", identity.Username, "webhook_url", url)
	return identity.Username, nil
}

// Undeploy requests the provider delete the webhook registration and flips
// the bot back to draft, clearing the secret. Remote cleanup is best
// effort: its failure is logged as a reconciliation risk but never blocks
// the local transition.
func (m *Manager) Undeploy(ctx context.Context, bot *database.Bot) error {
	if bot.HasToken() {
		if err := m.tg.DeregisterWebhook(ctx, bot.TelegramToken.String); err != nil {
			m.logger.WarnContext(ctx, "Remote webhook cleanup failed, registration may be stale",
				"bot_id", bot.ID, "error", err)
		}
	}

	err := m.store.TransitionBotStatus(ctx, bot.ID, bot.Status, database.BotStatusDraft,
		sql.NullString{})
	if err != nil {
		return fmt.Errorf("status transition: %w", err)
	}

	m.logger.InfoContext(ctx, "Bot undeployed", "bot_id", bot.ID)
	return nil
}

// Delete removes a bot, undeploying it first when active so no live
// webhook registration is left pointing at a deleted resource.
func (m *Manager) Delete(ctx context.Context, bot *database.Bot) error {
	if bot.Status == database.BotStatusActive {
		if err := m.Undeploy(ctx, bot); err != nil {
			return fmt.Errorf("undeploy before delete: %w", err)
		}
	}

	if err := m.store.DeleteBot(ctx, bot.ID, bot.OwnerID); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Bot deleted", "bot_id", bot.ID)
	return nil
}

// newWebhookSecret returns a fresh high-entropy hex secret.
func newWebhookSecret() (string, error) {
	buf := make([]byte, webhookSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

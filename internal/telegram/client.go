// Package telegram wraps the Telegram Bot API operations the server
// consumes: token validation, webhook registration, and message sending.
// Every call is made with the merchant bot's own token and a bounded
// timeout.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/botforge/botforge/internal/errs"
)

// Identity describes the provider-side bot account a token resolves to.
type Identity struct {
	ID       int64
	Username string
}

// Client is the messaging-provider surface used by the lifecycle manager
// and the webhook dispatcher. All operations are fallible network calls.
type Client interface {
	// ValidateToken checks the token against the provider and returns the
	// bot identity it resolves to.
	ValidateToken(ctx context.Context, token string) (Identity, error)

	// RegisterWebhook registers url as the webhook for the bot behind token,
	// passing secret for provider-side echo-back authentication.
	RegisterWebhook(ctx context.Context, token, url, secret string) error

	// DeregisterWebhook removes any webhook registration for the bot behind
	// token.
	DeregisterWebhook(ctx context.Context, token string) error

	// SendText sends an HTML-formatted text message to the chat.
	SendText(ctx context.Context, token string, chatID int64, text string) error
}

// apiClient implements Client against api.telegram.org via go-telegram/bot.
type apiClient struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a Bot API client whose calls are bounded by timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &apiClient{
		timeout: timeout,
		logger:  logger.With("component", "telegram_client"),
	}
}

// api constructs a per-token Bot API handle. getMe is skipped here so that
// handle construction never makes a network call; ValidateToken does the
// explicit getMe when validation is actually wanted.
func (c *apiClient) api(token string) (*tgbot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("empty telegram token: %w", errs.ErrValidation)
	}

	b, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api client: %w", err)
	}
	return b, nil
}

func (c *apiClient) ValidateToken(ctx context.Context, token string) (Identity, error) {
	b, err := c.api(token)
	if err != nil {
		return Identity{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	me, err := b.GetMe(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Token validation failed", "error", err)
		return Identity{}, fmt.Errorf("%w: getMe rejected token: %v", errs.ErrValidation, err)
	}

	return Identity{ID: me.ID, Username: me.Username}, nil
}

func (c *apiClient) RegisterWebhook(ctx context.Context, token, url, secret string) error {
	b, err := c.api(token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := b.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return fmt.Errorf("%w: setWebhook failed: %v", errs.ErrUpstream, err)
	}
	if !ok {
		return fmt.Errorf("%w: setWebhook not confirmed by provider", errs.ErrUpstream)
	}

	c.logger.DebugContext(ctx, "Webhook registered", "url", url)
	return nil
}

func (c *apiClient) DeregisterWebhook(ctx context.Context, token string) error {
	b, err := c.api(token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := b.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		return fmt.Errorf("%w: deleteWebhook failed: %v", errs.ErrUpstream, err)
	}

	c.logger.DebugContext(ctx, "Webhook deregistered")
	return nil
}

func (c *apiClient) SendText(ctx context.Context, token string, chatID int64, text string) error {
	b, err := c.api(token)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err = b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("%w: sendMessage failed: %v", errs.ErrUpstream, err)
	}
	return nil
}

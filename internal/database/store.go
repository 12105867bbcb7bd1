package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/botforge/botforge/internal/errs"
)

// Store defines the interface for database operations. All bot reads and
// writes except GetActiveBot are scoped by owner.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateAccount inserts a new account record.
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccountByID retrieves an account by id.
	GetAccountByID(ctx context.Context, id string) (*Account, error)

	// GetAccountByEmail retrieves an account by email.
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)

	// UpgradeAccountByEmail marks the account as pro and records the billing
	// customer and subscription ids.
	UpgradeAccountByEmail(ctx context.Context, email, customerID, subscriptionID string) error

	// DowngradeAccountBySubscription clears the pro flag on the account
	// holding the given billing subscription id.
	DowngradeAccountBySubscription(ctx context.Context, subscriptionID string) error

	// CreateBot inserts a new bot record.
	CreateBot(ctx context.Context, bot *Bot) error

	// GetBot retrieves a bot by id, scoped to its owner.
	GetBot(ctx context.Context, id, ownerID string) (*Bot, error)

	// GetActiveBot retrieves a bot by id where status is active. Used by the
	// webhook dispatcher, which has no caller identity.
	GetActiveBot(ctx context.Context, id string) (*Bot, error)

	// ListBots retrieves all bots owned by the account, newest first.
	ListBots(ctx context.Context, ownerID string) ([]Bot, error)

	// CountBots returns the number of bots owned by the account.
	CountBots(ctx context.Context, ownerID string) (int, error)

	// UpdateBot persists name, config, and telegram token changes, scoped to
	// the owner.
	UpdateBot(ctx context.Context, bot *Bot) error

	// DeleteBot removes a bot, scoped to its owner.
	DeleteBot(ctx context.Context, id, ownerID string) error

	// TransitionBotStatus atomically moves a bot from one status to another,
	// persisting the webhook secret for the new state. The update only
	// commits if the bot is still in the expected current status; losing
	// that race yields errs.ErrConflict.
	TransitionBotStatus(ctx context.Context, id string, from, to BotStatus, secret sql.NullString) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) CreateAccount(ctx context.Context, account *Account) error {
	if account == nil {
		return fmt.Errorf("cannot create nil account")
	}

	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := `INSERT INTO accounts (id, email, name, password_hash, is_pro, created_at, updated_at)
	          VALUES (:id, :email, :name, :password_hash, :is_pro, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	s.logger.DebugContext(ctx, "Account created", "account_id", account.ID)
	return nil
}

func (s *sqlxStore) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	err := s.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func (s *sqlxStore) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := s.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account by email: %w", errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return &account, nil
}

func (s *sqlxStore) UpgradeAccountByEmail(ctx context.Context, email, customerID, subscriptionID string) error {
	query := `UPDATE accounts
	          SET is_pro = 1, billing_customer_id = ?, billing_subscription_id = ?, updated_at = ?
	          WHERE email = ?`
	res, err := s.db.ExecContext(ctx, query, nullIfEmpty(customerID), nullIfEmpty(subscriptionID), time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("failed to upgrade account: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account by email: %w", errs.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "Account upgraded to pro", "email", email)
	return nil
}

func (s *sqlxStore) DowngradeAccountBySubscription(ctx context.Context, subscriptionID string) error {
	query := `UPDATE accounts SET is_pro = 0, updated_at = ? WHERE billing_subscription_id = ?`
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to downgrade account: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account by subscription: %w", errs.ErrNotFound)
	}

	s.logger.InfoContext(ctx, "Account downgraded from pro", "subscription_id", subscriptionID)
	return nil
}

func (s *sqlxStore) CreateBot(ctx context.Context, bot *Bot) error {
	if bot == nil {
		return fmt.Errorf("cannot create nil bot")
	}
	if bot.OwnerID == "" {
		return fmt.Errorf("bot must have an owner")
	}

	now := time.Now().UTC()
	bot.CreatedAt = now
	bot.UpdatedAt = now
	if bot.Status == "" {
		bot.Status = BotStatusDraft
	}
	if bot.Config == nil {
		bot.Config = JSONMap{}
	}

	query := `INSERT INTO bots (id, owner_id, name, template_id, config, telegram_token, webhook_secret, status, created_at, updated_at)
	          VALUES (:id, :owner_id, :name, :template_id, :config, :telegram_token, :webhook_secret, :status, :created_at, :updated_at)`
	if _, err := s.db.NamedExecContext(ctx, query, bot); err != nil {
		return fmt.Errorf("failed to insert bot: %w", err)
	}

	s.logger.DebugContext(ctx, "Bot created", "bot_id", bot.ID, "template", bot.TemplateID)
	return nil
}

func (s *sqlxStore) GetBot(ctx context.Context, id, ownerID string) (*Bot, error) {
	var bot Bot
	err := s.db.GetContext(ctx, &bot, `SELECT * FROM bots WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("bot %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get bot: %w", err)
	}
	return &bot, nil
}

func (s *sqlxStore) GetActiveBot(ctx context.Context, id string) (*Bot, error) {
	var bot Bot
	err := s.db.GetContext(ctx, &bot, `SELECT * FROM bots WHERE id = ? AND status = ?`, id, BotStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active bot %s: %w", id, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get active bot: %w", err)
	}
	return &bot, nil
}

func (s *sqlxStore) ListBots(ctx context.Context, ownerID string) ([]Bot, error) {
	bots := []Bot{}
	err := s.db.SelectContext(ctx, &bots,
		`SELECT * FROM bots WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bots: %w", err)
	}
	return bots, nil
}

func (s *sqlxStore) CountBots(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bots WHERE owner_id = ?`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to count bots: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) UpdateBot(ctx context.Context, bot *Bot) error {
	if bot == nil {
		return fmt.Errorf("cannot update nil bot")
	}

	bot.UpdatedAt = time.Now().UTC()

	query := `UPDATE bots
	          SET name = :name, config = :config, telegram_token = :telegram_token, updated_at = :updated_at
	          WHERE id = :id AND owner_id = :owner_id`
	res, err := s.db.NamedExecContext(ctx, query, bot)
	if err != nil {
		return fmt.Errorf("failed to update bot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bot %s: %w", bot.ID, errs.ErrNotFound)
	}
	return nil
}

func (s *sqlxStore) DeleteBot(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bots WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete bot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bot %s: %w", id, errs.ErrNotFound)
	}

	s.logger.DebugContext(ctx, "Bot deleted", "bot_id", id)
	return nil
}

func (s *sqlxStore) TransitionBotStatus(ctx context.Context, id string, from, to BotStatus, secret sql.NullString) error {
	query := `UPDATE bots SET status = ?, webhook_secret = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query, to, secret, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to transition bot status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bot %s not in status %q: %w", id, from, errs.ErrConflict)
	}

	s.logger.InfoContext(ctx, "Bot status transitioned", "bot_id", id, "from", from, "to", to)
	return nil
}

// RunSQLMaintenance performs VACUUM, ANALYZE, and PRAGMA optimize.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	for _, stmt := range []string{"VACUUM", "ANALYZE", "PRAGMA optimize"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("maintenance statement %q failed: %w", stmt, err)
		}
	}
	s.logger.InfoContext(ctx, "SQL maintenance completed")
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

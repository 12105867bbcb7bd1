package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BotStatus is the deployment state of a bot.
type BotStatus string

// Bot deployment states. A bot is created in draft and only the lifecycle
// manager moves it to active and back.
const (
	BotStatusDraft  BotStatus = "draft"
	BotStatusActive BotStatus = "active"
)

// JSONMap stores a string-to-string mapping as a JSON TEXT column.
type JSONMap map[string]string

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config map: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}

	if len(data) == 0 {
		*m = JSONMap{}
		return nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("failed to unmarshal config map: %w", err)
	}
	return nil
}

// Bot is a merchant's chatbot instance. TemplateID is immutable after
// creation. WebhookSecret is set only while Status is active.
type Bot struct {
	ID            string         `db:"id"             json:"id"`
	OwnerID       string         `db:"owner_id"       json:"-"`
	Name          string         `db:"name"           json:"name"`
	TemplateID    string         `db:"template_id"    json:"template"`
	Config        JSONMap        `db:"config"         json:"config"`
	TelegramToken sql.NullString `db:"telegram_token" json:"-"`
	WebhookSecret sql.NullString `db:"webhook_secret" json:"-"`
	Status        BotStatus      `db:"status"         json:"status"`
	CreatedAt     time.Time      `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"     json:"updated_at"`
}

// HasToken reports whether a Telegram token has been supplied.
func (b *Bot) HasToken() bool {
	return b.TelegramToken.Valid && b.TelegramToken.String != ""
}

// Account is a merchant dashboard account. IsPro gates bot creation and is
// flipped by billing webhook events, never computed locally.
type Account struct {
	ID                    string         `db:"id"`
	Email                 string         `db:"email"`
	Name                  string         `db:"name"`
	PasswordHash          string         `db:"password_hash"`
	IsPro                 bool           `db:"is_pro"`
	BillingCustomerID     sql.NullString `db:"billing_customer_id"`
	BillingSubscriptionID sql.NullString `db:"billing_subscription_id"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

package server_test

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/botforge/botforge/internal/auth"
	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/errs"
	"github.com/botforge/botforge/internal/lifecycle"
	"github.com/botforge/botforge/internal/server"
	"github.com/botforge/botforge/internal/telegram"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

// memStore is an in-memory database.Store for handler tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*database.Account
	bots     map[string]*database.Bot
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*database.Account),
		bots:     make(map[string]*database.Bot),
	}
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

func (s *memStore) CreateAccount(_ context.Context, account *database.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *memStore) GetAccountByID(_ context.Context, id string) (*database.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, fmt.Errorf("account %s: %w", id, errs.ErrNotFound)
}

func (s *memStore) GetAccountByEmail(_ context.Context, email string) (*database.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("account by email: %w", errs.ErrNotFound)
}

func (s *memStore) UpgradeAccountByEmail(_ context.Context, email, customerID, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			a.IsPro = true
			a.BillingCustomerID = sql.NullString{String: customerID, Valid: customerID != ""}
			a.BillingSubscriptionID = sql.NullString{String: subscriptionID, Valid: subscriptionID != ""}
			return nil
		}
	}
	return fmt.Errorf("account by email: %w", errs.ErrNotFound)
}

func (s *memStore) DowngradeAccountBySubscription(_ context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.BillingSubscriptionID.Valid && a.BillingSubscriptionID.String == subscriptionID {
			a.IsPro = false
			return nil
		}
	}
	return fmt.Errorf("account by subscription: %w", errs.ErrNotFound)
}

func (s *memStore) CreateBot(_ context.Context, bot *database.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	bot.CreatedAt = now
	bot.UpdatedAt = now
	if bot.Status == "" {
		bot.Status = database.BotStatusDraft
	}
	cp := *bot
	s.bots[bot.ID] = &cp
	return nil
}

func (s *memStore) GetBot(_ context.Context, id, ownerID string) (*database.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[id]; ok && b.OwnerID == ownerID {
		cp := *b
		return &cp, nil
	}
	return nil, fmt.Errorf("bot %s: %w", id, errs.ErrNotFound)
}

func (s *memStore) GetActiveBot(_ context.Context, id string) (*database.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[id]; ok && b.Status == database.BotStatusActive {
		cp := *b
		return &cp, nil
	}
	return nil, fmt.Errorf("active bot %s: %w", id, errs.ErrNotFound)
}

func (s *memStore) ListBots(_ context.Context, ownerID string) ([]database.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.Bot
	for _, b := range s.bots {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memStore) CountBots(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, b := range s.bots {
		if b.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) UpdateBot(_ context.Context, bot *database.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.bots[bot.ID]
	if !ok || existing.OwnerID != bot.OwnerID {
		return fmt.Errorf("bot %s: %w", bot.ID, errs.ErrNotFound)
	}
	bot.UpdatedAt = time.Now().UTC()
	cp := *bot
	s.bots[bot.ID] = &cp
	return nil
}

func (s *memStore) DeleteBot(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bots[id]; ok && b.OwnerID == ownerID {
		delete(s.bots, id)
		return nil
	}
	return fmt.Errorf("bot %s: %w", id, errs.ErrNotFound)
}

func (s *memStore) TransitionBotStatus(_ context.Context, id string, from, to database.BotStatus, secret sql.NullString) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok || b.Status != from {
		return fmt.Errorf("bot %s not in status %q: %w", id, from, errs.ErrConflict)
	}
	b.Status = to
	b.WebhookSecret = secret
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) RunSQLMaintenance(context.Context) error { return nil }

// fakeTG is an in-memory telegram.Client recording provider calls.
type fakeTG struct {
	mu sync.Mutex

	validateErr error
	registerErr error
	sendErr     error

	registered []string // secrets passed to RegisterWebhook
	sent       []sentMessage
}

type sentMessage struct {
	chatID int64
	text   string
}

func (c *fakeTG) ValidateToken(context.Context, string) (telegram.Identity, error) {
	if c.validateErr != nil {
		return telegram.Identity{}, c.validateErr
	}
	return telegram.Identity{ID: 7, Username: "merchant_bot"}, nil
}

func (c *fakeTG) RegisterWebhook(_ context.Context, _, _, secret string) error {
	if c.registerErr != nil {
		return c.registerErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, secret)
	return nil
}

func (c *fakeTG) DeregisterWebhook(context.Context, string) error { return nil }

func (c *fakeTG) SendText(_ context.Context, _ string, chatID int64, text string) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (c *fakeTG) sentMessages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage(nil), c.sent...)
}

// testEnv bundles the handler under test with its collaborators.
type testEnv struct {
	handler http.Handler
	store   *memStore
	tg      *fakeTG
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store := newMemStore()
	tg := &fakeTG{}

	cfg := &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":0",
			BaseURL:    "https://botforge.example.com",
		},
		Auth: config.AuthConfig{
			JWTSecret: testJWTSecret,
			TokenTTL:  time.Hour,
		},
		Billing: config.BillingConfig{
			WebhookSecret: "billing-secret",
		},
	}

	lm := lifecycle.NewManager(store, tg, cfg.Server.BaseURL, log)
	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	srv := server.New(cfg, log, store, tg, lm, authSvc)

	return &testEnv{
		handler: srv.Router(),
		store:   store,
		tg:      tg,
		auth:    authSvc,
	}
}

// seedAccount creates an account and returns its id and a valid bearer token.
func (e *testEnv) seedAccount(t *testing.T, email string, isPro bool) (string, string) {
	t.Helper()

	id := "acc-" + email
	hash, err := auth.HashPassword("password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := e.store.CreateAccount(context.Background(), &database.Account{
		ID:           id,
		Email:        email,
		Name:         "Test",
		PasswordHash: hash,
		IsPro:        isPro,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	token, err := e.auth.GenerateToken(id, email, "Test")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return id, token
}

// seedBot creates a bot owned by ownerID.
func (e *testEnv) seedBot(t *testing.T, ownerID string, status database.BotStatus, secret string) *database.Bot {
	t.Helper()

	bot := &database.Bot{
		ID:            "bot-" + string(status) + "-" + ownerID,
		OwnerID:       ownerID,
		Name:          "La Bonne Table",
		TemplateID:    "restaurant",
		Config:        database.JSONMap{"name": "La Bonne Table", "phone": "0123456789"},
		TelegramToken: sql.NullString{String: "123:token", Valid: true},
		Status:        status,
		WebhookSecret: sql.NullString{String: secret, Valid: secret != ""},
	}
	if err := e.store.CreateBot(context.Background(), bot); err != nil {
		t.Fatalf("CreateBot failed: %v", err)
	}
	return bot
}

package server_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/errs"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

func postUpdate(t *testing.T, env *testEnv, botID, secret, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/telegram/"+botID, strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)
	return rr
}

func textUpdate(text string) string {
	return `{"update_id":1,"message":{"message_id":10,"date":0,"chat":{"id":555},"text":"` + text + `"}}`
}

func TestTelegramWebhook_UnknownBot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rr := postUpdate(t, env, "no-such-bot", "whatever", textUpdate("bonjour"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if len(env.tg.sentMessages()) != 0 {
		t.Error("no message may be sent for an unknown bot")
	}
}

func TestTelegramWebhook_DraftBotNotRoutable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusDraft, "")

	rr := postUpdate(t, env, bot.ID, "", textUpdate("bonjour"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestTelegramWebhook_SecretMismatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "right-secret")

	rr := postUpdate(t, env, bot.ID, "wrong-secret", textUpdate("bonjour"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if len(env.tg.sentMessages()) != 0 {
		t.Error("no message may be sent on secret mismatch")
	}
}

func TestTelegramWebhook_MissingSecretHeader(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "right-secret")

	rr := postUpdate(t, env, bot.ID, "", textUpdate("bonjour"))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestTelegramWebhook_RepliesToTextMessage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "s3cret")

	rr := postUpdate(t, env, bot.ID, "s3cret", textUpdate("C'est ouvert?"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Errorf("body = %q, want ok acknowledgment", rr.Body.String())
	}

	sent := env.tg.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(sent))
	}
	if sent[0].chatID != 555 {
		t.Errorf("chat id = %d, want 555", sent[0].chatID)
	}
	if !strings.Contains(sent[0].text, "La Bonne Table") {
		t.Errorf("reply missing business name: %q", sent[0].text)
	}
	if !strings.Contains(sent[0].text, "Horaires non renseignés") {
		t.Errorf("reply missing hours placeholder: %q", sent[0].text)
	}
	if strings.Contains(sent[0].text, "0123456789") {
		t.Errorf("hours reply must not leak the phone number: %q", sent[0].text)
	}
}

func TestTelegramWebhook_NonTextUpdateAcknowledged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "s3cret")

	rr := postUpdate(t, env, bot.ID, "s3cret",
		`{"update_id":2,"message":{"message_id":11,"date":0,"chat":{"id":555},"photo":[]}}`)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if len(env.tg.sentMessages()) != 0 {
		t.Error("non-text updates must not trigger a reply")
	}
}

func TestTelegramWebhook_SendFailureStillAcknowledged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.tg.sendErr = errs.ErrUpstream
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "s3cret")

	rr := postUpdate(t, env, bot.ID, "s3cret", textUpdate("bonjour"))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite send failure", rr.Code)
	}
}

func TestTelegramWebhook_MalformedPayloadAfterAuthAcknowledged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ownerID, _ := env.seedAccount(t, "lea@example.com", false)
	bot := env.seedBot(t, ownerID, database.BotStatusActive, "s3cret")

	rr := postUpdate(t, env, bot.ID, "s3cret", `{not json`)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for malformed payload after auth", rr.Code)
	}
	if len(env.tg.sentMessages()) != 0 {
		t.Error("malformed payload must not trigger a reply")
	}
}

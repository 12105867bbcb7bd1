package template_test

import (
	"strings"
	"testing"

	"github.com/botforge/botforge/internal/template"
)

func TestRender_MissingOptionalFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		id         template.ID
		intent     template.Intent
		cfg        template.Config
		want       []string
		wantAbsent []string
	}{
		{
			name:       "hours without openHours",
			id:         template.Restaurant,
			intent:     template.IntentHours,
			cfg:        template.Config{"name": "Chez Léa"},
			want:       []string{"Chez Léa", "Horaires non renseignés"},
			wantAbsent: []string{"undefined"},
		},
		{
			name:   "address without address",
			id:     template.Salon,
			intent: template.IntentAddress,
			cfg:    template.Config{"name": "Salon Belle"},
			want:   []string{"Salon Belle", "Adresse non renseignée"},
		},
		{
			name:   "contact without phone",
			id:     template.Artisan,
			intent: template.IntentContact,
			cfg:    template.Config{},
			want:   []string{"notre commerce", "Téléphone non renseigné"},
		},
		{
			name:   "menu without specialties",
			id:     template.Restaurant,
			intent: template.IntentMenu,
			cfg:    template.Config{},
			want:   []string{"Carte non renseignée"},
		},
		{
			name:   "services without services",
			id:     template.Salon,
			intent: template.IntentServices,
			cfg:    template.Config{},
			want:   []string{"Services non renseignés"},
		},
		{
			name:   "name default when absent",
			id:     template.Restaurant,
			intent: template.IntentGreeting,
			cfg:    template.Config{},
			want:   []string{"notre commerce"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := template.Render(tt.id, tt.intent, tt.cfg)
			if got == "" {
				t.Fatal("Render returned empty text")
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("Render(%q, %q) = %q, missing %q", tt.id, tt.intent, got, want)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("Render(%q, %q) = %q, must not contain %q", tt.id, tt.intent, got, absent)
				}
			}
		})
	}
}

func TestRender_EscapesMerchantValues(t *testing.T) {
	t.Parallel()

	cfg := template.Config{
		"name":    "Chez <b>Léa & Fils</b>",
		"address": "12 rue de l'Église <script>",
	}

	got := template.Render(template.Restaurant, template.IntentAddress, cfg)

	if strings.Contains(got, "<script>") {
		t.Errorf("Render leaked raw markup from config: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("Render did not escape config markup: %q", got)
	}
	if !strings.Contains(got, "Chez &lt;b&gt;Léa &amp; Fils&lt;/b&gt;") {
		t.Errorf("Render did not escape config name: %q", got)
	}
}

func TestRender_FallbackListsTemplateCommands(t *testing.T) {
	t.Parallel()

	restaurant := template.Render(template.Restaurant, template.IntentFallback, nil)
	if !strings.Contains(restaurant, "<b>menu</b>") {
		t.Errorf("restaurant fallback missing menu command: %q", restaurant)
	}
	if strings.Contains(restaurant, "<b>services</b>") {
		t.Errorf("restaurant fallback must not list services: %q", restaurant)
	}

	for _, id := range []template.ID{template.Salon, template.Artisan} {
		got := template.Render(id, template.IntentFallback, nil)
		if !strings.Contains(got, "<b>services</b>") {
			t.Errorf("%s fallback missing services command: %q", id, got)
		}
		if strings.Contains(got, "<b>menu</b>") {
			t.Errorf("%s fallback must not list menu: %q", id, got)
		}
	}
}

// TestRender_RoundTrip checks that classify-then-render always yields
// non-empty text, for any config including an empty one.
func TestRender_RoundTrip(t *testing.T) {
	t.Parallel()

	texts := []string{
		"", "/start", "info", "adresse", "contact", "horaires",
		"menu", "services", "réserver", "rdv", "bonjour", "merci",
		"n'importe quoi", "🤷",
	}
	configs := []template.Config{
		nil,
		{},
		{"name": "La Bonne Table"},
		{"name": "X", "address": "Y", "phone": "Z", "openHours": "9-18", "specialties": "S", "services": "V", "description": "D"},
		{"unknownKey": "ignored"},
	}

	for _, id := range template.IDs() {
		for _, text := range texts {
			for _, cfg := range configs {
				intent := template.Classify(id, text)
				if got := template.Render(id, intent, cfg); got == "" {
					t.Errorf("Render(%q, %q, %v) returned empty text for input %q", id, intent, cfg, text)
				}
			}
		}
	}
}

// TestRender_EndToEndHoursScenario is the scenario from the dashboard docs:
// a restaurant with name and phone set but no hours answers an availability
// question with the name and the hours placeholder, without leaking the
// phone number into the hours reply.
func TestRender_EndToEndHoursScenario(t *testing.T) {
	t.Parallel()

	cfg := template.Config{"name": "La Bonne Table", "phone": "0123456789"}

	intent := template.Classify(template.Restaurant, "C'est ouvert?")
	if intent != template.IntentHours {
		t.Fatalf("Classify = %q, want %q", intent, template.IntentHours)
	}

	got := template.Render(template.Restaurant, intent, cfg)
	if !strings.Contains(got, "La Bonne Table") {
		t.Errorf("reply missing business name: %q", got)
	}
	if !strings.Contains(got, "Horaires non renseignés") {
		t.Errorf("reply missing hours placeholder: %q", got)
	}
	if strings.Contains(got, "0123456789") {
		t.Errorf("reply must not contain the phone number: %q", got)
	}
}

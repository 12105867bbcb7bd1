package template

import (
	"fmt"
	"html"
	"strings"
)

// Explicit placeholders for missing optional fields. Merchants see these in
// their bot's replies, which nudges them to fill the fields in.
const (
	placeholderAddress     = "Adresse non renseignée"
	placeholderPhone       = "Téléphone non renseigné"
	placeholderHours       = "Horaires non renseignés"
	placeholderSpecialties = "Carte non renseignée"
	placeholderServices    = "Services non renseignés"
	placeholderGeneric     = "Non renseigné"
	defaultBusinessName    = "notre commerce"
)

// Render builds the reply text for a classified intent using the merchant
// config. Output is Telegram HTML parse-mode text; merchant-supplied values
// are escaped so reserved markup characters cannot break rendering. Render
// is total: unknown templates or intents without a builder fall back to the
// command menu response.
func Render(id ID, intent Intent, cfg Config) string {
	t, ok := registry[id]
	if !ok {
		t = registry[Restaurant]
	}

	builder, ok := t.Responses[intent]
	if !ok {
		builder = t.Responses[IntentFallback]
	}
	return builder(cfg)
}

// field returns the escaped config value for key, or fallback when absent.
// The fallback strings are trusted copy and are not escaped.
func field(cfg Config, key, fallback string) string {
	if v, ok := cfg[key]; ok && v != "" {
		return html.EscapeString(v)
	}
	return fallback
}

// businessName returns the escaped merchant name or the generic default.
func businessName(cfg Config) string {
	return field(cfg, FieldName, defaultBusinessName)
}

func startBuilder(t *Template) Builder {
	extra := domainCommandLines(t.ID)
	return func(cfg Config) string {
		var b strings.Builder
		fmt.Fprintf(&b, "👋 Bonjour ! Bienvenue chez <b>%s</b> !\n\n", businessName(cfg))
		if desc, ok := cfg[FieldDescription]; ok && desc != "" {
			b.WriteString(html.EscapeString(desc))
		}
		b.WriteString("\n\nJe peux vous aider avec :")
		b.WriteString("\n• 📋 Nos informations → tapez <b>info</b>")
		b.WriteString("\n• 📍 Notre adresse → tapez <b>adresse</b>")
		b.WriteString("\n• 📞 Nous contacter → tapez <b>contact</b>")
		b.WriteString("\n• ⏰ Nos horaires → tapez <b>horaires</b>")
		b.WriteString(extra.start)
		return b.String()
	}
}

func infoBuilder() Builder {
	return func(cfg Config) string {
		var b strings.Builder
		fmt.Fprintf(&b, "ℹ️ <b>%s</b>\n\n", businessName(cfg))
		if desc, ok := cfg[FieldDescription]; ok && desc != "" {
			fmt.Fprintf(&b, "%s\n\n", html.EscapeString(desc))
		}
		if addr, ok := cfg[FieldAddress]; ok && addr != "" {
			fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(addr))
		}
		if phone, ok := cfg[FieldPhone]; ok && phone != "" {
			fmt.Fprintf(&b, "📞 %s\n", html.EscapeString(phone))
		}
		if hours, ok := cfg[FieldOpenHours]; ok && hours != "" {
			fmt.Fprintf(&b, "⏰ %s\n", html.EscapeString(hours))
		}
		return b.String()
	}
}

func addressBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("📍 <b>%s</b>\n%s",
			businessName(cfg), field(cfg, FieldAddress, placeholderAddress))
	}
}

func contactBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("📞 Contactez <b>%s</b>\n%s",
			businessName(cfg), field(cfg, FieldPhone, placeholderPhone))
	}
}

func hoursBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("⏰ Horaires de <b>%s</b>\n%s",
			businessName(cfg), field(cfg, FieldOpenHours, placeholderHours))
	}
}

func menuBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("🍽️ Nos spécialités chez <b>%s</b>\n\n%s\n\nPour réserver une table, tapez <b>réserver</b>",
			businessName(cfg), field(cfg, FieldSpecialties, placeholderSpecialties))
	}
}

func reservationBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("📅 Pour réserver une table chez <b>%s</b>, contactez-nous :\n📞 %s\n\nOu passez directement à :\n📍 %s",
			businessName(cfg),
			field(cfg, FieldPhone, placeholderGeneric),
			field(cfg, FieldAddress, placeholderGeneric))
	}
}

func servicesBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("💼 Services de <b>%s</b>\n\n%s\n\nPour prendre rendez-vous, tapez <b>rdv</b>",
			businessName(cfg), field(cfg, FieldServices, placeholderServices))
	}
}

func appointmentBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("📅 Pour prendre rendez-vous chez <b>%s</b>, contactez-nous :\n📞 %s",
			businessName(cfg), field(cfg, FieldPhone, placeholderGeneric))
	}
}

func greetingBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("👋 Bonjour ! Comment puis-je vous aider ?\n\nTapez <b>info</b> pour en savoir plus sur %s.",
			businessName(cfg))
	}
}

func thanksBuilder() Builder {
	return func(cfg Config) string {
		return fmt.Sprintf("🙏 Avec plaisir ! N'hésitez pas si vous avez d'autres questions.\n\nÀ bientôt chez <b>%s</b> !",
			businessName(cfg))
	}
}

func fallbackBuilder(t *Template) Builder {
	extra := domainCommandLines(t.ID)
	return func(Config) string {
		var b strings.Builder
		b.WriteString("🤖 Je ne suis pas sûr de comprendre votre demande.")
		b.WriteString("\n\nVoici ce que je peux faire :")
		b.WriteString("\n• <b>info</b> - Nos informations")
		b.WriteString("\n• <b>adresse</b> - Notre adresse")
		b.WriteString("\n• <b>contact</b> - Nous contacter")
		b.WriteString("\n• <b>horaires</b> - Nos horaires")
		b.WriteString(extra.fallback)
		return b.String()
	}
}

// commandLines holds the template-specific command menu entries appended to
// the start and fallback responses. They must stay in sync with the domain
// rules in rules.go.
type commandLines struct {
	start    string
	fallback string
}

func domainCommandLines(id ID) commandLines {
	switch id {
	case Restaurant:
		return commandLines{
			start:    "\n• 🍽️ Notre carte → tapez <b>menu</b>",
			fallback: "\n• <b>menu</b> - Notre carte",
		}
	case Salon, Artisan:
		return commandLines{
			start:    "\n• 💼 Nos services → tapez <b>services</b>",
			fallback: "\n• <b>services</b> - Nos services",
		}
	default:
		return commandLines{}
	}
}

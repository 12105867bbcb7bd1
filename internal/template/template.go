// Package template holds the static catalog of business templates and the
// deterministic intent classification and response rendering built on it.
// Each template declares its merchant config fields, an ordered intent rule
// table, and one response builder per intent.
package template

// ID identifies a business template variant.
type ID string

// Supported template variants.
const (
	Restaurant ID = "restaurant"
	Salon      ID = "salon"
	Artisan    ID = "artisan"
)

// Intent labels a classified user message.
type Intent string

// Intents shared by all templates plus the template-specific domain intents.
const (
	IntentStart       Intent = "start"
	IntentInfo        Intent = "info"
	IntentAddress     Intent = "address"
	IntentContact     Intent = "contact"
	IntentHours       Intent = "hours"
	IntentMenu        Intent = "menu"
	IntentReservation Intent = "reservation"
	IntentServices    Intent = "services"
	IntentAppointment Intent = "appointment"
	IntentGreeting    Intent = "greeting"
	IntentThanks      Intent = "thanks"
	IntentFallback    Intent = "fallback"
)

// Config maps template-declared field keys to merchant-supplied values.
// Keys not declared by the template are ignored by the renderer.
type Config map[string]string

// Merchant config field keys.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldAddress     = "address"
	FieldPhone       = "phone"
	FieldOpenHours   = "openHours"
	FieldSpecialties = "specialties"
	FieldServices    = "services"
)

// Field declares a merchant config key for a template.
type Field struct {
	Key      string
	Required bool
}

// Rule pairs an intent label with its match predicate. Rules are evaluated
// in declaration order with first-match-wins semantics.
type Rule struct {
	Intent Intent
	Match  func(normalized string) bool
}

// Builder renders the response text for one intent from the merchant config.
type Builder func(cfg Config) string

// Template is an immutable, process-wide business template definition.
type Template struct {
	ID        ID
	Fields    []Field
	Rules     []Rule
	Responses map[Intent]Builder
}

var registry = map[ID]*Template{
	Restaurant: newRestaurant(),
	Salon:      newSalon(),
	Artisan:    newArtisan(),
}

// Lookup returns the template for the given id.
func Lookup(id ID) (*Template, bool) {
	t, ok := registry[id]
	return t, ok
}

// IDs returns all supported template ids.
func IDs() []ID {
	return []ID{Restaurant, Salon, Artisan}
}

// Valid reports whether id names a supported template.
func Valid(id ID) bool {
	_, ok := registry[id]
	return ok
}

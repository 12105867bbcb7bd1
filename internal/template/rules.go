package template

// The rule order below is load-bearing: synonym lists overlap (réserv
// matches both reservation and appointment phrasing, heure appears inside
// longer words) and the first matching rule wins.

func commonLeadingRules() []Rule {
	return []Rule{
		{IntentStart, equals("/start")},
		{IntentInfo, equalsOrContains([]string{"info"}, []string{"information"})},
		{IntentAddress, equalsOrContains([]string{"adresse"}, []string{"adresse", "où"})},
		{IntentContact, equalsOrContains([]string{"contact"}, []string{"téléphone", "appeler", "contacter"})},
		{IntentHours, equalsOrContains([]string{"horaires"}, []string{"horaire", "ouvert", "heure"})},
	}
}

func commonTrailingRules() []Rule {
	return []Rule{
		{IntentGreeting, equals("bonjour", "salut", "hello", "hi", "coucou")},
		{IntentThanks, contains("merci")},
	}
}

func newRestaurant() *Template {
	t := &Template{
		ID: Restaurant,
		Fields: []Field{
			{Key: FieldName},
			{Key: FieldDescription},
			{Key: FieldAddress},
			{Key: FieldPhone},
			{Key: FieldOpenHours},
			{Key: FieldSpecialties},
		},
	}

	t.Rules = append(t.Rules, commonLeadingRules()...)
	t.Rules = append(t.Rules,
		Rule{IntentMenu, equalsOrContains([]string{"menu"}, []string{"carte", "menu", "manger"})},
		Rule{IntentReservation, contains("réserv")},
	)
	t.Rules = append(t.Rules, commonTrailingRules()...)

	t.Responses = map[Intent]Builder{
		IntentStart:       startBuilder(t),
		IntentInfo:        infoBuilder(),
		IntentAddress:     addressBuilder(),
		IntentContact:     contactBuilder(),
		IntentHours:       hoursBuilder(),
		IntentMenu:        menuBuilder(),
		IntentReservation: reservationBuilder(),
		IntentGreeting:    greetingBuilder(),
		IntentThanks:      thanksBuilder(),
		IntentFallback:    fallbackBuilder(t),
	}
	return t
}

func newSalon() *Template {
	return newServiceTemplate(Salon)
}

func newArtisan() *Template {
	return newServiceTemplate(Artisan)
}

// newServiceTemplate builds the shared salon/artisan definition: a services
// catalog instead of a menu, and appointments instead of table reservations.
func newServiceTemplate(id ID) *Template {
	t := &Template{
		ID: id,
		Fields: []Field{
			{Key: FieldName},
			{Key: FieldDescription},
			{Key: FieldAddress},
			{Key: FieldPhone},
			{Key: FieldOpenHours},
			{Key: FieldServices},
		},
	}

	t.Rules = append(t.Rules, commonLeadingRules()...)
	t.Rules = append(t.Rules,
		Rule{IntentServices, equalsOrContains([]string{"services"}, []string{"service", "prestation"})},
		Rule{IntentAppointment, contains("rdv", "rendez-vous", "réserv")},
	)
	t.Rules = append(t.Rules, commonTrailingRules()...)

	t.Responses = map[Intent]Builder{
		IntentStart:       startBuilder(t),
		IntentInfo:        infoBuilder(),
		IntentAddress:     addressBuilder(),
		IntentContact:     contactBuilder(),
		IntentHours:       hoursBuilder(),
		IntentServices:    servicesBuilder(),
		IntentAppointment: appointmentBuilder(),
		IntentGreeting:    greetingBuilder(),
		IntentThanks:      thanksBuilder(),
		IntentFallback:    fallbackBuilder(t),
	}
	return t
}

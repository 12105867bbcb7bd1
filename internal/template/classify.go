package template

import "strings"

// Classify maps a raw user message to an intent for the given template.
// Matching is case-insensitive, ordered, and first-match-wins. It is total:
// unknown templates, empty input, and unmatched text all classify to
// IntentFallback.
func Classify(id ID, rawText string) Intent {
	t, ok := registry[id]
	if !ok {
		return IntentFallback
	}

	msg := strings.ToLower(strings.TrimSpace(rawText))
	if msg == "" {
		return IntentFallback
	}

	for _, rule := range t.Rules {
		if rule.Match(msg) {
			return rule.Intent
		}
	}
	return IntentFallback
}

// equals matches when the normalized text equals one of the given words.
func equals(words ...string) func(string) bool {
	return func(msg string) bool {
		for _, w := range words {
			if msg == w {
				return true
			}
		}
		return false
	}
}

// contains matches when the normalized text contains one of the given
// phrases. Phrases are never empty, so empty input cannot match.
func contains(phrases ...string) func(string) bool {
	return func(msg string) bool {
		for _, p := range phrases {
			if strings.Contains(msg, p) {
				return true
			}
		}
		return false
	}
}

// equalsOrContains matches an exact command word or a synonym substring.
func equalsOrContains(words, phrases []string) func(string) bool {
	eq := equals(words...)
	sub := contains(phrases...)
	return func(msg string) bool {
		return eq(msg) || sub(msg)
	}
}

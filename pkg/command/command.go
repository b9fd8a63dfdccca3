package command

import (
	"strings"

	"jamalekbot/pkg/message"
)

type Kind string

const (
	KindGreeting     Kind = "greeting"
	KindHelp         Kind = "help"
	KindSearch       Kind = "search"
	KindInfo         Kind = "info"
	KindSelfTest     Kind = "self_test"
	KindUnrecognized Kind = "unrecognized"
)

const (
	searchPrefix = "chercher "
	infoPrefix   = "info "
	selfTestWord = "test"
)

var (
	greetingWords = []string{"salut", "bonjour", "hola"}
	helpWords     = []string{"aide", "help"}
)

// Intent is the routed form of one message. Arg holds the search keyword, the
// info query, or the raw text for unrecognized input.
type Intent struct {
	Kind Kind
	Arg  string
}

// Route maps normalized text to an intent.
//
// Precedence: greeting, help, "chercher <mot>", "info <nom>", "test", fallback.
// Matching ignores case and surrounding whitespace.
func Route(in message.Normalized) Intent {
	text := strings.TrimSpace(in.Text)
	lowered := strings.ToLower(text)

	switch {
	case isOneOf(lowered, greetingWords):
		return Intent{Kind: KindGreeting}
	case isOneOf(lowered, helpWords):
		return Intent{Kind: KindHelp}
	}

	if arg, ok := argumentAfter(text, searchPrefix); ok {
		return Intent{Kind: KindSearch, Arg: arg}
	}
	if arg, ok := argumentAfter(text, infoPrefix); ok {
		return Intent{Kind: KindInfo, Arg: arg}
	}

	if lowered == selfTestWord {
		return Intent{Kind: KindSelfTest}
	}

	return Intent{Kind: KindUnrecognized, Arg: in.Text}
}

// argumentAfter strips prefix (trailing space included) from the original text
// so the argument keeps its case.
func argumentAfter(text string, prefix string) (string, bool) {
	if len(text) < len(prefix) || !strings.EqualFold(text[:len(prefix)], prefix) {
		return "", false
	}

	arg := strings.TrimSpace(text[len(prefix):])
	if arg == "" {
		return "", false
	}

	return arg, true
}

func isOneOf(value string, words []string) bool {
	for _, word := range words {
		if value == word {
			return true
		}
	}

	return false
}

// Package directory defines the business directory queried by the bot.
package directory

import (
	"context"
	"strings"
)

// Record is one business row. It is fetched per query and never cached.
type Record struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Address     string   `json:"address" yaml:"address"`
	Phone       string   `json:"phone" yaml:"phone"`
	Description string   `json:"description" yaml:"description"`
	PhotoURLs   []string `json:"photo_urls,omitempty" yaml:"photos,omitempty"`
	Category    string   `json:"category" yaml:"category"`
	Keywords    string   `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Directory is the read-only lookup used by the reply sequencer.
//
// GetOne returns a nil record and a nil error when nothing matches.
type Directory interface {
	Search(ctx context.Context, keyword string) ([]Record, error)
	GetOne(ctx context.Context, idOrName string) (*Record, error)
}

// MatchKeyword reports whether keyword is a case-insensitive substring of the
// record name, description or keywords.
func MatchKeyword(record Record, keyword string) bool {
	term := strings.ToLower(strings.TrimSpace(keyword))
	if term == "" {
		return false
	}

	for _, field := range []string{record.Name, record.Description, record.Keywords} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}

	return false
}

// MatchIdentity reports an exact match on the record id or name.
func MatchIdentity(record Record, idOrName string) bool {
	query := strings.TrimSpace(idOrName)
	if query == "" {
		return false
	}

	return record.ID == query || record.Name == query
}

// Filter returns the records matching keyword, keeping table order.
func Filter(records []Record, keyword string) []Record {
	matches := make([]Record, 0)
	for _, record := range records {
		if MatchKeyword(record, keyword) {
			matches = append(matches, record)
		}
	}

	return matches
}

// Find returns the first record matching idOrName, or nil.
func Find(records []Record, idOrName string) *Record {
	for i := range records {
		if MatchIdentity(records[i], idOrName) {
			found := records[i]
			return &found
		}
	}

	return nil
}

// SplitPhotos parses the comma-separated photo column, dropping blanks.
func SplitPhotos(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		urls = append(urls, trimmed)
	}

	return urls
}

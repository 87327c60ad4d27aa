// Package domain contains core business entities and rules.
package domain

import (
	"fmt"
	"strings"
)

// Quote represents a quotation with its author.
// This is a domain entity - it has no knowledge of speech or storage.
// A Quote is immutable once constructed; fields are only readable through accessors.
type Quote struct {
	id     QuoteID
	text   string
	author string
}

// NewQuote validates and constructs a quote.
// Text and author must both be non-empty after trimming whitespace.
func NewQuote(id QuoteID, text, author string) (Quote, error) {
	if !id.Valid() {
		return Quote{}, NewValidationErrorWithValue("id", "must be positive", uint64(id))
	}

	text, author = strings.TrimSpace(text), strings.TrimSpace(author)
	if err := ValidateQuoteFields(text, author); err != nil {
		return Quote{}, err
	}

	return Quote{id: id, text: text, author: author}, nil
}

// ValidateQuoteFields checks dictated text and author before an id is spent on them.
func ValidateQuoteFields(text, author string) error {
	if strings.TrimSpace(text) == "" {
		return NewValidationError("text", "cannot be empty")
	}

	if strings.TrimSpace(author) == "" {
		return NewValidationError("author", "cannot be empty")
	}

	return nil
}

// ID returns the identifier assigned at construction.
func (q Quote) ID() QuoteID { return q.id }

// Text returns the quotation itself.
func (q Quote) Text() string { return q.text }

// Author returns who said or wrote the quote.
func (q Quote) Author() string { return q.author }

// Speakable returns the sentence read aloud when the quote is played back.
func (q Quote) Speakable() string {
	return fmt.Sprintf("%s, by %s.", strings.TrimRight(q.text, ".!?, "), q.author)
}

// String implements fmt.Stringer for logging.
func (q Quote) String() string {
	return fmt.Sprintf("#%s %q - %s", q.id, q.text, q.author)
}

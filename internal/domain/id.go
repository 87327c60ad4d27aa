package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// QuoteID identifies a quote. IDs are issued from a monotonically increasing
// counter and are never reused, so they can be read aloud and parsed back.
type QuoteID uint64

// Valid reports whether the id could have been issued by a store.
func (id QuoteID) Valid() bool { return id > 0 }

// String returns the speakable form of the id.
func (id QuoteID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

var (
	unitWords = map[string]uint64{
		"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
		"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
		"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	}

	tensWords = map[string]uint64{
		"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
		"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	}

	// Transcribers occasionally return a homophone when a single digit is spoken.
	homophones = map[string]uint64{
		"won": 1, "to": 2, "too": 2, "for": 4, "ate": 8,
	}

	fillerWords = map[string]bool{
		"quote": true, "number": true, "id": true, "please": true, "the": true, "and": true,
	}
)

// ParseQuoteID parses an id from transcribed speech.
// It accepts digits ("42"), number words ("forty two", "one hundred and five")
// and ignores filler such as "quote", "number" and surrounding punctuation.
func ParseQuoteID(s string) (QuoteID, error) {
	tokens := tokenize(s)
	if len(tokens) == 0 {
		return 0, NewValidationErrorWithValue("id", "is empty", s)
	}

	if len(tokens) == 1 {
		if n, ok := homophones[tokens[0]]; ok {
			return QuoteID(n), nil
		}
	}

	n, err := parseNumberTokens(tokens)
	if err != nil {
		return 0, NewValidationErrorWithValue("id", err.Error(), s)
	}

	id := QuoteID(n)
	if !id.Valid() {
		return 0, NewValidationErrorWithValue("id", "must be positive", s)
	}

	return id, nil
}

// tokenize lower-cases s, splits hyphenated words and drops punctuation and filler.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == ','
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f == "" || fillerWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}

	return tokens
}

// parseNumberTokens reads either a run of single digits spoken one at a
// time ("one two three" is 123) or a number phrase up to 999999 ("two
// thousand three hundred"). Words out of place, such as "five twenty" or
// "twelve twelve", are rejected rather than added up.
func parseNumberTokens(tokens []string) (uint64, error) {
	if len(tokens) == 1 && isDigits(tokens[0]) {
		n, err := strconv.ParseUint(tokens[0], 10, 64)
		if err != nil {
			return 0, errors.New("number too large")
		}
		return n, nil
	}

	if digits, ok := digitRun(tokens); ok {
		n, err := strconv.ParseUint(digits, 10, 64)
		if err != nil {
			return 0, errors.New("number too large")
		}
		return n, nil
	}

	return parsePhrase(tokens)
}

// digitRun joins tokens that are each a single digit or digit word.
func digitRun(tokens []string) (string, bool) {
	if len(tokens) < 2 {
		return "", false
	}

	var b strings.Builder
	for _, tok := range tokens {
		if len(tok) == 1 && isDigits(tok) {
			b.WriteString(tok)
			continue
		}
		n, ok := unitWords[tok]
		if !ok || n > 9 {
			return "", false
		}
		b.WriteString(strconv.FormatUint(n, 10))
	}

	return b.String(), true
}

// wordKind is the last thing heard in the current group of three digits.
type wordKind int

const (
	kindNone wordKind = iota
	kindUnit
	kindTeen
	kindTens
	kindHundred
	kindLiteral
)

func parsePhrase(tokens []string) (uint64, error) {
	var (
		total, group uint64
		last         = kindNone
		thousands    bool
	)

	misplaced := func(tok string) error { return fmt.Errorf("misplaced word %q", tok) }

	for i, tok := range tokens {
		switch {
		case tok == "a":
			if last != kindNone || i+1 == len(tokens) || (tokens[i+1] != "hundred" && tokens[i+1] != "thousand") {
				return 0, misplaced(tok)
			}
			group, last = 1, kindUnit

		case tok == "hundred":
			if (last != kindUnit && last != kindLiteral) || group == 0 || group >= 10 {
				return 0, misplaced(tok)
			}
			group *= 100
			last = kindHundred

		case tok == "thousand":
			if thousands || last == kindNone || group == 0 {
				return 0, misplaced(tok)
			}
			total, group, last, thousands = group*1000, 0, kindNone, true

		case isDigits(tok):
			n, err := strconv.ParseUint(tok, 10, 64)
			if err != nil || n >= 1000 || last != kindNone {
				return 0, misplaced(tok)
			}
			group, last = n, kindLiteral

		default:
			n, kind, ok := numberWord(tok)
			switch {
			case !ok:
				return 0, fmt.Errorf("unrecognized word %q", tok)
			case n == 0 && len(tokens) > 1:
				return 0, misplaced(tok)
			case !fits(last, kind):
				return 0, misplaced(tok)
			}
			group += n
			last = kind
		}
	}

	return total + group, nil
}

func numberWord(tok string) (uint64, wordKind, bool) {
	if n, ok := unitWords[tok]; ok {
		if n >= 10 {
			return n, kindTeen, true
		}
		return n, kindUnit, true
	}
	if n, ok := tensWords[tok]; ok {
		return n, kindTens, true
	}

	return 0, kindNone, false
}

// fits reports whether a word of kind may follow last within one group:
// "forty two" and "hundred twelve" fit, "five twenty" does not.
func fits(last, kind wordKind) bool {
	switch kind {
	case kindUnit:
		return last == kindNone || last == kindTens || last == kindHundred
	case kindTeen, kindTens:
		return last == kindNone || last == kindHundred
	default:
		return false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text is a tokenized user message. Folded holds the lower-cased,
// diacritic-free tokens used for matching; Original holds the same tokens as
// typed, index for index.
type Text struct {
	Folded   []string
	Original []string
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// Tokenize splits s on anything that is not a letter or a digit.
func Tokenize(s string) Text {
	fields := strings.FieldsFunc(norm.NFC.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsMark(r)
	})

	text := Text{
		Folded:   make([]string, 0, len(fields)),
		Original: make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		folded := Fold(f)
		if folded == "" {
			continue
		}
		text.Folded = append(text.Folded, folded)
		text.Original = append(text.Original, f)
	}
	return text
}

// Normalize returns the folded tokens of s joined by single spaces.
func Normalize(s string) string {
	return strings.Join(Tokenize(s).Folded, " ")
}

// indexAny returns the position of the first token in set, or -1.
func (t Text) indexAny(set map[string]bool) int {
	for i, tok := range t.Folded {
		if set[tok] {
			return i
		}
	}
	return -1
}

// hasAny reports whether any word or multi-word phrase of terms occurs.
func (t Text) hasAny(terms []string) bool {
	for _, term := range terms {
		if t.hasPhrase(strings.Fields(term)) {
			return true
		}
	}
	return false
}

func (t Text) hasPhrase(words []string) bool {
	if len(words) == 0 {
		return false
	}
	for i := 0; i+len(words) <= len(t.Folded); i++ {
		match := true
		for j, w := range words {
			if t.Folded[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

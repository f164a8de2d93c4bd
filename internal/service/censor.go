package service

import (
	"fmt"
	"sync/atomic"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

var _ ContentFilter = (*Censor)(nil)

// Censor masks banned words in submissions, including leet-speak spellings
// and words broken up with punctuation or spaces.
type Censor struct {
	matcher     atomic.Pointer[goahocorasick.Machine]
	replacement rune
}

// textMapping keeps, for every searchable rune, its index in the original text.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

func NewCensor(words []string, replacement rune) (*Censor, error) {
	if replacement == 0 {
		replacement = '*'
	}
	c := &Censor{replacement: replacement}
	if err := c.Reload(words); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload swaps the banned word list. An empty list disables censoring.
func (c *Censor) Reload(words []string) error {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		if p := normalizeRunes([]rune(word)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		c.matcher.Store(nil)
		return nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return fmt.Errorf("build censor automaton: %w", err)
	}
	c.matcher.Store(m)
	return nil
}

// Censor replaces every rune of a banned word with the replacement rune
// while preserving the surrounding spacing and punctuation.
func (c *Censor) Censor(original string) (string, bool) {
	m := c.matcher.Load()
	if m == nil {
		return original, false
	}

	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original, false
	}

	spans := m.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, false
	}

	origRunes := []rune(original)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = c.replacement
		}
	}
	return string(origRunes), true
}

func normalize(input string) textMapping {
	origRunes := []rune(input)
	out := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(clean))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

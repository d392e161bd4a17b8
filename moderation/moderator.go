package moderation

import (
	"log/slog"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator masks forbidden words of chat content before it is stored or
// broadcast. Matching runs on a folded copy of the text: lower case, leet
// speak mapped back to letters, punctuation and spaces dropped. So
// "B.4.d.g.€r" still matches "badger", and the whole span is masked in the
// original text.
type Moderator struct {
	log          *slog.Logger
	matcher      *goahocorasick.Machine
	censoredChar rune
	size         int
}

// folded is a normalized text and, for each of its runes, the index of the
// rune it comes from in the original text.
type folded struct {
	runes  []rune
	origin []int
}

// NewModerator builds the automaton from the dictionary. Entries that fold
// to nothing are skipped; an empty dictionary disables moderation.
func NewModerator(censoredWords []string, censoredChar rune, log *slog.Logger) (*Moderator, error) {
	patterns := lo.FilterMap(censoredWords, func(word string, _ int) ([]rune, bool) {
		f := fold(strings.TrimSpace(word))
		return f.runes, len(f.runes) > 0
	})
	patterns = lo.UniqBy(patterns, func(p []rune) string { return string(p) })

	mod := &Moderator{log: log, censoredChar: censoredChar, size: len(patterns)}
	if mod.size == 0 {
		log.Debug("No censored words configured, moderation disabled")
		return mod, nil
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	mod.matcher = m
	log.Debug("Moderator ready", "patterns", mod.size)
	return mod, nil
}

// Size is the number of distinct dictionary entries.
func (m *Moderator) Size() int {
	return m.size
}

// Censor masks every match in original with the censored char and returns
// the distinct dictionary words found, in order of first appearance.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil || original == "" {
		return original, nil
	}
	f := fold(original)
	if len(f.runes) == 0 {
		return original, nil
	}
	hits := m.matcher.MultiPatternSearch(f.runes, false)
	if len(hits) == 0 {
		return original, nil
	}

	out := []rune(original)
	var words []string
	for _, hit := range hits {
		end := hit.Pos + len(hit.Word)
		if hit.Pos < 0 || end > len(f.origin) {
			continue
		}
		for i := f.origin[hit.Pos]; i <= f.origin[end-1]; i++ {
			out[i] = m.censoredChar
		}
		words = append(words, string(hit.Word))
	}
	return string(out), lo.Uniq(words)
}

func fold(input string) folded {
	runes := []rune(input)
	f := folded{runes: make([]rune, 0, len(runes)), origin: make([]int, 0, len(runes))}
	for i, r := range runes {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.origin = append(f.origin, i)
	}
	return f
}

func unleet(r rune) rune {
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
	}
	return r
}

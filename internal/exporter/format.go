package exporter

import (
	"strconv"
	"strings"
)

// formatFloat renders f with the fewest digits that round-trip, so CSV
// curves keep full precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatFixed renders f with exactly prec decimals for summary columns.
func formatFixed(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// maxSheetNameLen is Excel's limit on worksheet names.
const maxSheetNameLen = 31

// SheetName turns a sample name into a valid worksheet name: characters
// Excel forbids become underscores and the result is cut to 31 runes.
func SheetName(sample string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(sample))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sample"
	}
	return truncateRunes(name, maxSheetNameLen)
}

// truncateRunes cuts s to at most n runes. n <= 0 means no limit.
func truncateRunes(s string, n int) string {
	if runes := []rune(s); n > 0 && len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// nameSet hands out names that differ, ignoring case, from every name
// reserved or handed out before. Not safe for concurrent use.
type nameSet struct {
	used map[string]bool
}

func newNameSet(reserved ...string) *nameSet {
	s := &nameSet{used: make(map[string]bool)}
	for _, name := range reserved {
		s.reserve(name)
	}
	return s
}

func (s *nameSet) taken(name string) bool {
	return s.used[strings.ToLower(name)]
}

func (s *nameSet) reserve(name string) {
	s.used[strings.ToLower(name)] = true
}

// claim returns name, or name with the smallest free "_N" suffix (N >= 2).
// The result has at most maxRunes runes; the base is cut so the suffix
// survives. maxRunes <= 0 means no limit.
func (s *nameSet) claim(name string, maxRunes int) string {
	candidate := truncateRunes(name, maxRunes)
	for n := 2; s.taken(candidate); n++ {
		suffix := "_" + strconv.Itoa(n)
		limit := 0
		if maxRunes > 0 {
			limit = maxRunes - len(suffix)
		}
		candidate = truncateRunes(name, limit) + suffix
	}
	s.reserve(candidate)
	return candidate
}

// fileStem returns a file-system safe name for per-sample outputs.
func fileStem(sample string) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(sample))
	if stem == "" {
		return "sample"
	}
	return stem
}

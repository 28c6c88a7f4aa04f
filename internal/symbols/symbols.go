// Package symbols expands a requested ticker into the ordered list of
// exchange-suffix variants to try against the quote upstreams. Bombay-listed
// symbols are the main source of ambiguity: the ".BSE" spelling used by some
// search APIs is not understood by the chart upstreams, which expect ".BO"
// (Bombay) or ".NS" (National Stock Exchange) instead.
package symbols

import "strings"

// suffixAlternates maps a suffix family to the forms to try, most likely
// first. An empty string means the bare base symbol.
var suffixAlternates = map[string][]string{
	"BSE": {".BO", ".NS", ""},
	"NSE": {".NS", ".BO", ""},
	"LSE": {".L", ""},
	"TSE": {".T", ""},
	"ASX": {".AX", ""},
}

// Resolve returns the candidate symbols for input, in priority order. The
// first element is always the upper-cased trimmed input; the result is never
// empty. Resolution is a pure function of the input string.
func Resolve(input string) []string {
	sym := strings.ToUpper(strings.TrimSpace(input))
	variants := []string{sym}

	dot := strings.Index(sym, ".")
	if dot <= 0 || dot == len(sym)-1 {
		return variants
	}

	base := sym[:dot]
	suffix := sym[dot+1:]

	alts, ok := suffixAlternates[suffix]
	if !ok {
		// Unknown suffix: fall back to the bare base symbol.
		return append(variants, base)
	}
	for _, alt := range alts {
		if v := base + alt; v != sym {
			variants = append(variants, v)
		}
	}
	return variants
}

// Base strips a dotted exchange suffix, returning the bare upper-cased
// symbol. Used by the news lookup, where suffix-qualified symbols rarely
// match upstream feeds.
func Base(input string) string {
	sym := strings.ToUpper(strings.TrimSpace(input))
	if dot := strings.Index(sym, "."); dot > 0 {
		return sym[:dot]
	}
	return sym
}

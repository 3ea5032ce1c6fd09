package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
)

const prefix = "sf"

// Listing builds the cache key for one listing fetch. The readable segments
// are for operators; the hash covers the exact inputs, so two requests that
// only differ in search-text spacing get different keys.
func Listing(operation string, loc model.Locale, q model.QueryParameters) string {
	canonical := strings.Join([]string{
		operation,
		strings.ToUpper(loc.Country),
		strings.ToUpper(loc.Language),
		string(q.SortKey),
		strconv.FormatBool(q.Reverse),
		strconv.Itoa(q.PageSize),
		q.SearchText,
	}, "\x1f")
	sum := xxhash.Sum64String(canonical)

	const maxQueryTextLen = 64
	qs := sanitizeForKey(collapseASCIIWhitespace(q.SearchText))
	if len(qs) > maxQueryTextLen {
		qs = qs[:maxQueryTextLen]
	}

	rev := "0"
	if q.Reverse {
		rev = "1"
	}
	return fmt.Sprintf("%s:%s:%s:sort=%s:rev=%s:n=%d:q=%s:h=%016x",
		prefix, sanitizeForKey(operation), sanitizeForKey(loc.String()), sanitizeForKey(string(q.SortKey)), rev, q.PageSize, qs, sum)
}

// ListingPrefix is the prefix shared by every Listing key for operation.
func ListingPrefix(operation string) string {
	return prefix + ":" + sanitizeForKey(operation) + ":"
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// anything else, including ':' and non-ASCII, becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

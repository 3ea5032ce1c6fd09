package router

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
)

const (
	paramQuery   = "query"
	paramSortKey = "sortKey"
	paramReverse = "reverse"
	paramCount   = "count"
)

// BuildQueryParameters normalises the listing query string. It never fails:
// every value that is absent or unparsable resolves to its default, and no
// parse problem is reported or logged. sortKey is not checked against the
// storefront enum; the storefront rejects unknown values itself.
func BuildQueryParameters(v url.Values) model.QueryParameters {
	return model.QueryParameters{
		SearchText: stringOr(v, paramQuery, ""),
		SortKey:    model.SortKey(stringOr(v, paramSortKey, string(model.DefaultSortKey))),
		Reverse:    boolExactlyTrue(v, paramReverse),
		PageSize:   intOr(v, paramCount, model.DefaultPageSize),
	}
}

// stringOr returns the first value for key, or def when the key is absent.
// A present but empty value is returned as "".
func stringOr(v url.Values, key, def string) string {
	if !v.Has(key) {
		return def
	}
	return v.Get(key)
}

// boolExactlyTrue is true only for the literal "true".
func boolExactlyTrue(v url.Values, key string) bool {
	return v.Get(key) == "true"
}

// intOr parses a base-10 integer, or returns def when the key is absent,
// empty or not an integer. No range check is applied.
func intOr(v url.Values, key string, def int) int {
	n, err := strconv.Atoi(v.Get(key))
	if err != nil {
		return def
	}
	return n
}

var localePrefix = regexp.MustCompile(`^([A-Za-z]{2})-([A-Za-z]{2})$`)

// LocaleFromPrefix maps a path prefix such as "en-ca" to its locale. An empty
// prefix yields def; anything not shaped like language-country reports false.
func LocaleFromPrefix(prefix string, def model.Locale) (model.Locale, bool) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return def, true
	}
	m := localePrefix.FindStringSubmatch(prefix)
	if m == nil {
		return model.Locale{}, false
	}
	return model.Locale{
		Language:   strings.ToUpper(m[1]),
		Country:    strings.ToUpper(m[2]),
		PathPrefix: "/" + strings.ToLower(prefix),
	}, true
}

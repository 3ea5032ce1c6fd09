package keys

import (
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
)

var (
	us = model.Locale{Country: "US", Language: "EN"}
	ca = model.Locale{Country: "CA", Language: "FR"}
)

func TestDeterminism_SameInputsSameKey(t *testing.T) {
	q := model.QueryParameters{SearchText: "shoes", SortKey: model.SortPrice, Reverse: true, PageSize: 8}
	k1 := Listing("ApiAllProducts", us, q)
	k2 := Listing("ApiAllProducts", us, q)
	if k1 != k2 {
		t.Fatalf("determinism failed:\n k1=%s\n k2=%s", k1, k2)
	}
	if !regexp.MustCompile(`^[A-Za-z0-9:_=\-]+$`).MatchString(k1) {
		t.Fatalf("key contains disallowed characters: %s", k1)
	}
	if !strings.HasPrefix(k1, "sf:ApiAllProducts:en-us:sort=PRICE:rev=1:n=8:q=shoes:h=") {
		t.Fatalf("unexpected key layout: %s", k1)
	}
}

func TestDifference_EveryInputChangesKey(t *testing.T) {
	base := model.DefaultQueryParameters()
	k := Listing("ApiAllProducts", us, base)

	variants := map[string]string{}
	q := base
	q.SearchText = "hat"
	variants["search"] = Listing("ApiAllProducts", us, q)
	q = base
	q.SortKey = model.SortTitle
	variants["sort"] = Listing("ApiAllProducts", us, q)
	q = base
	q.Reverse = true
	variants["reverse"] = Listing("ApiAllProducts", us, q)
	q = base
	q.PageSize = 24
	variants["count"] = Listing("ApiAllProducts", us, q)
	variants["locale"] = Listing("ApiAllProducts", ca, base)

	for name, v := range variants {
		if v == k {
			t.Fatalf("%s change did not change key: %s", name, k)
		}
	}
}

func TestSpacingVariantsKeepDistinctHash(t *testing.T) {
	a := model.QueryParameters{SearchText: "red  shoes", SortKey: model.SortBestSelling, PageSize: 12}
	b := model.QueryParameters{SearchText: "red shoes", SortKey: model.SortBestSelling, PageSize: 12}
	if Listing("ApiAllProducts", us, a) == Listing("ApiAllProducts", us, b) {
		t.Fatal("search text is forwarded verbatim, so keys must differ")
	}
}

func TestUnicodeSafety_NoPanicAndHashSuffixPresent(t *testing.T) {
	q := model.QueryParameters{SearchText: "Göteborg 雪: jacket", SortKey: "FOO:BAR", PageSize: 12}
	k := Listing("ApiAllProducts", us, q)

	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
	if !regexp.MustCompile(`:h=[0-9a-f]{16}$`).MatchString(k) {
		t.Fatalf("missing or invalid :h=<hex64> suffix in key: %s", k)
	}
	if !strings.Contains(k, ":sort=FOO-BAR:") {
		t.Fatalf("sort key not sanitized: %s", k)
	}
}

func TestLongSearchTextIsTruncated(t *testing.T) {
	q := model.QueryParameters{SearchText: strings.Repeat("a", 500), SortKey: model.SortBestSelling, PageSize: 12}
	k := Listing("ApiAllProducts", us, q)
	if len(k) > 200 {
		t.Fatalf("key too long (%d): %s", len(k), k)
	}
}

func TestListingPrefix_MatchesListingKeys(t *testing.T) {
	p := ListingPrefix("ApiAllProducts")
	if p != "sf:ApiAllProducts:" {
		t.Fatalf("prefix=%q", p)
	}
	k := Listing("ApiAllProducts", ca, model.DefaultQueryParameters())
	if !strings.HasPrefix(k, p) {
		t.Fatalf("key %s does not start with %s", k, p)
	}
	if strings.HasPrefix(Listing("ApiOther", ca, model.DefaultQueryParameters()), p) {
		t.Fatal("prefix must not match other operations")
	}
}

func TestLocaleSegment_Sanitized(t *testing.T) {
	odd := model.Locale{Country: "U:S", Language: "E*N"}
	k := Listing("ApiAllProducts", odd, model.DefaultQueryParameters())

	if strings.ContainsAny(k, "*?[]") {
		t.Fatalf("glob metacharacter leaked into key: %s", k)
	}
	if !strings.HasPrefix(k, ListingPrefix("ApiAllProducts")+"e-n-u-s:sort=") {
		t.Fatalf("locale segment not sanitized: %s", k)
	}
	if got := strings.Count(k, ":"); got != strings.Count(Listing("ApiAllProducts", us, model.DefaultQueryParameters()), ":") {
		t.Fatalf("segment count changed (%d separators): %s", got, k)
	}
}

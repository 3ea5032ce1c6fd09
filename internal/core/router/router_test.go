package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/storefront"
)

var usLocale = model.Locale{Country: "US", Language: "EN"}

type fakeLister struct {
	mu       sync.Mutex
	calls    int
	lastQ    model.QueryParameters
	lastLoc  model.Locale
	products []model.Product
	err      error
}

func (f *fakeLister) AllProducts(_ context.Context, q model.QueryParameters, loc model.Locale) ([]model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQ = q
	f.lastLoc = loc
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeLister) snapshot() (int, model.QueryParameters, model.Locale) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.lastQ, f.lastLoc
}

type recordedView struct {
	loc     model.Locale
	listing model.ProductListing
}

type fakeViews struct {
	mu    sync.Mutex
	views []recordedView
}

func (f *fakeViews) RecordView(_ context.Context, loc model.Locale, l model.ProductListing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, recordedView{loc: loc, listing: l})
}

func (f *fakeViews) recorded() []recordedView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedView(nil), f.views...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(lister ProductLister, views ViewRecorder) http.Handler {
	r := chi.NewRouter()
	h := HandleProducts(discardLogger(), usLocale, lister, views)
	r.Get("/api/products", h)
	r.Get("/{locale}/api/products", h)
	return r
}

type listingBody struct {
	Products     []model.Product       `json:"products"`
	SearchParams model.QueryParameters `json:"searchParams"`
}

func TestListProducts_SingleFetchWithBuiltParams(t *testing.T) {
	fl := &fakeLister{products: []model.Product{{ID: "gid://shopify/Product/1", Title: "Shoe"}}}
	got, err := ListProducts(context.Background(), fl, mustQuery(t, "query=shoes&count=8&sortKey=PRICE&reverse=true"), usLocale)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	want := model.QueryParameters{SearchText: "shoes", PageSize: 8, SortKey: model.SortPrice, Reverse: true}
	if fl.calls != 1 {
		t.Fatalf("fetch calls=%d want 1", fl.calls)
	}
	if fl.lastQ != want || got.Params != want {
		t.Fatalf("fetch q=%+v listing q=%+v want=%+v", fl.lastQ, got.Params, want)
	}
	if len(got.Products) != 1 || got.Products[0].Title != "Shoe" {
		t.Fatalf("products=%+v", got.Products)
	}
}

func TestListProducts_ErrorYieldsNoListing(t *testing.T) {
	fl := &fakeLister{err: &storefront.DataIntegrityError{Operation: "ApiAllProducts", Reason: "products is null"}}
	got, err := ListProducts(context.Background(), fl, nil, usLocale)
	var die *storefront.DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("err=%v want DataIntegrityError", err)
	}
	if got.Products != nil {
		t.Fatalf("listing returned alongside error: %+v", got)
	}
}

func TestHandleProducts_EchoesSearchParams(t *testing.T) {
	fl := &fakeLister{products: []model.Product{}}
	views := &fakeViews{}
	srv := httptest.NewServer(newTestRouter(fl, views))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/products?query=shoes&count=8&sortKey=PRICE&reverse=true")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}

	var body listingBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := model.QueryParameters{SearchText: "shoes", PageSize: 8, SortKey: model.SortPrice, Reverse: true}
	if body.SearchParams != want {
		t.Fatalf("searchParams=%+v want=%+v", body.SearchParams, want)
	}
	if body.Products == nil {
		t.Fatal("products must encode as an array")
	}
	if _, _, loc := fl.snapshot(); loc != usLocale {
		t.Fatalf("locale=%+v want default", loc)
	}
	if rec := views.recorded(); len(rec) != 1 || rec[0].listing.Params != want {
		t.Fatalf("view not recorded: %+v", rec)
	}
}

func TestHandleProducts_LocalePrefix(t *testing.T) {
	fl := &fakeLister{products: []model.Product{}}
	srv := httptest.NewServer(newTestRouter(fl, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/fr-ca/api/products")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}
	if _, _, loc := fl.snapshot(); loc.Country != "CA" || loc.Language != "FR" {
		t.Fatalf("locale=%+v", loc)
	}

	resp, err = http.Get(srv.URL + "/shop/api/products")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want 404", resp.StatusCode)
	}
	if calls, _, _ := fl.snapshot(); calls != 1 {
		t.Fatalf("unknown prefix must not fetch; calls=%d", calls)
	}
}

func TestHandleProducts_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"integrity", &storefront.DataIntegrityError{Operation: "ApiAllProducts", Reason: "products is null"}, http.StatusInternalServerError},
		{"upstream", &storefront.UpstreamError{Operation: "ApiAllProducts", Status: 503}, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			views := &fakeViews{}
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			newTestRouter(&fakeLister{err: tc.err}, views).ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("status=%d want %d", rr.Code, tc.want)
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("error body=%q err=%v", rr.Body.String(), err)
			}
			if len(views.recorded()) != 0 {
				t.Fatal("failed listing must not be recorded")
			}
		})
	}
}

// wires the handler to the real storefront client against a fake API
func newStorefrontBackedServer(t *testing.T, apiBody string, seen chan<- map[string]any) *httptest.Server {
	t.Helper()
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req storefront.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		if seen != nil {
			seen <- req.Variables
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, apiBody)
	}))
	t.Cleanup(api.Close)

	client, err := storefront.New(api.URL, "2024-01", "token", storefront.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("storefront.New: %v", err)
	}
	srv := httptest.NewServer(newTestRouter(client, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestEndToEnd_ParamsReachStorefront(t *testing.T) {
	seen := make(chan map[string]any, 1)
	srv := newStorefrontBackedServer(t, `{"data":{"products":{"nodes":[
		{"id":"gid://shopify/Product/9","title":"Runner","handle":"runner","vendor":"Acme","description":"","tags":["shoes"],
		 "priceRange":{"minVariantPrice":{"amount":"80.00","currencyCode":"USD"},"maxVariantPrice":{"amount":"80.00","currencyCode":"USD"}},
		 "compareAtPriceRange":{"minVariantPrice":{"amount":"100.00","currencyCode":"USD"},"maxVariantPrice":{"amount":"100.00","currencyCode":"USD"}},
		 "featuredImage":null}]}}}`, seen)

	resp, err := http.Get(srv.URL + "/api/products?query=shoes&count=8&sortKey=PRICE&reverse=true")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want 200", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var body listingBody
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var flags struct {
		Products []struct {
			OnSale *bool `json:"onSale"`
		} `json:"products"`
	}
	if err := json.Unmarshal(raw, &flags); err != nil {
		t.Fatalf("decode onSale: %v", err)
	}
	if len(flags.Products) != 1 || flags.Products[0].OnSale == nil || !*flags.Products[0].OnSale {
		t.Fatalf("onSale missing or false in %s", raw)
	}

	vars := <-seen
	if vars["query"] != "shoes" || vars["count"] != float64(8) || vars["sortKey"] != "PRICE" || vars["reverse"] != true {
		t.Fatalf("storefront variables=%v", vars)
	}
	want := model.QueryParameters{SearchText: "shoes", PageSize: 8, SortKey: model.SortPrice, Reverse: true}
	if body.SearchParams != want {
		t.Fatalf("searchParams=%+v want=%+v", body.SearchParams, want)
	}
	if len(body.Products) != 1 || body.Products[0].Handle != "runner" {
		t.Fatalf("products=%+v", body.Products)
	}
}

func TestEndToEnd_NullProductsFails(t *testing.T) {
	srv := newStorefrontBackedServer(t, `{"data":{"products":null}}`, nil)

	resp, err := http.Get(srv.URL + "/api/products")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", resp.StatusCode)
	}
	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["products"]; ok {
		t.Fatalf("no listing expected, got %v", raw)
	}
}

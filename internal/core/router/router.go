package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/storefront"
	mylog "github.com/MdAlAmin212104/hydrogen-demo-store/internal/logger"
)

const productsRoute = "/api/products"

// fetches one page of products from the storefront
type ProductLister interface {
	AllProducts(ctx context.Context, q model.QueryParameters, loc model.Locale) ([]model.Product, error)
}

// is told about every listing that was served
type ViewRecorder interface {
	RecordView(ctx context.Context, loc model.Locale, l model.ProductListing)
}

// ListProducts builds the query parameters from raw and performs the single
// storefront fetch for them.
func ListProducts(ctx context.Context, lister ProductLister, raw url.Values, loc model.Locale) (model.ProductListing, error) {
	q := BuildQueryParameters(raw)
	products, err := lister.AllProducts(ctx, q, loc)
	if err != nil {
		return model.ProductListing{}, err
	}
	return model.ProductListing{Products: products, Params: q}, nil
}

// HandleProducts serves GET /api/products and GET /{locale}/api/products.
// views may be nil.
func HandleProducts(logger *slog.Logger, defaults model.Locale, lister ProductLister, views ViewRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, productsRoute, sw.code, time.Since(start).Seconds())
		}()

		loc, ok := LocaleFromPrefix(chi.URLParam(r, "locale"), defaults)
		if !ok {
			writeError(sw, http.StatusNotFound, "not found")
			return
		}
		ctx := mylog.WithLocale(r.Context(), loc.String())

		listing, err := ListProducts(ctx, lister, r.URL.Query(), loc)
		if err != nil {
			status, msg := classify(err)
			logger.ErrorContext(ctx, "product listing failed", "status", status, "err", err)
			writeError(sw, status, msg)
			return
		}

		observability.ObserveListing(listing.Params)
		if views != nil {
			views.RecordView(ctx, loc, listing)
		}
		logger.DebugContext(ctx, "product listing served",
			"products", len(listing.Products),
			"sort_key", string(listing.Params.SortKey),
			"page_size", listing.Params.PageSize)
		writeJSON(sw, http.StatusOK, listing)
	}
}

func classify(err error) (int, string) {
	var die *storefront.DataIntegrityError
	var ue *storefront.UpstreamError
	switch {
	case errors.As(err, &die):
		return http.StatusInternalServerError, "storefront returned no product data"
	case errors.As(err, &ue):
		return http.StatusBadGateway, "storefront request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "storefront request timed out"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

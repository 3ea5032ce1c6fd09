// Package model defines core domain types shared across the service.
package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey is the field a product listing is ordered by. Values outside the
// known set are carried unchanged to the storefront API.
type SortKey string

const (
	SortBestSelling SortKey = "BEST_SELLING"
	SortCreatedAt   SortKey = "CREATED_AT"
	SortID          SortKey = "ID"
	SortPrice       SortKey = "PRICE"
	SortProductType SortKey = "PRODUCT_TYPE"
	SortRelevance   SortKey = "RELEVANCE"
	SortTitle       SortKey = "TITLE"
	SortUpdatedAt   SortKey = "UPDATED_AT"
	SortVendor      SortKey = "VENDOR"
)

var knownSortKeys = map[SortKey]struct{}{
	SortBestSelling: {},
	SortCreatedAt:   {},
	SortID:          {},
	SortPrice:       {},
	SortProductType: {},
	SortRelevance:   {},
	SortTitle:       {},
	SortUpdatedAt:   {},
	SortVendor:      {},
}

// Known reports whether k is one of the storefront's ProductSortKeys.
func (k SortKey) Known() bool {
	_, ok := knownSortKeys[k]
	return ok
}

const (
	DefaultSortKey  = SortBestSelling
	DefaultPageSize = 12
)

type QueryParameters struct {
	SearchText string  `json:"searchText"`
	SortKey    SortKey `json:"sortKey"`
	Reverse    bool    `json:"reverse"`
	PageSize   int     `json:"pageSize"`
}

// DefaultQueryParameters is what an empty query string resolves to.
func DefaultQueryParameters() QueryParameters {
	return QueryParameters{
		SearchText: "",
		SortKey:    DefaultSortKey,
		Reverse:    false,
		PageSize:   DefaultPageSize,
	}
}

type Locale struct {
	Country    string `json:"country"`
	Language   string `json:"language"`
	PathPrefix string `json:"pathPrefix,omitempty"`
}

// String renders the locale as "ll-cc", the form used in path prefixes.
func (l Locale) String() string {
	return strings.ToLower(l.Language) + "-" + strings.ToLower(l.Country)
}

type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type MoneyRange struct {
	MinVariantPrice Money `json:"minVariantPrice"`
	MaxVariantPrice Money `json:"maxVariantPrice"`
}

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"altText,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type Product struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Handle              string     `json:"handle"`
	Vendor              string     `json:"vendor"`
	Description         string     `json:"description"`
	Tags                []string   `json:"tags"`
	PriceRange          MoneyRange `json:"priceRange"`
	CompareAtPriceRange MoneyRange `json:"compareAtPriceRange"`
	FeaturedImage       *Image     `json:"featuredImage"`
}

// OnSale is true when the lowest compare-at price is above the lowest price
// in the same currency.
func (p Product) OnSale() bool {
	price := p.PriceRange.MinVariantPrice
	cmp := p.CompareAtPriceRange.MinVariantPrice
	if cmp.CurrencyCode != "" && price.CurrencyCode != "" && cmp.CurrencyCode != price.CurrencyCode {
		return false
	}
	return cmp.Amount.GreaterThan(price.Amount)
}

// MarshalJSON writes the storefront fields plus the derived onSale flag the
// product card uses for its discount badge.
func (p Product) MarshalJSON() ([]byte, error) {
	type fields Product
	return json.Marshal(struct {
		fields
		OnSale bool `json:"onSale"`
	}{fields(p), p.OnSale()})
}

// ProductListing is built once per request and not modified afterwards.
type ProductListing struct {
	Products []Product       `json:"products"`
	Params   QueryParameters `json:"searchParams"`
}

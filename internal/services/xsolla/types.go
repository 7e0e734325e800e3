package xsolla

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"

	"xsolla-tools/internal/services/price"
)

// Payload is a resource exactly as the platform returned it, so that an update
// sends back every field the caller did not touch.
type Payload map[string]any

// Price is one entry of a resource's price list.
type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	IsDefault bool    `json:"is_default"`
	IsEnabled bool    `json:"is_enabled"`
}

// BundleContent is one item of a bundle.
type BundleContent struct {
	SKU        string `json:"sku"`
	Type       string `json:"type"`
	BundleType string `json:"bundle_type"`
	Quantity   int    `json:"quantity"`
}

// CreatedItem is the answer to a create call.
type CreatedItem struct {
	ItemID int    `json:"item_id"`
	SKU    string `json:"sku"`
}

func (p Payload) SKU() string {
	s, _ := p["sku"].(string)
	return s
}

// UnitItems returns the game's unit items. They share storage with p, so
// edits through them are sent by the next update.
func (p Payload) UnitItems() []Payload {
	raw, _ := p["unit_items"].([]any)
	items := make([]Payload, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			items = append(items, Payload(m))
		}
	}
	return items
}

// HasUnitItems reports whether the resource carries a unit_items list.
func (p Payload) HasUnitItems() bool {
	_, ok := p["unit_items"]
	return ok
}

// FindUnitItem returns the unit item with the given sku.
func (p Payload) FindUnitItem(sku string) (Payload, bool) {
	for _, item := range p.UnitItems() {
		if item.SKU() == sku {
			return item, true
		}
	}
	return nil, false
}

func (p Payload) Prices() ([]Price, error) {
	var prices []Price
	if err := p.decodeKey("prices", &prices); err != nil {
		return nil, err
	}
	return prices, nil
}

func (p Payload) SetPrices(prices []Price) {
	p["prices"] = prices
}

func (p Payload) Content() ([]BundleContent, error) {
	var content []BundleContent
	if err := p.decodeKey("content", &content); err != nil {
		return nil, err
	}
	return content, nil
}

func (p Payload) decodeKey(key string, dst any) error {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// PricesFromTable converts a price table into a sorted, enabled price list,
// flagging defaultCurrency as the default.
func PricesFromTable(t price.Table, defaultCurrency string) []Price {
	prices := make([]Price, 0, len(t))
	for _, c := range t.Currencies() {
		prices = append(prices, Price{
			Amount:    t[c].InexactFloat64(),
			Currency:  c,
			IsDefault: c == defaultCurrency,
			IsEnabled: true,
		})
	}
	return prices
}

// TableFromPrices keeps the first amount seen for each currency.
func TableFromPrices(prices []Price) price.Table {
	t := price.Table{}
	for _, p := range prices {
		if _, dup := t[p.Currency]; dup {
			continue
		}
		t[p.Currency] = decimal.NewFromFloat(p.Amount)
	}
	return t
}

// DefaultCurrency returns the currency flagged as default, or "" when none is.
func DefaultCurrency(prices []Price) string {
	for _, p := range prices {
		if p.IsDefault {
			return p.Currency
		}
	}
	return ""
}

// SKUs lists the sku of every resource.
func SKUs(resources []Payload) []string {
	skus := make([]string, 0, len(resources))
	for _, r := range resources {
		skus = append(skus, r.SKU())
	}
	sort.Strings(skus)
	return skus
}

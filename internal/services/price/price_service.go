package price

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
)

// DefaultCurrency is flagged as the default price when prices are pushed to the commerce platform.
const DefaultCurrency = "USD"

// MaxDiscount is the largest discount a bundle recalculation accepts.
var MaxDiscount = decimal.RequireFromString("0.99")

// Table maps a currency code to an amount.
type Table map[string]decimal.Decimal

// Currencies returns the table's currency codes in lexicographic order.
func (t Table) Currencies() []string {
	codes := make([]string, 0, len(t))
	for c := range t {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Equal reports whether both tables hold the same currencies and amounts.
func (t Table) Equal(other Table) bool {
	if len(t) != len(other) {
		return false
	}
	for c, amount := range t {
		o, ok := other[c]
		if !ok || !amount.Equal(o) {
			return false
		}
	}
	return true
}

// Warning reports a currency dropped from a bundle total because an item lacks it.
type Warning struct {
	SKU      string
	Currency string
}

func (w Warning) String() string {
	return fmt.Sprintf("unable to find pricing in %s for %s", w.Currency, w.SKU)
}

// Priced pairs a bundle item with its resolved price table.
type Priced struct {
	Item   Item
	Prices Table
}

// ValidateDiscount rejects discounts outside [0, 0.99].
func ValidateDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThan(MaxDiscount) {
		return errs.Validation("discount must be between 0 and %s, got %s", MaxDiscount, discount)
	}
	return nil
}

// Recalculate resolves every item's prices through r and aggregates them.
func Recalculate(ctx context.Context, items []Item, discount decimal.Decimal, r Resolver) (Table, []Warning, error) {
	if err := ValidateDiscount(discount); err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, errs.Validation("empty bundle")
	}

	priced := make([]Priced, 0, len(items))
	for _, item := range items {
		logrus.WithField("sku", item.ItemSKU()).Info("Grabbing prices for bundle item")
		prices, err := item.resolve(ctx, r)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve prices for %s: %w", item.ItemSKU(), err)
		}
		priced = append(priced, Priced{Item: item, Prices: prices})
	}
	return Aggregate(priced, discount)
}

// Aggregate sums unit price times quantity per currency over the currencies
// every item supports, then applies the discount rounded to 2 places.
// Currencies missing from any item are dropped and reported as warnings.
func Aggregate(items []Priced, discount decimal.Decimal) (Table, []Warning, error) {
	if err := ValidateDiscount(discount); err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, errs.Validation("empty bundle")
	}

	total := Table{}
	first := items[0]
	qty := decimal.NewFromInt(int64(first.Item.ItemQuantity()))
	for c, amount := range first.Prices {
		total[c] = amount.Mul(qty)
	}

	var warnings []Warning
	for _, p := range items[1:] {
		qty := decimal.NewFromInt(int64(p.Item.ItemQuantity()))
		for _, c := range total.Currencies() {
			amount, ok := p.Prices[c]
			if !ok {
				w := Warning{SKU: p.Item.ItemSKU(), Currency: c}
				logrus.WithFields(logrus.Fields{"sku": w.SKU, "currency": c}).
					Warn("Item has no price in currency; bundle total will not include it")
				warnings = append(warnings, w)
				delete(total, c)
				continue
			}
			total[c] = total[c].Add(amount.Mul(qty))
		}
	}

	factor := decimal.NewFromInt(1).Sub(discount)
	for c, amount := range total {
		total[c] = amount.Mul(factor).Round(2)
	}
	return total, warnings, nil
}

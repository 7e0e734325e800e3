package price

import (
	"context"

	"xsolla-tools/internal/errs"
)

// Content types as reported inside a bundle.
const (
	TypeVirtualGood = "virtual_good"
	TypeBundle      = "bundle"
	TypeGameKey     = "game_key"

	BundleTypeStandard        = "standard"
	BundleTypeCurrencyPackage = "virtual_currency_package"
)

// Resolver looks up the price table of each kind of bundle item.
type Resolver interface {
	VirtualGood(ctx context.Context, sku string) (Table, error)
	StandardBundle(ctx context.Context, sku string) (Table, error)
	CurrencyPackage(ctx context.Context, sku string) (Table, error)
	GameKey(ctx context.Context, sku string) (Table, error)
}

// Item is one entry of a bundle. The set of implementations is closed.
type Item interface {
	ItemSKU() string
	ItemQuantity() int
	resolve(ctx context.Context, r Resolver) (Table, error)
}

type VirtualGood struct {
	SKU      string
	Quantity int
}

type StandardBundle struct {
	SKU      string
	Quantity int
}

type CurrencyPackage struct {
	SKU      string
	Quantity int
}

// GameKey is priced through its parent game's unit item.
type GameKey struct {
	SKU      string
	Quantity int
}

func (i VirtualGood) ItemSKU() string     { return i.SKU }
func (i StandardBundle) ItemSKU() string  { return i.SKU }
func (i CurrencyPackage) ItemSKU() string { return i.SKU }
func (i GameKey) ItemSKU() string         { return i.SKU }

func (i VirtualGood) ItemQuantity() int     { return i.Quantity }
func (i StandardBundle) ItemQuantity() int  { return i.Quantity }
func (i CurrencyPackage) ItemQuantity() int { return i.Quantity }
func (i GameKey) ItemQuantity() int         { return i.Quantity }

func (i VirtualGood) resolve(ctx context.Context, r Resolver) (Table, error) {
	return r.VirtualGood(ctx, i.SKU)
}

func (i StandardBundle) resolve(ctx context.Context, r Resolver) (Table, error) {
	return r.StandardBundle(ctx, i.SKU)
}

func (i CurrencyPackage) resolve(ctx context.Context, r Resolver) (Table, error) {
	return r.CurrencyPackage(ctx, i.SKU)
}

func (i GameKey) resolve(ctx context.Context, r Resolver) (Table, error) {
	return r.GameKey(ctx, i.SKU)
}

// ParseItem builds the bundle item variant for a content entry's type and bundle type.
func ParseItem(typ, bundleType, sku string, quantity int) (Item, error) {
	switch typ {
	case TypeVirtualGood:
		return VirtualGood{SKU: sku, Quantity: quantity}, nil
	case TypeGameKey:
		return GameKey{SKU: sku, Quantity: quantity}, nil
	case TypeBundle:
		switch bundleType {
		case BundleTypeStandard:
			return StandardBundle{SKU: sku, Quantity: quantity}, nil
		case BundleTypeCurrencyPackage:
			return CurrencyPackage{SKU: sku, Quantity: quantity}, nil
		}
		return nil, errs.Validation("unsupported bundle type %q for %s", bundleType, sku)
	}
	return nil, errs.Validation("unsupported item type %q for %s", typ, sku)
}

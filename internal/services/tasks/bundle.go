package tasks

import (
	"context"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/xsolla"
)

// RecalculateBundle sets a bundle's prices to the discounted sum of its
// items over the currencies all of them support. The bundle is only written
// once every item has been priced.
func (s *Service) RecalculateBundle(ctx context.Context, form RecalculateForm) (*BundleResult, error) {
	var result *BundleResult
	err := s.track(ctx, TaskRecalculate, form.ProjectID, form.SKU, func(ctx context.Context, run *models.TaskRun) error {
		if err := price.ValidateDiscount(form.Discount); err != nil {
			return err
		}
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}
		log := logrus.WithField("bundle", form.SKU)

		log.Info("Step 1: Pulling bundle data...")
		bundle, err := project.GetBundle(ctx, form.SKU)
		if err != nil {
			return err
		}
		content, err := bundle.Content()
		if err != nil {
			return errs.Format("decode content of bundle %s: %v", form.SKU, err)
		}

		items := make([]price.Item, 0, len(content))
		for _, c := range content {
			item, err := price.ParseItem(c.Type, c.BundleType, c.SKU, c.Quantity)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		log.Info("Step 2: Grabbing prices for individual bundle items...")
		total, warnings, err := price.Recalculate(ctx, items, form.Discount, &commerceResolver{project: project})
		if err != nil {
			return err
		}

		log.Info("Step 3: Submitting new prices to Xsolla...")
		bundle.SetPrices(xsolla.PricesFromTable(total, price.DefaultCurrency))
		if err := project.UpdateBundle(ctx, form.SKU, bundle); err != nil {
			return err
		}

		result = &BundleResult{SKU: form.SKU, Prices: total, Warnings: warnings, Discount: form.Discount}
		log.WithField("currencies", len(total)).Info("Bundle prices updated successfully")
		return nil
	})
	return result, err
}

// commerceResolver prices bundle items from the project catalog. The games
// list needed for game keys is fetched at most once per recalculation.
type commerceResolver struct {
	project *xsolla.ProjectService
	games   []xsolla.Payload
	loaded  bool
}

func (r *commerceResolver) VirtualGood(ctx context.Context, sku string) (price.Table, error) {
	item, err := r.project.GetVirtualItem(ctx, sku)
	if err != nil {
		return nil, err
	}
	return priceTable(item)
}

func (r *commerceResolver) StandardBundle(ctx context.Context, sku string) (price.Table, error) {
	bundle, err := r.project.GetBundle(ctx, sku)
	if err != nil {
		return nil, err
	}
	return priceTable(bundle)
}

func (r *commerceResolver) CurrencyPackage(ctx context.Context, sku string) (price.Table, error) {
	pkg, err := r.project.GetVirtualCurrencyPackage(ctx, sku)
	if err != nil {
		return nil, err
	}
	return priceTable(pkg)
}

func (r *commerceResolver) GameKey(ctx context.Context, sku string) (price.Table, error) {
	if !r.loaded {
		games, err := r.project.ListGames(ctx)
		if err != nil {
			return nil, err
		}
		r.games, r.loaded = games, true
	}
	for _, game := range r.games {
		if unit, ok := game.FindUnitItem(sku); ok {
			return priceTable(unit)
		}
	}
	return nil, errs.NotFound("game key %s is not a unit item of any game", sku)
}

func priceTable(p xsolla.Payload) (price.Table, error) {
	prices, err := p.Prices()
	if err != nil {
		return nil, errs.Format("decode prices of %s: %v", p.SKU(), err)
	}
	return xsolla.TableFromPrices(prices), nil
}

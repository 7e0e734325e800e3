package tasks

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/steam"
	"xsolla-tools/internal/services/xsolla"
	"xsolla-tools/internal/sku"
)

const (
	descriptionLimit = 255
	descriptionKeep  = 250
	defaultLocaleTag = "en-US"
)

// ImportFromCatalog creates a game in the project from a storefront app: its
// name, description and header image, plus one Steam key unit item priced in
// every currency the app is sold in.
func (s *Service) ImportFromCatalog(ctx context.Context, form ImportForm) (*xsolla.CreatedItem, error) {
	var created *xsolla.CreatedItem
	err := s.track(ctx, TaskImport, form.ProjectID, strconv.Itoa(form.AppID), func(ctx context.Context, run *models.TaskRun) error {
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}
		log := logrus.WithField("app_id", form.AppID)

		log.Info("Step 1: Retrieving game info from Steam...")
		product, ok, err := s.steam.FetchProduct(ctx, form.AppID, steam.KindApp, "us", "")
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound("app %d is not available in the store", form.AppID)
		}

		log.Info("Step 2: Retrieving prices from Steam...")
		prices, err := s.sweep(ctx, run, form.AppID)
		if err != nil {
			return err
		}

		log.Info("Step 3: Retrieving games list from project...")
		games, err := project.ListGames(ctx)
		if err != nil {
			return err
		}

		log.Info("Step 4: Adding on Xsolla...")
		gameSKU := sku.Generate(product.Name, form.AppID, xsolla.SKUs(games))
		run.Target = gameSKU
		created, err = project.CreateGame(ctx, ImportPayload(gameSKU, product, prices))
		if err != nil {
			return err
		}

		log.WithField("sku", created.SKU).Info("Game imported successfully")
		return nil
	})
	return created, err
}

// ImportPayload builds the create-game body for product.
func ImportPayload(gameSKU string, product *steam.Product, prices price.Table) xsolla.Payload {
	description := []rune(product.ShortDescription)
	short := product.ShortDescription
	if len(description) >= descriptionLimit {
		short = string(description[:descriptionKeep]) + "(...)"
	}

	unit := map[string]any{
		"sku":      gameSKU + "_Steam",
		"name":     map[string]any{defaultLocaleTag: product.Name + "_Steam"},
		"drm_name": "Steam",
		"drm_sku":  "steam",
		"prices":   xsolla.PricesFromTable(prices, price.DefaultCurrency),
	}

	return xsolla.Payload{
		"sku":              gameSKU,
		"name":             map[string]any{defaultLocaleTag: product.Name},
		"description":      map[string]any{defaultLocaleTag: short},
		"long_description": map[string]any{defaultLocaleTag: product.ShortDescription},
		"is_enabled":       true,
		"is_free":          product.IsFree,
		"is_show_in_store": true,
		"image_url":        product.HeaderImage,
		"unit_items":       []any{unit},
	}
}

// DeleteSKU removes a game from the project.
func (s *Service) DeleteSKU(ctx context.Context, form DeleteForm) error {
	return s.track(ctx, TaskDelete, form.ProjectID, form.SKU, func(ctx context.Context, run *models.TaskRun) error {
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}
		if form.SKU == "" {
			return errs.Validation("sku is required")
		}

		logrus.WithField("sku", form.SKU).Info("Deleting SKU")
		if err := project.DeleteGameBySKU(ctx, form.SKU); err != nil {
			return err
		}
		logrus.WithField("sku", form.SKU).Info("SKU successfully deleted")
		return nil
	})
}

// UpdatePrices replaces a game's prices with a fresh storefront sweep. Every
// unit item gets the same list; a game without unit items is priced directly.
func (s *Service) UpdatePrices(ctx context.Context, form UpdatePricesForm) (price.Table, error) {
	var prices price.Table
	err := s.track(ctx, TaskUpdatePrices, form.ProjectID, form.SKU, func(ctx context.Context, run *models.TaskRun) error {
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}
		if form.SKU == "" {
			return errs.Validation("sku is required")
		}
		log := logrus.WithFields(logrus.Fields{"sku": form.SKU, "app_id": form.AppID})

		log.Info("Step 1: Retrieving prices from Steam...")
		prices, err = s.sweep(ctx, run, form.AppID)
		if err != nil {
			return err
		}

		log.Info("Step 2: Retrieving SKU data from Xsolla...")
		game, err := project.GetGameBySKU(ctx, form.SKU)
		if err != nil {
			return err
		}

		log.Info("Step 3: Applying new prices...")
		list := xsolla.PricesFromTable(prices, price.DefaultCurrency)
		if game.HasUnitItems() {
			for _, item := range game.UnitItems() {
				item.SetPrices(list)
			}
		} else {
			game.SetPrices(list)
		}

		log.Info("Step 4: Uploading new prices to Xsolla...")
		if err := project.UpdateGameBySKU(ctx, form.SKU, game); err != nil {
			return err
		}
		log.WithField("currencies", len(prices)).Info("SKU prices updated successfully")
		return nil
	})
	return prices, err
}

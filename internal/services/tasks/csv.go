package tasks

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"xsolla-tools/internal/errs"
	"xsolla-tools/internal/models"
	"xsolla-tools/internal/services/price"
	"xsolla-tools/internal/services/xsolla"
)

// ExportPricesCSV writes the price list of every game unit item in the
// project to a CSV file and returns the number of rows written.
func (s *Service) ExportPricesCSV(ctx context.Context, form CSVForm) (int, error) {
	var written int
	err := s.track(ctx, TaskExportCSV, form.ProjectID, form.Path, func(ctx context.Context, run *models.TaskRun) error {
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}
		if form.Path == "" {
			return errs.Validation("csv path is required")
		}

		logrus.WithField("project_id", form.ProjectID).Info("Getting game key price data...")
		games, err := project.ListGames(ctx)
		if err != nil {
			return err
		}
		rows, err := priceRows(games)
		if err != nil {
			return err
		}

		logrus.WithField("path", form.Path).Info("Saving game key price data...")
		f, err := os.Create(form.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := price.WriteCSV(f, rows); err != nil {
			return err
		}
		written = len(rows)
		return f.Close()
	})
	return written, err
}

func priceRows(games []xsolla.Payload) ([]price.Row, error) {
	var rows []price.Row
	for _, game := range games {
		for _, unit := range game.UnitItems() {
			prices, err := unit.Prices()
			if err != nil {
				return nil, errs.Format("decode prices of %s: %v", unit.SKU(), err)
			}
			if len(prices) == 0 {
				continue
			}
			table := xsolla.TableFromPrices(prices)
			if len(table) != len(prices) {
				return nil, errs.Format("%s has two prices for the same currency", unit.SKU())
			}
			rows = append(rows, price.Row{
				GameSKU: game.SKU(),
				SubSKU:  unit.SKU(),
				Default: xsolla.DefaultCurrency(prices),
				Prices:  table,
			})
		}
	}
	return rows, nil
}

// ImportPricesCSV applies a CSV produced by ExportPricesCSV. The whole file
// is parsed before the first update. Rows are then applied in order and an
// upstream failure stops the import, leaving earlier rows updated; rerunning
// the same file is safe since every update replaces the full price list.
func (s *Service) ImportPricesCSV(ctx context.Context, form CSVForm) (int, error) {
	var applied int
	err := s.track(ctx, TaskImportCSV, form.ProjectID, form.Path, func(ctx context.Context, run *models.TaskRun) error {
		project, err := s.project(form.APIKey, form.ProjectID)
		if err != nil {
			return err
		}

		logrus.WithField("path", form.Path).Info("Opening and parsing CSV...")
		f, err := os.Open(form.Path)
		if err != nil {
			return err
		}
		rows, err := price.ReadCSV(f)
		f.Close()
		if err != nil {
			return err
		}

		for _, row := range rows {
			log := logrus.WithFields(logrus.Fields{"sku": row.GameSKU, "sub_sku": row.SubSKU})

			log.Info("Retrieving game data...")
			game, err := project.GetGameBySKU(ctx, row.GameSKU)
			if err != nil {
				return fmt.Errorf("%s: %w (%d of %d rows applied)", row.SubSKU, err, applied, len(rows))
			}
			unit, ok := game.FindUnitItem(row.SubSKU)
			if !ok {
				return fmt.Errorf("%w (%d of %d rows applied)",
					errs.NotFound("game %s has no unit item %s", row.GameSKU, row.SubSKU), applied, len(rows))
			}
			unit.SetPrices(xsolla.PricesFromTable(row.Prices, row.Default))

			log.Info("Updating with new prices...")
			if err := project.UpdateGameBySKU(ctx, row.GameSKU, game); err != nil {
				return fmt.Errorf("%s: %w (%d of %d rows applied)", row.SubSKU, err, applied, len(rows))
			}
			applied++
		}

		logrus.WithField("rows", applied).Info("Done!")
		return nil
	})
	return applied, err
}
